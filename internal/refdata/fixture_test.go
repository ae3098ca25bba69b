package refdata

import (
	"github.com/pdr-rating-server/internal/domain"
)

func ageRow(wpi int, factors ...float64) domain.AgeAdjustmentRecord {
	rec := domain.AgeAdjustmentRecord{WPIPercent: wpi, Factors: map[domain.AgeBracket]float64{}}
	for i, f := range factors {
		rec.Factors[domain.AgeBrackets[i]] = f
	}
	return rec
}

func fixtureDataset() *Dataset {
	return &Dataset{
		Occupations: []domain.OccupationRecord{
			{GroupNumber: 110, OccupationTitle: "Accounting Clerk", Industry: "Finance"},
			{GroupNumber: 111, OccupationTitle: "File Clerk", Industry: "Office"},
			{GroupNumber: 340, OccupationTitle: "Registered Nurse", Industry: "Health"},
			{GroupNumber: 460, OccupationTitle: "Carpenter", Industry: "Construction"},
			{GroupNumber: 380, OccupationTitle: "Clerk", Industry: "Retail"},
			{GroupNumber: 250, OccupationTitle: "100% Commission_Sales", Industry: "Retail"},
		},
		Variants: []domain.VariantRecord{
			{BodyPart: DefaultBodyPart, OccupationalGroup: 110, ImpairmentCode: DefaultImpairmentCode, Variant: domain.VariantC},
			{BodyPart: DefaultBodyPart, OccupationalGroup: 111, ImpairmentCode: DefaultImpairmentCode, Variant: domain.VariantD},
			{BodyPart: DefaultBodyPart, OccupationalGroup: 340, ImpairmentCode: DefaultImpairmentCode, Variant: domain.VariantF},
			{BodyPart: DefaultBodyPart, OccupationalGroup: 460, ImpairmentCode: DefaultImpairmentCode, Variant: domain.VariantJ},
			{BodyPart: DefaultBodyPart, OccupationalGroup: 380, ImpairmentCode: DefaultImpairmentCode, Variant: domain.VariantE},
			{BodyPart: DefaultBodyPart, OccupationalGroup: 250, ImpairmentCode: DefaultImpairmentCode, Variant: domain.Variant("x")},
		},
		Impairments: []domain.ImpairmentDescription{
			{Code: "15.03.01.00", Section: "Spine", Title: "Lumbar", Description: "Lumbar spine - range of motion"},
			{Code: "16.02.01.00", Section: "Upper Extremities", Title: "Shoulder", Description: "Shoulder - range of motion"},
		},
		AgeAdjustments: []domain.AgeAdjustmentRecord{
			ageRow(10, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2, 2.5, 3),
			ageRow(20, -3, -2, -1, 0, 1, 2, 3, 4, 5, 6),
		},
	}
}
