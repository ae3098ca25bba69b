package service

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/refdata"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testDataset() *refdata.Dataset {
	general := func(group int, v domain.Variant) domain.VariantRecord {
		return domain.VariantRecord{
			BodyPart:          refdata.DefaultBodyPart,
			OccupationalGroup: group,
			ImpairmentCode:    refdata.DefaultImpairmentCode,
			Variant:           v,
		}
	}
	return &refdata.Dataset{
		Occupations: []domain.OccupationRecord{
			{GroupNumber: 110, OccupationTitle: "Accounting Clerk"},
			{GroupNumber: 340, OccupationTitle: "Registered Nurse"},
			{GroupNumber: 460, OccupationTitle: "Carpenter"},
			{GroupNumber: 999, OccupationTitle: "Unmapped Trade"},
		},
		Variants: []domain.VariantRecord{
			general(110, domain.VariantC),
			general(340, domain.VariantF),
			general(460, domain.VariantJ),
		},
		Impairments: []domain.ImpairmentDescription{
			{Code: "15.03.01.00", Section: "Spine", Title: "Lumbar", Description: "Lumbar spine - range of motion"},
			{Code: "16.02.01.00", Section: "Upper Extremities", Title: "Shoulder", Description: "Shoulder - range of motion"},
			{Code: "17.05.01.00", Section: "Lower Extremities", Title: "Knee", Description: "Knee - range of motion"},
		},
		AgeAdjustments: []domain.AgeAdjustmentRecord{
			{WPIPercent: 10, Factors: map[domain.AgeBracket]float64{domain.Age37To41: 5, domain.Age62AndOver: 80}},
		},
	}
}

// countingStore counts calls through to the wrapped store
type countingStore struct {
	refdata.Store
	occupationCalls atomic.Int64
	variantCalls    atomic.Int64
	ageCalls        atomic.Int64
}

func (s *countingStore) FindOccupationGroup(ctx context.Context, title string, mode domain.OccupationMatchMode) (int, error) {
	s.occupationCalls.Add(1)
	return s.Store.FindOccupationGroup(ctx, title, mode)
}

func (s *countingStore) FindVariant(ctx context.Context, bodyPart string, group int, code string) (domain.Variant, error) {
	s.variantCalls.Add(1)
	return s.Store.FindVariant(ctx, bodyPart, group, code)
}

func (s *countingStore) FindAgeAdjustmentFactor(ctx context.Context, bracket domain.AgeBracket, wpi int) (decimal.Decimal, error) {
	s.ageCalls.Add(1)
	return s.Store.FindAgeAdjustmentFactor(ctx, bracket, wpi)
}

// failingStore fails every lookup with err
type failingStore struct {
	refdata.Store
	err error
}

func (s *failingStore) FindAgeAdjustmentFactor(context.Context, domain.AgeBracket, int) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

func (s *failingStore) FindImpairmentDescription(context.Context, string) (*domain.ImpairmentDescription, error) {
	return nil, s.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
