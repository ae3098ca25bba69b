package domain

import (
	"fmt"
	"math"
	"strings"
)

// apportionmentTolerance absorbs rounding in reported shares such as 33.33/66.67
const apportionmentTolerance = 0.01

// Validate checks the input before any reference lookup. All failures are
// *ValidationError values matching ErrInvalidInput.
func (in *RatingInput) Validate() error {
	if in == nil {
		return NewValidationError("input", "rating input is required", nil)
	}

	if _, err := in.Demographics.AgeAtInjury(); err != nil {
		return err
	}

	if strings.TrimSpace(in.Demographics.Occupation.Title) == "" {
		return NewValidationError("demographics.occupation.title", "occupation title is required", in.Demographics.Occupation.Title)
	}

	earnings := in.Demographics.WeeklyEarnings
	if math.IsNaN(earnings) || math.IsInf(earnings, 0) || earnings < 0 {
		return NewValidationError("demographics.weeklyEarnings", "weekly earnings must be zero or positive", earnings)
	}

	for i := range in.Impairments {
		if err := in.Impairments[i].validate(fmt.Sprintf("impairments[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (imp *Impairment) validate(prefix string) error {
	if strings.TrimSpace(imp.BodyPart.Code) == "" {
		return NewValidationError(prefix+".bodyPart.code", "impairment code is required", imp.BodyPart.Code)
	}

	if !inPercentRange(imp.WPI) {
		return NewValidationError(prefix+".wpi", "wpi must be between 0 and 100", imp.WPI)
	}

	a := imp.Apportionment
	if !inPercentRange(a.Industrial) {
		return NewValidationError(prefix+".apportionment.industrial", "share must be between 0 and 100", a.Industrial)
	}
	if !inPercentRange(a.NonIndustrial) {
		return NewValidationError(prefix+".apportionment.nonIndustrial", "share must be between 0 and 100", a.NonIndustrial)
	}
	if !a.IsUnset() && math.Abs(a.Industrial+a.NonIndustrial-100) > apportionmentTolerance {
		return NewValidationError(prefix+".apportionment", "industrial and nonIndustrial must sum to 100", a.Industrial+a.NonIndustrial)
	}
	return nil
}

// IsUnset reports whether the report gave no apportionment at all
func (a Apportionment) IsUnset() bool {
	return a.Industrial == 0 && a.NonIndustrial == 0
}

// Normalized returns the apportionment with an unset split read as fully industrial
func (a Apportionment) Normalized() Apportionment {
	if a.IsUnset() {
		a.Industrial = 100
	}
	return a
}

func inPercentRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}
