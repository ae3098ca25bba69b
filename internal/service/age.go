package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/refdata"
)

// AgeAdjuster resolves the age adjustment for an impairment
type AgeAdjuster struct {
	store  refdata.Store
	source domain.AgeAdjustmentSource
	logger *logrus.Logger
}

// NewAgeAdjuster creates an adjuster reading from store according to source
func NewAgeAdjuster(store refdata.Store, source domain.AgeAdjustmentSource, logger *logrus.Logger) *AgeAdjuster {
	if !source.IsValid() {
		source = domain.AgeSourceTable
	}
	return &AgeAdjuster{store: store, source: source, logger: logger}
}

// Adjustment returns the clamped additive adjustment in percentage points.
// The table row is keyed by the age bracket and the WPI rounded to a whole
// percent; a missing row falls back to the fixed bands.
func (a *AgeAdjuster) Adjustment(ctx context.Context, age int, wpi decimal.Decimal) (decimal.Decimal, error) {
	if a.source == domain.AgeSourceBands {
		return ClampAgeAdjustment(AgeBandAdjustment(age)), nil
	}

	bracket := domain.BracketForAge(age)
	wpiRounded := int(wpi.Round(0).IntPart())

	factor, err := a.store.FindAgeAdjustmentFactor(ctx, bracket, wpiRounded)
	if errors.Is(err, domain.ErrReferenceDataNotFound) {
		a.logger.WithFields(logrus.Fields{
			"bracket": bracket.String(),
			"wpi":     wpiRounded,
		}).Debug("No age adjustment row, using fixed bands")
		return ClampAgeAdjustment(AgeBandAdjustment(age)), nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("age adjustment lookup: %w", err)
	}
	return ClampAgeAdjustment(factor), nil
}
