// Package service implements the permanent disability rating calculation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/metrics"
	"github.com/pdr-rating-server/internal/refdata"
)

// Calculator rates a medical report against the reference tables. It holds
// no per-request state and is safe for concurrent use.
type Calculator struct {
	store       refdata.Store
	occupations *OccupationResolver
	ages        *AgeAdjuster
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

// CalculatorOption configures a Calculator
type CalculatorOption func(*Calculator)

// WithCalculatorMetrics records outcomes and durations
func WithCalculatorMetrics(m *metrics.Metrics) CalculatorOption {
	return func(c *Calculator) {
		c.metrics = m
	}
}

// NewCalculator creates a calculator over store
func NewCalculator(store refdata.Store, config domain.RatingConfig, logger *logrus.Logger, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		store:       store,
		occupations: NewOccupationResolver(store, config.OccupationMatch, logger),
		ages:        NewAgeAdjuster(store, config.AgeAdjustmentSource, logger),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CalculateRating validates input and computes the full rating result. Any
// lookup failure aborts the calculation; no partial result is returned.
func (c *Calculator) CalculateRating(ctx context.Context, input *domain.RatingInput) (*domain.RatingResult, error) {
	start := time.Now()

	result, err := c.calculate(ctx, input)
	c.metrics.ObserveCalculation(outcomeOf(err), time.Since(start))

	if err != nil {
		c.logger.WithError(err).WithField("outcome", outcomeOf(err)).Warn("Rating calculation failed")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"impairments":        len(input.Impairments),
		"no_apportionment":   result.NoApportionment.Total,
		"with_apportionment": result.WithApportionment.Total,
		"duration_ms":        time.Since(start).Milliseconds(),
	}).Info("Rating calculated")

	return result, nil
}

// ResolveOccupation exposes the occupational variant lookup
func (c *Calculator) ResolveOccupation(ctx context.Context, title string) (*domain.OccupationVariant, error) {
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewValidationError("title", "occupation title is required", title)
	}
	return c.occupations.Resolve(ctx, title)
}

// DescribeImpairment exposes the impairment description lookup
func (c *Calculator) DescribeImpairment(ctx context.Context, code string) (*domain.ImpairmentDescription, error) {
	if strings.TrimSpace(code) == "" {
		return nil, domain.NewValidationError("code", "impairment code is required", code)
	}
	return c.store.FindImpairmentDescription(ctx, code)
}

// Ping checks the reference store
func (c *Calculator) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Calculator) calculate(ctx context.Context, input *domain.RatingInput) (*domain.RatingResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	age, err := input.Demographics.AgeAtInjury()
	if err != nil {
		return nil, err
	}

	occupation := &occupationMemo{resolver: c.occupations, title: input.Demographics.Occupation.Title}

	result := &domain.RatingResult{
		NoApportionment:   domain.RatingGroup{Sections: []domain.Section{}},
		WithApportionment: domain.RatingGroup{Sections: []domain.Section{}},
	}
	var noApportionment, withApportionment []decimal.Decimal

	for i := range input.Impairments {
		imp := &input.Impairments[i]

		section, rating, err := c.rateImpairment(ctx, imp, age, occupation)
		if err != nil {
			return nil, fmt.Errorf("impairment %d (%s): %w", i, imp.BodyPart.Code, err)
		}

		if section.Apportionment.NonIndustrial > 0 {
			contribution := Contribution(rating, section.Apportionment.Industrial)
			section.Contribution = contribution.Round(2).InexactFloat64()
			result.WithApportionment.Sections = append(result.WithApportionment.Sections, section)
			withApportionment = append(withApportionment, contribution)
		} else {
			section.Contribution = section.Rating
			result.NoApportionment.Sections = append(result.NoApportionment.Sections, section)
			noApportionment = append(noApportionment, rating)
		}
	}

	noTotal := CombineRatings(noApportionment)
	withTotal := CombineRatings(withApportionment)
	result.NoApportionment.Total = noTotal.InexactFloat64()
	result.WithApportionment.Total = withTotal.InexactFloat64()

	payout := DerivePayout(input.Demographics.WeeklyEarnings, decimal.Max(noTotal, withTotal))
	result.WeeklyEarnings = payout.WeeklyEarnings.InexactFloat64()
	result.PDWeeklyRate = payout.PDWeeklyRate.InexactFloat64()
	result.TotalPDPayout = payout.TotalPDPayout.InexactFloat64()
	result.LifeWeeklyRate = payout.LifeWeeklyRate.InexactFloat64()

	return result, nil
}

// rateImpairment runs the per-impairment pipeline and returns the section and
// its rounded final rating.
func (c *Calculator) rateImpairment(ctx context.Context, imp *domain.Impairment, age int, occupation *occupationMemo) (domain.Section, decimal.Decimal, error) {
	desc, err := c.store.FindImpairmentDescription(ctx, imp.BodyPart.Code)
	if err != nil {
		return domain.Section{}, decimal.Zero, fmt.Errorf("impairment description: %w", err)
	}

	occ, err := occupation.get(ctx)
	if err != nil {
		return domain.Section{}, decimal.Zero, err
	}

	wpi := decimal.NewFromFloat(imp.WPI)
	base := BaseRating(wpi)
	occupational := OccupationalAdjustment(base, occ.Variant)

	ageAdjustment, err := c.ages.Adjustment(ctx, age, wpi)
	if err != nil {
		return domain.Section{}, decimal.Zero, err
	}

	rating := FinalRating(occupational, ageAdjustment, imp.Adjustments.Pain.Add)

	section := domain.Section{
		Code:                imp.BodyPart.Code,
		Name:                firstNonEmpty(imp.BodyPart.Name, desc.Title),
		Section:             firstNonEmpty(imp.BodyPart.Section, desc.Section),
		Type:                imp.BodyPart.Type,
		Description:         desc.Description,
		WPI:                 imp.WPI,
		BaseRating:          base.Round(2).InexactFloat64(),
		OccupationalGroup:   occ.GroupNumber,
		OccupationalVariant: occ.Variant,
		OccupationalRating:  occupational.Round(2).InexactFloat64(),
		Age:                 age,
		AgeAdjustment:       ageAdjustment.Round(2).InexactFloat64(),
		PainAdd:             imp.Adjustments.Pain.Add,
		ADLImpact:           imp.Adjustments.ADL.Impacted,
		Rating:              rating.InexactFloat64(),
		FutureMedical:       imp.FutureMedical.Required,
		Apportionment:       imp.Apportionment.Normalized(),
	}
	return section, rating, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrInvalidInput):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, domain.ErrReferenceDataNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
