package refdata

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pdr-rating-server/internal/domain"
)

// DatasetStore serves lookups from an in-memory Dataset. Rows keep their
// slice order, which is the table order for substring matches.
type DatasetStore struct {
	data *Dataset
}

// NewDatasetStore creates a store over data. The dataset must not be modified
// afterwards.
func NewDatasetStore(data *Dataset) *DatasetStore {
	if data == nil {
		data = &Dataset{}
	}
	return &DatasetStore{data: data}
}

// FindOccupationGroup implements Store
func (s *DatasetStore) FindOccupationGroup(_ context.Context, title string, mode domain.OccupationMatchMode) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, domain.NewLookupError(domain.TableOccupations, title)
	}
	needle := strings.ToLower(title)

	if mode == domain.MatchExact {
		for _, o := range s.data.Occupations {
			if strings.ToLower(o.OccupationTitle) == needle {
				return o.GroupNumber, nil
			}
		}
	}
	for _, o := range s.data.Occupations {
		if strings.Contains(strings.ToLower(o.OccupationTitle), needle) {
			return o.GroupNumber, nil
		}
	}
	return 0, domain.NewLookupError(domain.TableOccupations, title)
}

// FindVariant implements Store
func (s *DatasetStore) FindVariant(_ context.Context, bodyPart string, group int, impairmentCode string) (domain.Variant, error) {
	for _, v := range s.data.Variants {
		if v.BodyPart == bodyPart && v.OccupationalGroup == group && v.ImpairmentCode == impairmentCode {
			return domain.ParseVariant(string(v.Variant))
		}
	}
	return "", domain.NewLookupError(domain.TableVariants, variantKey(bodyPart, group, impairmentCode))
}

// FindImpairmentDescription implements Store
func (s *DatasetStore) FindImpairmentDescription(_ context.Context, code string) (*domain.ImpairmentDescription, error) {
	for _, d := range s.data.Impairments {
		if d.Code == code {
			found := d
			return &found, nil
		}
	}
	return nil, domain.NewLookupError(domain.TableImpairments, code)
}

// FindAgeAdjustmentFactor implements Store
func (s *DatasetStore) FindAgeAdjustmentFactor(_ context.Context, bracket domain.AgeBracket, wpiRounded int) (decimal.Decimal, error) {
	if _, err := bracket.Column(); err != nil {
		return decimal.Zero, err
	}
	for _, a := range s.data.AgeAdjustments {
		if a.WPIPercent != wpiRounded {
			continue
		}
		if factor, ok := a.Factors[bracket]; ok {
			return decimal.NewFromFloat(factor), nil
		}
		break
	}
	return decimal.Zero, domain.NewLookupError(domain.TableAgeAdjustment, ageKey(bracket, wpiRounded))
}

// Ping always succeeds
func (s *DatasetStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (s *DatasetStore) Close() error {
	return nil
}
