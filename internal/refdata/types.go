// Package refdata provides read access to the PDRS reference tables:
// occupations, occupational variants, impairment descriptions and age
// adjustments.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pdr-rating-server/internal/domain"
)

// Variant lookups use a single default row per occupational group
const (
	DefaultBodyPart       = "General"
	DefaultImpairmentCode = "DEFAULT"
)

// Store defines read access to the reference tables. Every lookup that matches
// no row returns a *domain.LookupError.
type Store interface {
	// FindOccupationGroup returns the occupational group for a job title.
	FindOccupationGroup(ctx context.Context, title string, mode domain.OccupationMatchMode) (int, error)

	// FindVariant returns the variant letter for an impairment within a group.
	FindVariant(ctx context.Context, bodyPart string, group int, impairmentCode string) (domain.Variant, error)

	// FindImpairmentDescription returns the description row for an impairment code.
	FindImpairmentDescription(ctx context.Context, code string) (*domain.ImpairmentDescription, error)

	// FindAgeAdjustmentFactor returns the additive adjustment, in percentage
	// points, for an age bracket and rounded WPI.
	FindAgeAdjustmentFactor(ctx context.Context, bracket domain.AgeBracket, wpiRounded int) (decimal.Decimal, error)

	Ping(ctx context.Context) error
	Close() error
}

// Loader writes reference rows. It backs test fixtures and the CLI seed option.
type Loader interface {
	Load(ctx context.Context, data *Dataset) error
}

// Dataset is a bundle of reference rows
type Dataset struct {
	Occupations    []domain.OccupationRecord      `json:"occupations"`
	Variants       []domain.VariantRecord         `json:"variants"`
	Impairments    []domain.ImpairmentDescription `json:"impairments"`
	AgeAdjustments []domain.AgeAdjustmentRecord   `json:"age_adjustments"`
}

// ReadDataset decodes a JSON dataset
func ReadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding reference dataset: %w", err)
	}
	for _, v := range ds.Variants {
		if !v.Variant.IsValid() {
			return nil, fmt.Errorf("%w: variant %q for group %d", domain.ErrInvalidReferenceData, v.Variant, v.OccupationalGroup)
		}
	}
	return &ds, nil
}

// likePattern builds a %title% pattern with LIKE wildcards escaped by '\'
func likePattern(title string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(title)) + "%"
}

func variantKey(bodyPart string, group int, impairmentCode string) string {
	return fmt.Sprintf("%s/%d/%s", bodyPart, group, impairmentCode)
}

func ageKey(bracket domain.AgeBracket, wpiRounded int) string {
	return fmt.Sprintf("%s/wpi=%d", bracket, wpiRounded)
}

// referenceTables are cleared by Load before the new dataset is inserted
var referenceTables = []string{"occupations", "variants", "bodypart_impairments", "age_adjustments"}

func ageColumns() []string {
	cols := make([]string, 0, len(domain.AgeBrackets))
	for _, b := range domain.AgeBrackets {
		col, _ := b.Column()
		cols = append(cols, col)
	}
	return cols
}
