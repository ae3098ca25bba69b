// Package domain contains the core entities for California permanent disability
// rating (PDR): medical-report input, reference-data records and rating results.
//
// Ratings are expressed in percentage points (0-100) throughout. The statutory
// schedule is the 2005 Permanent Disability Rating Schedule (PDRS).
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Variant is the occupational variant letter assigned to an occupational group.
// It encodes the physical demand of the occupation for a given impairment,
// from C (lightest) to J (heaviest).
type Variant string

const (
	VariantC Variant = "C"
	VariantD Variant = "D"
	VariantE Variant = "E"
	VariantF Variant = "F"
	VariantG Variant = "G"
	VariantH Variant = "H"
	VariantI Variant = "I"
	VariantJ Variant = "J"
)

// IsValid reports whether the variant is one of the PDRS letters C through J.
func (v Variant) IsValid() bool {
	switch v {
	case VariantC, VariantD, VariantE, VariantF, VariantG, VariantH, VariantI, VariantJ:
		return true
	default:
		return false
	}
}

// ParseVariant normalises a stored variant value into a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToUpper(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", fmt.Errorf("%w: variant %q is not one of C-J", ErrInvalidReferenceData, s)
	}
	return v, nil
}

// String returns the variant letter
func (v Variant) String() string {
	return string(v)
}

// WorkCategory describes the physical demand class of a variant
func (v Variant) WorkCategory() string {
	switch v {
	case VariantC:
		return "light"
	case VariantJ:
		return "heavy"
	case VariantF:
		return "medium"
	default:
		return "intermediate"
	}
}

// AgeBracket is one of the ten age-at-injury columns of the age adjustment table.
type AgeBracket int

const (
	Age21AndUnder AgeBracket = iota
	Age22To26
	Age27To31
	Age32To36
	Age37To41
	Age42To46
	Age47To51
	Age52To56
	Age57To61
	Age62AndOver
)

// AgeBrackets lists every bracket in column order.
var AgeBrackets = []AgeBracket{
	Age21AndUnder, Age22To26, Age27To31, Age32To36, Age37To41,
	Age42To46, Age47To51, Age52To56, Age57To61, Age62AndOver,
}

var ageBracketColumns = [...]string{
	"age_21_and_under",
	"age_22_to_26",
	"age_27_to_31",
	"age_32_to_36",
	"age_37_to_41",
	"age_42_to_46",
	"age_47_to_51",
	"age_52_to_56",
	"age_57_to_61",
	"age_62_and_over",
}

// ErrInvalidAgeBracket is returned for bracket values outside the table.
var ErrInvalidAgeBracket = errors.New("invalid age bracket")

// BracketForAge maps an age at injury to its table bracket.
func BracketForAge(age int) AgeBracket {
	switch {
	case age <= 21:
		return Age21AndUnder
	case age <= 26:
		return Age22To26
	case age <= 31:
		return Age27To31
	case age <= 36:
		return Age32To36
	case age <= 41:
		return Age37To41
	case age <= 46:
		return Age42To46
	case age <= 51:
		return Age47To51
	case age <= 56:
		return Age52To56
	case age <= 61:
		return Age57To61
	default:
		return Age62AndOver
	}
}

// IsValid reports whether b is a known bracket
func (b AgeBracket) IsValid() bool {
	return b >= Age21AndUnder && b <= Age62AndOver
}

// Column returns the age_adjustments column holding factors for the bracket.
// Column names are part of the persisted schema and must not change.
func (b AgeBracket) Column() (string, error) {
	if !b.IsValid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidAgeBracket, int(b))
	}
	return ageBracketColumns[b], nil
}

func (b AgeBracket) String() string {
	col, err := b.Column()
	if err != nil {
		return fmt.Sprintf("AgeBracket(%d)", int(b))
	}
	return strings.TrimPrefix(col, "age_")
}

// OccupationMatchMode selects how occupation titles are matched against the
// occupations table.
type OccupationMatchMode string

const (
	// MatchSubstring is a case-insensitive substring match; the first row in
	// table order wins. A short title such as "Clerk" may match several groups.
	MatchSubstring OccupationMatchMode = "substring"
	// MatchExact requires a case-insensitive exact title and falls back to
	// MatchSubstring when no exact row exists.
	MatchExact OccupationMatchMode = "exact"
)

// IsValid reports whether the mode is supported
func (m OccupationMatchMode) IsValid() bool {
	return m == MatchSubstring || m == MatchExact
}

// AgeAdjustmentSource selects where the age adjustment comes from.
type AgeAdjustmentSource string

const (
	// AgeSourceTable reads the age_adjustments table and falls back to the
	// fixed bands when no row exists for the rounded WPI.
	AgeSourceTable AgeAdjustmentSource = "table"
	// AgeSourceBands always uses the fixed bands.
	AgeSourceBands AgeAdjustmentSource = "bands"
)

// IsValid reports whether the source is supported
func (s AgeAdjustmentSource) IsValid() bool {
	return s == AgeSourceTable || s == AgeSourceBands
}
