package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Request Models

// Occupation describes the injured worker's job as extracted from the report
type Occupation struct {
	Title    string `json:"title" binding:"required"`
	Duties   string `json:"duties,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Demographics holds the patient data the rating depends on. Age at injury is
// always derived from the two dates and never carried separately.
type Demographics struct {
	Name           string     `json:"name,omitempty"`
	DateOfBirth    string     `json:"dateOfBirth" binding:"required"`
	DateOfInjury   string     `json:"dateOfInjury" binding:"required"`
	Occupation     Occupation `json:"occupation" binding:"required"`
	WeeklyEarnings float64    `json:"weeklyEarnings"`
}

// BodyPart identifies the rated body part using its PDRS impairment code
type BodyPart struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name"`
	Section string `json:"section"`
	Type    string `json:"type"`
}

// PainAdjustment records whether a pain add-on applies
type PainAdjustment struct {
	Add         bool   `json:"add"`
	Description string `json:"description,omitempty"`
}

// ADLAdjustment records impact on activities of daily living
type ADLAdjustment struct {
	Impacted    bool   `json:"impacted"`
	Description string `json:"description,omitempty"`
}

// Adjustments groups the per-impairment add-ons
type Adjustments struct {
	Pain PainAdjustment `json:"pain"`
	ADL  ADLAdjustment  `json:"adl"`
}

// Apportionment splits causation between industrial and non-industrial causes.
// The two shares are percentages that sum to 100.
type Apportionment struct {
	Industrial    float64 `json:"industrial"`
	NonIndustrial float64 `json:"nonIndustrial"`
	Description   string  `json:"description,omitempty"`
}

// FutureMedical records whether future medical care is required. It decodes
// from either a JSON boolean or the {"required", "description"} object emitted
// by report extraction.
type FutureMedical struct {
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts a boolean, null or an object
func (f *FutureMedical) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = FutureMedical{}
		return nil
	}

	if trimmed[0] != '{' {
		var required bool
		if err := json.Unmarshal(trimmed, &required); err != nil {
			return fmt.Errorf("futureMedial must be a boolean or object: %w", err)
		}
		*f = FutureMedical{Required: required}
		return nil
	}

	type plain FutureMedical
	var obj plain
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*f = FutureMedical(obj)
	return nil
}

// Impairment is one rated body part. WPI is the unadjusted whole person
// impairment exactly as reported, before any statutory multiplier.
type Impairment struct {
	BodyPart      BodyPart      `json:"bodyPart" binding:"required"`
	WPI           float64       `json:"wpi"`
	Adjustments   Adjustments   `json:"adjustments"`
	Apportionment Apportionment `json:"apportionment"`
	FutureMedical FutureMedical `json:"futureMedial"`
}

// RatingInput is the full calculation request. It is never mutated once built.
type RatingInput struct {
	Demographics Demographics `json:"demographics" binding:"required"`
	Impairments  []Impairment `json:"impairments"`
}

// MedicalInput is a RatingInput tagged with the name of the source report.
// Name is what rating history records, on every entry point.
type MedicalInput struct {
	Name string `json:"name"`
	RatingInput
}

// Response Models

// Section is the rated outcome for a single impairment
type Section struct {
	Code                string        `json:"code"`
	Name                string        `json:"name"`
	Section             string        `json:"section"`
	Type                string        `json:"type"`
	Description         string        `json:"description"`
	WPI                 float64       `json:"wpi"`
	BaseRating          float64       `json:"base_rating"`
	OccupationalGroup   int           `json:"occupational_group"`
	OccupationalVariant Variant       `json:"occupational_variant"`
	OccupationalRating  float64       `json:"occupational_rating"`
	Age                 int           `json:"age"`
	AgeAdjustment       float64       `json:"age_adjustment"`
	PainAdd             bool          `json:"pain_add"`
	ADLImpact           bool          `json:"adl_impact"`
	Rating              float64       `json:"rating"`
	Contribution        float64       `json:"contribution"`
	FutureMedical       bool          `json:"future_medical"`
	Apportionment       Apportionment `json:"apportionment"`
}

// RatingGroup is one apportionment bucket with its combined total
type RatingGroup struct {
	Sections []Section `json:"sections"`
	Total    float64   `json:"total"`
}

// RatingResult is the immutable output of a rating calculation
type RatingResult struct {
	NoApportionment   RatingGroup `json:"no_apportionment"`
	WithApportionment RatingGroup `json:"with_apportionment"`
	WeeklyEarnings    float64     `json:"weekly_earnings"`
	PDWeeklyRate      float64     `json:"pd_weekly_rate"`
	TotalPDPayout     float64     `json:"total_pd_payout"`
	LifeWeeklyRate    float64     `json:"life_weekly_rate"`
}

// FinalPercent returns the higher of the two combined totals
func (r *RatingResult) FinalPercent() float64 {
	if r.WithApportionment.Total > r.NoApportionment.Total {
		return r.WithApportionment.Total
	}
	return r.NoApportionment.Total
}

// Reference Data Models

// OccupationRecord maps an occupation title to its occupational group
type OccupationRecord struct {
	GroupNumber     int    `json:"group_number"`
	OccupationTitle string `json:"occupation_title"`
	Industry        string `json:"industry,omitempty"`
}

// VariantRecord resolves the variant letter for an impairment in a group
type VariantRecord struct {
	BodyPart          string  `json:"body_part"`
	OccupationalGroup int     `json:"occupational_group"`
	ImpairmentCode    string  `json:"impairment_code"`
	Variant           Variant `json:"variant"`
}

// ImpairmentDescription describes a PDRS impairment code
type ImpairmentDescription struct {
	Code        string `json:"code"`
	Section     string `json:"section"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AgeAdjustmentRecord is one row of the age adjustment table, keyed by the
// rounded WPI percentage.
type AgeAdjustmentRecord struct {
	WPIPercent int                    `json:"wpi_percent"`
	Factors    map[AgeBracket]float64 `json:"-"`
}

// MarshalJSON emits factors keyed by their column name
func (r AgeAdjustmentRecord) MarshalJSON() ([]byte, error) {
	factors := make(map[string]float64, len(r.Factors))
	for bracket, factor := range r.Factors {
		col, err := bracket.Column()
		if err != nil {
			return nil, err
		}
		factors[col] = factor
	}
	return json.Marshal(struct {
		WPIPercent int                `json:"wpi_percent"`
		Factors    map[string]float64 `json:"factors"`
	}{r.WPIPercent, factors})
}

// UnmarshalJSON reads the form written by MarshalJSON
func (r *AgeAdjustmentRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		WPIPercent int                `json:"wpi_percent"`
		Factors    map[string]float64 `json:"factors"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	byColumn := make(map[string]AgeBracket, len(AgeBrackets))
	for _, b := range AgeBrackets {
		col, _ := b.Column()
		byColumn[col] = b
	}

	factors := make(map[AgeBracket]float64, len(raw.Factors))
	for col, factor := range raw.Factors {
		b, ok := byColumn[col]
		if !ok {
			return fmt.Errorf("%w: unknown age column %q", ErrInvalidReferenceData, col)
		}
		factors[b] = factor
	}

	r.WPIPercent = raw.WPIPercent
	r.Factors = factors
	return nil
}

// OccupationVariant is the resolved occupational adjustment for an occupation
type OccupationVariant struct {
	Title       string  `json:"title"`
	GroupNumber int     `json:"group_number"`
	Variant     Variant `json:"variant"`
}

// Date handling

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses a report date in YYYY-MM-DD or RFC 3339 form
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, NewValidationError(field, "date is required", value)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewValidationError(field, "date must be YYYY-MM-DD", value)
}

// AgeAtInjury returns the whole years between birth and injury
func (d Demographics) AgeAtInjury() (int, error) {
	dob, err := ParseDate("demographics.dateOfBirth", d.DateOfBirth)
	if err != nil {
		return 0, err
	}
	doi, err := ParseDate("demographics.dateOfInjury", d.DateOfInjury)
	if err != nil {
		return 0, err
	}
	if doi.Before(dob) {
		return 0, NewValidationError("demographics.dateOfInjury", "date of injury precedes date of birth", d.DateOfInjury)
	}
	return wholeYears(dob, doi), nil
}

func wholeYears(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}
