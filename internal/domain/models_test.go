package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *RatingInput {
	return &RatingInput{
		Demographics: Demographics{
			DateOfBirth:    "1980-01-01",
			DateOfInjury:   "2020-01-01",
			Occupation:     Occupation{Title: "Registered Nurse"},
			WeeklyEarnings: 1000,
		},
		Impairments: []Impairment{
			{
				BodyPart:      BodyPart{Code: "15.03.01.00", Name: "Lumbar"},
				WPI:           18,
				Adjustments:   Adjustments{Pain: PainAdjustment{Add: true}},
				Apportionment: Apportionment{Industrial: 100},
			},
		},
	}
}

func TestFutureMedical_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want FutureMedical
	}{
		{"bool true", `true`, FutureMedical{Required: true}},
		{"bool false", `false`, FutureMedical{}},
		{"null", `null`, FutureMedical{}},
		{"object", `{"required": true, "description": "Physical therapy"}`, FutureMedical{Required: true, Description: "Physical therapy"}},
		{"object without required", `{"description": "none"}`, FutureMedical{Description: "none"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var imp Impairment
			err := json.Unmarshal([]byte(`{"bodyPart": {"code": "1"}, "futureMedial": `+tt.json+`}`), &imp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, imp.FutureMedical)
		})
	}

	var fm FutureMedical
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &fm))
}

func TestDemographics_AgeAtInjury(t *testing.T) {
	tests := []struct {
		name string
		dob  string
		doi  string
		want int
	}{
		{"exact birthday", "1980-01-01", "2020-01-01", 40},
		{"day before birthday", "1980-06-15", "2020-06-14", 39},
		{"on birthday", "1980-06-15", "2020-06-15", 40},
		{"month before birthday", "1990-12-01", "2020-11-30", 29},
		{"same day", "2000-03-03", "2000-03-03", 0},
		{"rfc3339 accepted", "1980-01-01T00:00:00Z", "2020-01-01T08:30:00Z", 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Demographics{DateOfBirth: tt.dob, DateOfInjury: tt.doi}
			got, err := d.AgeAtInjury()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDemographics_AgeAtInjury_Errors(t *testing.T) {
	tests := []struct {
		name  string
		dob   string
		doi   string
		field string
	}{
		{"missing dob", "", "2020-01-01", "demographics.dateOfBirth"},
		{"bad dob", "01/01/1980", "2020-01-01", "demographics.dateOfBirth"},
		{"bad doi", "1980-01-01", "2020-13-01", "demographics.dateOfInjury"},
		{"injury before birth", "2000-01-01", "1999-12-31", "demographics.dateOfInjury"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Demographics{DateOfBirth: tt.dob, DateOfInjury: tt.doi}.AgeAtInjury()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestRatingInput_Validate(t *testing.T) {
	require.NoError(t, validInput().Validate())

	tests := []struct {
		name   string
		mutate func(in *RatingInput)
		field  string
	}{
		{"blank title", func(in *RatingInput) { in.Demographics.Occupation.Title = "  " }, "demographics.occupation.title"},
		{"negative earnings", func(in *RatingInput) { in.Demographics.WeeklyEarnings = -1 }, "demographics.weeklyEarnings"},
		{"missing code", func(in *RatingInput) { in.Impairments[0].BodyPart.Code = "" }, "impairments[0].bodyPart.code"},
		{"wpi above 100", func(in *RatingInput) { in.Impairments[0].WPI = 100.5 }, "impairments[0].wpi"},
		{"negative wpi", func(in *RatingInput) { in.Impairments[0].WPI = -1 }, "impairments[0].wpi"},
		{"industrial out of range", func(in *RatingInput) {
			in.Impairments[0].Apportionment = Apportionment{Industrial: 120, NonIndustrial: -20}
		}, "impairments[0].apportionment.industrial"},
		{"shares do not sum", func(in *RatingInput) {
			in.Impairments[0].Apportionment = Apportionment{Industrial: 60, NonIndustrial: 30}
		}, "impairments[0].apportionment"},
		{"bad date", func(in *RatingInput) { in.Demographics.DateOfInjury = "yesterday" }, "demographics.dateOfInjury"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)

			err := in.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestRatingInput_Validate_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *RatingInput)
	}{
		{"zero earnings", func(in *RatingInput) { in.Demographics.WeeklyEarnings = 0 }},
		{"no impairments", func(in *RatingInput) { in.Impairments = nil }},
		{"rounded shares", func(in *RatingInput) {
			in.Impairments[0].Apportionment = Apportionment{Industrial: 33.33, NonIndustrial: 66.67}
		}},
		{"unset apportionment", func(in *RatingInput) { in.Impairments[0].Apportionment = Apportionment{} }},
		{"boundary wpi", func(in *RatingInput) { in.Impairments[0].WPI = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			assert.NoError(t, in.Validate())
		})
	}

	var nilInput *RatingInput
	assert.ErrorIs(t, nilInput.Validate(), ErrInvalidInput)
}

func TestApportionment_Normalized(t *testing.T) {
	assert.Equal(t, Apportionment{Industrial: 100}, Apportionment{}.Normalized())

	a := Apportionment{Industrial: 70, NonIndustrial: 30, Description: "prior injury"}
	assert.Equal(t, a, a.Normalized())
}

func TestRatingResult_FinalPercent(t *testing.T) {
	r := &RatingResult{
		NoApportionment:   RatingGroup{Total: 20},
		WithApportionment: RatingGroup{Total: 35.5},
	}
	assert.Equal(t, 35.5, r.FinalPercent())

	r.WithApportionment.Total = 0
	assert.Equal(t, 20.0, r.FinalPercent())
}

func TestAgeAdjustmentRecord_JSON(t *testing.T) {
	rec := AgeAdjustmentRecord{WPIPercent: 20, Factors: map[AgeBracket]float64{Age37To41: 1.5}}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"wpi_percent": 20, "factors": {"age_37_to_41": 1.5}}`, string(data))

	var decoded AgeAdjustmentRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec, decoded)

	assert.ErrorIs(t, json.Unmarshal([]byte(`{"factors": {"age_x": 1}}`), &decoded), ErrInvalidReferenceData)
}

func TestMedicalInput_UnmarshalJSON(t *testing.T) {
	raw := `{"name": "report-7.pdf", "demographics": {"name": "Jane Doe", "occupation": {"title": "Nurse"}}, "impairments": []}`

	var input MedicalInput
	require.NoError(t, json.Unmarshal([]byte(raw), &input))
	assert.Equal(t, "report-7.pdf", input.Name)
	assert.Equal(t, "Jane Doe", input.Demographics.Name)
	assert.Equal(t, "Nurse", input.Demographics.Occupation.Title)
}
