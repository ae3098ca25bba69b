package refdata

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdr-rating-server/internal/domain"
)

func TestReadDataset(t *testing.T) {
	input := `{
		"occupations": [{"group_number": 340, "occupation_title": "Registered Nurse", "industry": "Health"}],
		"variants": [{"body_part": "General", "occupational_group": 340, "impairment_code": "DEFAULT", "variant": "F"}],
		"impairments": [{"code": "15.03.01.00", "section": "Spine", "title": "Lumbar", "description": "Lumbar ROM"}],
		"age_adjustments": [{"wpi_percent": 20, "factors": {"age_37_to_41": 1.5, "age_62_and_over": 6}}]
	}`

	ds, err := ReadDataset(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, ds.Occupations, 1)
	assert.Equal(t, 340, ds.Occupations[0].GroupNumber)
	assert.Equal(t, domain.VariantF, ds.Variants[0].Variant)
	require.Len(t, ds.AgeAdjustments, 1)
	assert.Equal(t, 1.5, ds.AgeAdjustments[0].Factors[domain.Age37To41])
	assert.Equal(t, 6.0, ds.AgeAdjustments[0].Factors[domain.Age62AndOver])
}

func TestReadDataset_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad variant", `{"variants": [{"body_part": "General", "occupational_group": 1, "impairment_code": "DEFAULT", "variant": "Z"}]}`},
		{"unknown age column", `{"age_adjustments": [{"wpi_percent": 1, "factors": {"age_99": 1}}]}`},
		{"unknown field", `{"occupation": []}`},
		{"not json", `occupations`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDataset(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDataset_AgeRecordsRoundTrip(t *testing.T) {
	ds := fixtureDataset()
	ds.Variants = nil

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(ds))

	decoded, err := ReadDataset(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds.AgeAdjustments, decoded.AgeAdjustments)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%clerk%", likePattern("Clerk"))
	assert.Equal(t, `%100\% commission\_sales%`, likePattern("100% Commission_Sales"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}
