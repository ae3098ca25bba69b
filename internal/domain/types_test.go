package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		input   string
		want    Variant
		wantErr bool
	}{
		{"C", VariantC, false},
		{" f ", VariantF, false},
		{"j", VariantJ, false},
		{"B", "", true},
		{"K", "", true},
		{"", "", true},
		{"FF", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVariant(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReferenceData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVariant_WorkCategory(t *testing.T) {
	assert.Equal(t, "light", VariantC.WorkCategory())
	assert.Equal(t, "medium", VariantF.WorkCategory())
	assert.Equal(t, "heavy", VariantJ.WorkCategory())
	assert.Equal(t, "intermediate", VariantH.WorkCategory())
}

func TestBracketForAge(t *testing.T) {
	tests := []struct {
		age  int
		want AgeBracket
	}{
		{16, Age21AndUnder},
		{21, Age21AndUnder},
		{22, Age22To26},
		{26, Age22To26},
		{27, Age27To31},
		{36, Age32To36},
		{40, Age37To41},
		{41, Age37To41},
		{42, Age42To46},
		{51, Age47To51},
		{56, Age52To56},
		{61, Age57To61},
		{62, Age62AndOver},
		{90, Age62AndOver},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BracketForAge(tt.age), "age %d", tt.age)
	}
}

func TestAgeBracket_Column(t *testing.T) {
	col, err := Age21AndUnder.Column()
	require.NoError(t, err)
	assert.Equal(t, "age_21_and_under", col)

	col, err = Age62AndOver.Column()
	require.NoError(t, err)
	assert.Equal(t, "age_62_and_over", col)

	_, err = AgeBracket(10).Column()
	assert.ErrorIs(t, err, ErrInvalidAgeBracket)
	_, err = AgeBracket(-1).Column()
	assert.ErrorIs(t, err, ErrInvalidAgeBracket)

	assert.Equal(t, "37_to_41", Age37To41.String())
	assert.Equal(t, "AgeBracket(12)", AgeBracket(12).String())
	assert.Len(t, AgeBrackets, 10)
}

func TestModesAndSources(t *testing.T) {
	assert.True(t, MatchSubstring.IsValid())
	assert.True(t, MatchExact.IsValid())
	assert.False(t, OccupationMatchMode("fuzzy").IsValid())

	assert.True(t, AgeSourceTable.IsValid())
	assert.True(t, AgeSourceBands.IsValid())
	assert.False(t, AgeAdjustmentSource("").IsValid())
}
