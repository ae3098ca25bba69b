package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/refdata"
)

func TestOccupationResolver_Resolve(t *testing.T) {
	resolver := NewOccupationResolver(refdata.NewDatasetStore(testDataset()), domain.MatchSubstring, testLogger())

	tests := []struct {
		title   string
		group   int
		variant domain.Variant
	}{
		{"Registered Nurse", 340, domain.VariantF},
		{"nurse", 340, domain.VariantF},
		{"  Carpenter ", 460, domain.VariantJ},
		{"clerk", 110, domain.VariantC},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), tt.title)
			require.NoError(t, err)
			assert.Equal(t, tt.group, got.GroupNumber)
			assert.Equal(t, tt.variant, got.Variant)
		})
	}
}

func TestOccupationResolver_Errors(t *testing.T) {
	resolver := NewOccupationResolver(refdata.NewDatasetStore(testDataset()), domain.MatchExact, testLogger())

	_, err := resolver.Resolve(context.Background(), "Astronaut")
	assert.ErrorIs(t, err, domain.ErrOccupationNotFound)

	// Group exists but has no variant row
	_, err = resolver.Resolve(context.Background(), "Unmapped Trade")
	assert.ErrorIs(t, err, domain.ErrReferenceDataNotFound)
	assert.NotErrorIs(t, err, domain.ErrOccupationNotFound)
}

func TestOccupationResolver_InvalidModeDefaultsToSubstring(t *testing.T) {
	resolver := NewOccupationResolver(refdata.NewDatasetStore(testDataset()), "fuzzy", testLogger())
	assert.Equal(t, domain.MatchSubstring, resolver.Mode())
}

func TestOccupationMemo_ResolvesOnce(t *testing.T) {
	store := &countingStore{Store: refdata.NewDatasetStore(testDataset())}
	memo := &occupationMemo{
		resolver: NewOccupationResolver(store, domain.MatchSubstring, testLogger()),
		title:    "Carpenter",
	}

	for i := 0; i < 5; i++ {
		got, err := memo.get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.VariantJ, got.Variant)
	}
	assert.Equal(t, int64(1), store.occupationCalls.Load())
	assert.Equal(t, int64(1), store.variantCalls.Load())
}
