package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pdr-rating-server/internal/domain"
)

func sampleInput() *domain.RatingInput {
	return &domain.RatingInput{
		Demographics: domain.Demographics{
			DateOfBirth:  "1980-01-01",
			DateOfInjury: "2020-01-01",
			Occupation:   domain.Occupation{Title: "Registered Nurse"},
		},
	}
}

func sampleResult(total float64) *domain.RatingResult {
	return &domain.RatingResult{
		NoApportionment: domain.RatingGroup{
			Sections: []domain.Section{{Code: "15.03.01.00", WPI: 18, Rating: total, Contribution: total}},
			Total:    total,
		},
		WithApportionment: domain.RatingGroup{Sections: []domain.Section{}},
		WeeklyEarnings:    435,
		PDWeeklyRate:      290,
		TotalPDPayout:     total * 620,
		LifeWeeklyRate:    84.83,
	}
}

func sampleEntry(t *testing.T, fileName string, total float64, createdAt time.Time) *Entry {
	t.Helper()
	e, err := NewEntry(fileName, sampleInput(), sampleResult(total))
	require.NoError(t, err)
	e.CreatedAt = createdAt
	return e
}
