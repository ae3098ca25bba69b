package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pdr-rating-server/internal/domain"
)

// Statutory constants of the 2005 PDRS, in percentage points
var (
	wpiMultiplier    = decimal.RequireFromString("1.4")
	ratingCap        = decimal.NewFromInt(62)
	painAddOn        = decimal.NewFromInt(3)
	minAgeAdjustment = decimal.NewFromInt(-10)
	maxAgeAdjustment = decimal.NewFromInt(60)
	hundred          = decimal.NewFromInt(100)
	stepCeiling      = decimal.NewFromInt(50)
)

// ratingStep maps every rating at or below threshold to value
type ratingStep struct {
	threshold decimal.Decimal
	value     decimal.Decimal
}

func steps(values ...int64) []ratingStep {
	out := make([]ratingStep, len(values))
	for i, v := range values {
		out[i] = ratingStep{
			threshold: decimal.NewFromInt(int64(5 * (i + 1))),
			value:     decimal.NewFromInt(v),
		}
	}
	return out
}

// Only the lightest and heaviest variants carry step tables. Every other
// variant leaves the rating unchanged.
var occupationalSteps = map[domain.Variant][]ratingStep{
	domain.VariantC: steps(3, 7, 11, 15, 18, 23, 27, 32, 36, 41),
	domain.VariantJ: steps(9, 16, 23, 29, 36, 41, 47, 52, 58, 62),
}

// BaseRating applies the statutory multiplier to a whole person impairment
func BaseRating(wpi decimal.Decimal) decimal.Decimal {
	return wpi.Mul(wpiMultiplier)
}

// OccupationalAdjustment maps a base rating through the variant's step table.
// Thresholds are tested in ascending order and the first one the rating does
// not exceed wins. Ratings above 50 pass through.
func OccupationalAdjustment(rating decimal.Decimal, variant domain.Variant) decimal.Decimal {
	table, ok := occupationalSteps[variant]
	if !ok || rating.GreaterThan(stepCeiling) {
		return rating
	}
	for _, s := range table {
		if rating.LessThanOrEqual(s.threshold) {
			return s.value
		}
	}
	return rating
}

// AgeBandAdjustment is the fixed age adjustment used when no table row applies
func AgeBandAdjustment(age int) decimal.Decimal {
	var points int64
	switch {
	case age < 30:
		points = -10
	case age < 35:
		points = 0
	case age < 40:
		points = 10
	case age < 45:
		points = 20
	case age < 50:
		points = 30
	case age < 55:
		points = 40
	case age < 60:
		points = 50
	default:
		points = 60
	}
	return decimal.NewFromInt(points)
}

// ClampAgeAdjustment bounds an adjustment to [-10, +60]
func ClampAgeAdjustment(adj decimal.Decimal) decimal.Decimal {
	return decimal.Max(minAgeAdjustment, decimal.Min(maxAgeAdjustment, adj))
}

// FinalRating applies the age adjustment, the zero floor, the cap and the pain
// add-on, in that order, and rounds to 2 decimals. Pain is added after the cap
// so a rating of 65 is reachable.
func FinalRating(occupational, ageAdjustment decimal.Decimal, pain bool) decimal.Decimal {
	rating := occupational.Add(ageAdjustment)
	if rating.IsNegative() {
		rating = decimal.Zero
	}
	rating = decimal.Min(rating, ratingCap)
	if pain {
		rating = rating.Add(painAddOn)
	}
	return rating.Round(2)
}

// Contribution is the industrial share of a rating
func Contribution(rating decimal.Decimal, industrialPercent float64) decimal.Decimal {
	return rating.Mul(decimal.NewFromFloat(industrialPercent)).Div(hundred)
}

// CombineRatings merges ratings with the combined values formula
// c = c + r*(1 - c/100), largest first. Only the result is rounded.
func CombineRatings(ratings []decimal.Decimal) decimal.Decimal {
	if len(ratings) == 0 {
		return decimal.Zero
	}

	sorted := make([]decimal.Decimal, len(ratings))
	copy(sorted, ratings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].GreaterThan(sorted[j])
	})

	combined := sorted[0]
	for _, r := range sorted[1:] {
		remaining := decimal.NewFromInt(1).Sub(combined.Div(hundred))
		combined = combined.Add(r.Mul(remaining))
	}
	return combined.Round(2)
}
