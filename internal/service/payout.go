package service

import (
	"github.com/shopspring/decimal"
)

// Statutory payout limits
var (
	maxWeeklyEarnings = decimal.RequireFromString("435.00")
	maxPDWeeklyRate   = decimal.RequireFromString("290.00")
	maxLifeWeeklyRate = decimal.RequireFromString("85.00")
	payoutPerPercent  = decimal.NewFromInt(620)
	lifePensionFactor = decimal.RequireFromString("0.195")
)

// Payout is the monetary outcome of a rating, rounded to cents
type Payout struct {
	WeeklyEarnings decimal.Decimal
	PDWeeklyRate   decimal.Decimal
	TotalPDPayout  decimal.Decimal
	LifeWeeklyRate decimal.Decimal
}

// DerivePayout computes weekly rates and the total payout. Missing or zero
// earnings are treated as the statutory maximum.
func DerivePayout(weeklyEarnings float64, finalPercent decimal.Decimal) Payout {
	earnings := decimal.NewFromFloat(weeklyEarnings)
	if !earnings.IsPositive() {
		earnings = maxWeeklyEarnings
	}
	actual := decimal.Min(earnings, maxWeeklyEarnings)

	pdWeekly := decimal.Min(actual.Mul(decimal.NewFromInt(2)).Div(decimal.NewFromInt(3)), maxPDWeeklyRate)
	lifeWeekly := decimal.Min(actual.Mul(lifePensionFactor), maxLifeWeeklyRate)

	return Payout{
		WeeklyEarnings: actual.Round(2),
		PDWeeklyRate:   pdWeekly.Round(2),
		TotalPDPayout:  finalPercent.Mul(payoutPerPercent).Round(2),
		LifeWeeklyRate: lifeWeekly.Round(2),
	}
}
