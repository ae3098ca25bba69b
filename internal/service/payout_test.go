package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePayout(t *testing.T) {
	tests := []struct {
		name     string
		earnings float64
		final    string
		weekly   string
		pd       string
		total    string
		life     string
	}{
		{"above maximum", 1000, "48.2", "435", "290", "29884", "84.83"},
		{"zero means maximum", 0, "48.2", "435", "290", "29884", "84.83"},
		{"below maximum", 300, "10", "300", "200", "6200", "58.5"},
		{"repeating third", 100, "1", "100", "66.67", "620", "19.5"},
		{"zero rating", 500, "0", "435", "290", "0", "84.83"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DerivePayout(tt.earnings, dec(tt.final))

			assertDecimal(t, tt.weekly, p.WeeklyEarnings)
			assertDecimal(t, tt.pd, p.PDWeeklyRate)
			assertDecimal(t, tt.total, p.TotalPDPayout)
			assertDecimal(t, tt.life, p.LifeWeeklyRate)
		})
	}
}

func TestDerivePayout_RatesNeverExceedLimits(t *testing.T) {
	for _, earnings := range []float64{435, 436, 5000, 1e6} {
		p := DerivePayout(earnings, dec("100"))
		assert.True(t, p.PDWeeklyRate.LessThanOrEqual(dec("290")))
		assert.True(t, p.LifeWeeklyRate.LessThanOrEqual(dec("85")))
		assert.True(t, p.WeeklyEarnings.LessThanOrEqual(dec("435")))
	}
}
