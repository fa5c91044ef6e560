package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/meridian/internal/domain"
)

func TestCooldownDays(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
		want       int
	}{
		{"full multiplier", 1, 14},
		{"half rounds up", 0.5, 7},
		{"fraction rounds up", 0.3, 5},
		{"above one is capped", 1.8, 14},
		{"zero is one day", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CooldownDays(tt.multiplier, 14))
		})
	}
}

func TestNextDates_Buy(t *testing.T) {
	day := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)

	nextBuy, nextSell := NextDates(Fill{Side: domain.OrderSideBuy, Day: day, Multiplier: 0.5}, 14)
	assert.Equal(t, day.AddDate(0, 0, 7), nextBuy)
	assert.Equal(t, day.AddDate(0, 0, 1), nextSell)
}

func TestNextDates_Sell(t *testing.T) {
	day := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)

	nextBuy, nextSell := NextDates(Fill{Side: domain.OrderSideSell, Day: day, Multiplier: 1, PLPerc: -20, Notional: 5000, Equity: 100_000}, 14)
	assert.Equal(t, day.AddDate(0, 0, 1), nextBuy, "losses outside the season do not extend")
	assert.Equal(t, day.AddDate(0, 0, 14), nextSell)
}

func TestNextDates_TaxLossSeason(t *testing.T) {
	day := time.Date(2024, 11, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		fill     Fill
		extended bool
	}{
		{"material loss", Fill{PLPerc: -8, Notional: 1000, Equity: 100_000}, true},
		{"small loss", Fill{PLPerc: -4, Notional: 1000, Equity: 100_000}, false},
		{"immaterial size", Fill{PLPerc: -8, Notional: 400, Equity: 100_000}, false},
		{"gain", Fill{PLPerc: 12, Notional: 5000, Equity: 100_000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fill
			f.Side = domain.OrderSideSell
			f.Day = day
			f.Multiplier = 1

			nextBuy, _ := NextDates(f, 14)
			if tt.extended {
				assert.Equal(t, day.AddDate(0, 0, 31), nextBuy)
			} else {
				assert.Equal(t, day.AddDate(0, 0, 1), nextBuy)
			}
		})
	}
}

func TestCooldown_Blocks(t *testing.T) {
	day := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	c := Cooldown{NextBuy: day.AddDate(0, 0, 1), NextSell: day}

	assert.True(t, c.BlocksBuy(day))
	assert.False(t, c.BlocksSell(day))
	assert.False(t, Cooldown{}.BlocksBuy(day))
}
