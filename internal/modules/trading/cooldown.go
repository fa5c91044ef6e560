package trading

import (
	"math"
	"time"

	"github.com/aristath/meridian/internal/domain"
)

// Tax-loss harvesting season: a material losing sale late in the year blocks
// re-buying for the wash-sale window
const (
	taxLossPLPerc       = -5.0
	taxLossNotionalPerc = 0.005
	taxLossSeasonStart  = time.October
	washSaleDays        = 31
)

// CooldownDays scales the maximum cooldown by the order multiplier, at least one day
func CooldownDays(multiplier float64, maxDays int) int {
	days := int(math.Ceil(math.Min(multiplier*float64(maxDays), float64(maxDays))))
	if days < 1 {
		return 1
	}
	return days
}

// Fill is a reconciled execution the cooldown dates derive from
type Fill struct {
	Side       domain.OrderSide
	Day        time.Time
	Multiplier float64
	PLPerc     float64
	Notional   float64
	Equity     float64
}

// TaxLossSale reports whether the fill is a material loss inside the harvesting season
func (f Fill) TaxLossSale() bool {
	if f.Side != domain.OrderSideSell || f.PLPerc >= taxLossPLPerc {
		return false
	}
	if f.Equity <= 0 || f.Notional < f.Equity*taxLossNotionalPerc {
		return false
	}
	return f.Day.Month() >= taxLossSeasonStart
}

// NextDates returns the first days the symbol may be bought and sold again.
// The side just traded cools down, the opposite side waits one day.
func NextDates(f Fill, maxDays int) (nextBuy, nextSell time.Time) {
	day := domain.TruncateDay(f.Day)
	cooldown := CooldownDays(f.Multiplier, maxDays)

	if f.Side == domain.OrderSideBuy {
		return day.AddDate(0, 0, cooldown), day.AddDate(0, 0, 1)
	}

	nextBuy = day.AddDate(0, 0, 1)
	nextSell = day.AddDate(0, 0, cooldown)
	if f.TaxLossSale() {
		washSale := day.AddDate(0, 0, washSaleDays)
		if washSale.After(nextBuy) {
			nextBuy = washSale
		}
	}
	return nextBuy, nextSell
}
