package testing

import (
	"math"
	"time"

	"github.com/aristath/meridian/internal/domain"
)

// FixtureStart is the first bar day used by the bar fixtures
var FixtureStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// NewBarSeries returns n consecutive daily bars whose Price() equals priceAt(i)
func NewBarSeries(symbol string, start time.Time, n int, priceAt func(i int) float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		p := priceAt(i)
		day := domain.TruncateDay(start.AddDate(0, 0, i))
		bars = append(bars, domain.PriceBar{
			Symbol:  symbol,
			Day:     day,
			TimeUTC: day.UnixMilli(),
			Open:    p,
			High:    p * 1.01,
			Low:     p * 0.99,
			Close:   p,
			Volume:  1000 + float64(i%7)*100,
		})
	}
	return bars
}

// Rising is a linear uptrend starting at base
func Rising(base, step float64) func(int) float64 {
	return func(i int) float64 { return base + step*float64(i) }
}

// Wave oscillates around base with the given amplitude and period
func Wave(base, amplitude float64, period int) func(int) float64 {
	return func(i int) float64 {
		return base + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
}

// HealthyFundamentals passes every eligibility cutoff
func HealthyFundamentals() domain.Fundamentals {
	return domain.Fundamentals{
		EPS:             5,
		PERatio:         18,
		EVEarnings:      15,
		DividendYield:   0.02,
		Earnings:        1_000_000_000,
		MarketCap:       20_000_000_000,
		Debt:            2_000_000_000,
		Cash:            1_000_000_000,
		DebtEquityRatio: 0.5,
		CurrentRatio:    1.5,
	}
}

// NewTickerFixture returns an active ticker with healthy fundamentals
func NewTickerFixture(symbol string) domain.Ticker {
	return domain.Ticker{
		Symbol:       symbol,
		Active:       true,
		Fundamentals: HealthyFundamentals(),
	}
}

// EstablishedBaselines returns a unit-spread distribution for every metric field
func EstablishedBaselines() domain.Baselines {
	b := domain.Baselines{}
	for _, f := range domain.MetricFields {
		b[f] = domain.Distribution{Mean: 0, StdDev: 10, VelocityMean: 0, VelocityStdDev: 2}
	}
	b[domain.FieldStochastic] = domain.Distribution{Mean: 50, StdDev: 20, VelocityStdDev: 5}
	b[domain.FieldRSI] = domain.Distribution{Mean: 50, StdDev: 15, VelocityStdDev: 5}
	return b
}
