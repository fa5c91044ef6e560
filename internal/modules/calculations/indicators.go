// Package calculations derives the per-bar technical metrics.
package calculations

import (
	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/pkg/formulas"
)

// Window lengths of the metric computation
const (
	BarLength        = 120
	ShortBand        = 40
	MediumBand       = 80
	LongBand         = 120
	BandDeviations   = 2.0
	AlmaLength       = 10
	OscillatorLength = 20
	RegressionLength = 20
	MonthLength      = 20
	WeekLength       = 5
)

// ComputeMetric derives the metric of the last bar in window.
// The window is ordered oldest first and must hold at least BarLength bars;
// only the trailing BarLength bars are used. ok is false for a short window.
func ComputeMetric(window []domain.PriceBar) (metric domain.BarMetric, ok bool) {
	if len(window) < BarLength {
		return metric, false
	}
	window = window[len(window)-BarLength:]
	last := window[len(window)-1]

	prices := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i, b := range window {
		prices[i] = b.Price()
		volumes[i] = b.Volume
	}
	price := prices[len(prices)-1]
	alma := formulas.CalculateALMA(prices, AlmaLength)

	metric = domain.BarMetric{
		BarID:  last.ID,
		Symbol: last.Symbol,
		Day:    last.Day,
	}

	short := formulas.CalculateBollingerBands(prices, ShortBand, BandDeviations)
	medium := formulas.CalculateBollingerBands(prices, MediumBand, BandDeviations)
	long := formulas.CalculateBollingerBands(prices, LongBand, BandDeviations)

	metric.AlmaSMA1 = bandAngle(alma, short)
	metric.AlmaSMA2 = bandAngle(alma, medium)
	metric.AlmaSMA3 = bandAngle(alma, long)
	metric.PriceSMA1 = bandAngle(price, short)
	metric.PriceSMA2 = bandAngle(price, medium)
	metric.PriceSMA3 = bandAngle(price, long)

	if sma, smaOfSMA, ok := formulas.CalculateSMAOfSMA(prices, ShortBand); ok {
		metric.SMASMA = formulas.Angle(sma-smaOfSMA, short.Width())
	}

	slope := formulas.CalculateRegressionSlope(prices, RegressionLength)
	metric.RegressionAngle = formulas.Angle(slope*RegressionLength, short.Width())

	metric.RSI = formulas.CalculateWeightedRSI(prices, OscillatorLength)
	metric.Stochastic = stochastic(window[len(window)-OscillatorLength:], price)
	metric.WeekTrend, metric.WeekVariance = weekTrend(prices)
	metric.MonthTrend = formulas.PercentChange(prices[len(prices)-1-MonthLength], price)

	volumeAlma := formulas.CalculateALMA(volumes, AlmaLength)
	metric.VolAlmaSMA = bandAngle(volumeAlma, formulas.CalculateBollingerBands(volumes, ShortBand, BandDeviations))

	metric.ProfitLossPerc = formulas.PercentChange(prices[0], price)

	return metric, true
}

// bandAngle places value relative to the band middle, scaled by the band width
func bandAngle(value float64, band *formulas.BollingerBands) float64 {
	if band == nil {
		return 0
	}
	return formulas.Angle(value-band.Middle, band.Width())
}

func stochastic(bars []domain.PriceBar, price float64) float64 {
	low, high := bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		if b.Low < low {
			low = b.Low
		}
		if b.High > high {
			high = b.High
		}
	}
	return formulas.CalculateStochastic(price, low, high)
}

// weekTrend splits prices into WeekLength buckets and returns the change of the
// newest bucket and the variance of the changes across buckets.
func weekTrend(prices []float64) (trend, variance float64) {
	buckets := len(prices) / WeekLength
	if buckets == 0 {
		return 0, 0
	}

	offset := len(prices) - buckets*WeekLength
	changes := make([]float64, buckets)
	for i := 0; i < buckets; i++ {
		start := offset + i*WeekLength
		changes[i] = formulas.PercentChange(prices[start], prices[start+WeekLength-1])
	}
	return changes[len(changes)-1], formulas.PopVariance(changes)
}
