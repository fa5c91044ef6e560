package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateSMA calculates the Simple Moving Average of the last `length` values.
// Returns nil if there is insufficient data.
func CalculateSMA(values []float64, length int) *float64 {
	if length <= 0 || len(values) < length {
		return nil
	}

	sma := talib.Sma(values, length)
	result := sma[len(sma)-1]
	return &result
}

// CalculateSMAOfSMA smooths the series twice with the same period and returns the
// latest single and double smoothed values.
// Needs at least 2*length-1 values.
func CalculateSMAOfSMA(values []float64, length int) (sma float64, smaOfSMA float64, ok bool) {
	if length <= 0 || len(values) < 2*length-1 {
		return 0, 0, false
	}

	first := talib.Sma(values, length)
	// talib pads the lookback period with zeros; drop it before smoothing again
	second := talib.Sma(first[length-1:], length)

	return first[len(first)-1], second[len(second)-1], true
}

// CalculateRegressionSlope returns the least-squares slope per bar of the last
// `length` values.
func CalculateRegressionSlope(values []float64, length int) float64 {
	if length < 2 || len(values) < length {
		return 0
	}

	slope := talib.LinearRegSlope(values[len(values)-length:], length)
	return slope[len(slope)-1]
}
