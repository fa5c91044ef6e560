package formulas

import "math"

const (
	// ALMAOffset shifts the Gaussian peak towards the newest bar
	ALMAOffset = 0.85
	// ALMASigma controls how quickly weights decay with age
	ALMASigma = 6.0
)

// ALMAWeights returns the Gaussian bar weights used by ALMA and the weighted RSI.
// Index 0 is the most recent bar.
//
// Formula: w_i = exp(-((i + 1 - offset)²) / sigma²)
func ALMAWeights(length int) []float64 {
	weights := make([]float64, length)
	for i := 0; i < length; i++ {
		d := float64(i) + 1 - ALMAOffset
		weights[i] = math.Exp(-(d * d) / (ALMASigma * ALMASigma))
	}
	return weights
}

// CalculateALMA computes the Arnaud Legoux moving average over the last `length`
// values of a series ordered oldest first. Returns 0 when the series is too short.
func CalculateALMA(values []float64, length int) float64 {
	if length <= 0 || len(values) < length {
		return 0
	}

	weights := ALMAWeights(length)
	newest := len(values) - 1

	var sum, norm float64
	for i, w := range weights {
		sum += w * values[newest-i]
		norm += w
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// CalculateWeightedRSI computes an RSI over the last `length` changes of a series
// ordered oldest first, weighting each change by its bar position (ALMA weights,
// newest change heaviest).
//
// Returns 50 when there is no movement at all and 100 when there are no losses.
func CalculateWeightedRSI(values []float64, length int) float64 {
	if length <= 0 || len(values) < length+1 {
		return 50
	}

	weights := ALMAWeights(length)
	newest := len(values) - 1

	var gains, losses, norm float64
	for i, w := range weights {
		change := values[newest-i] - values[newest-i-1]
		if change > 0 {
			gains += w * change
		} else {
			losses -= w * change
		}
		norm += w
	}
	gains /= norm
	losses /= norm

	if gains == 0 && losses == 0 {
		return 50
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// CalculateStochastic returns where price sits within the [low, high] range in percent.
// A degenerate range yields 0.
func CalculateStochastic(price, low, high float64) float64 {
	if high-low == 0 {
		return 0
	}
	return (price - low) * 100 / (high - low)
}
