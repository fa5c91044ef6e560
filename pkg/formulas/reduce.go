package formulas

import "math"

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Angle expresses num/denom as a saturating angle in degrees.
//
// Formula: asin(clamp(num/denom, -1, 1)) * 180/π
//
// The result is always in [-90, 90]. A zero denominator yields 0.
func Angle(num, denom float64) float64 {
	if denom == 0 || math.IsNaN(num) || math.IsNaN(denom) {
		return 0
	}
	return math.Asin(Clamp(num/denom, -1, 1)) * 180 / math.Pi
}

// ZeroReduce is a parabola peaking at the midpoint of [lo, hi].
//
// Formula: 1 - clamp((value - mid) / halfWidth, -1, 1)²
//
// Returns 1 when value sits on the midpoint and 0 at (or beyond) either bound.
// A degenerate band returns 1 only when value equals it.
func ZeroReduce(value, hi, lo float64) float64 {
	halfWidth := (hi - lo) / 2
	if halfWidth == 0 {
		if value == hi {
			return 1
		}
		return 0
	}
	mid := (hi + lo) / 2
	normalized := Clamp((value-mid)/halfWidth, -1, 1)
	return 1 - normalized*normalized
}

// DoubleReduce is a linear ramp from lo (0) to hi (1), clamped to [0, 1].
// A degenerate band acts as a step at hi.
func DoubleReduce(value, hi, lo float64) float64 {
	if hi == lo {
		if value >= hi {
			return 1
		}
		return 0
	}
	return Clamp((value-lo)/(hi-lo), 0, 1)
}

// Round rounds value to the given number of decimal places.
func Round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

// PercentChange returns (to - from) * 100 / from, or 0 when from is 0.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) * 100 / from
}

// MinMax tracks the running minimum and maximum of a population.
type MinMax struct {
	Min   float64
	Max   float64
	Count int
}

// Observe folds value into the running range.
func (m *MinMax) Observe(value float64) {
	if m.Count == 0 || value < m.Min {
		m.Min = value
	}
	if m.Count == 0 || value > m.Max {
		m.Max = value
	}
	m.Count++
}

// Normalize maps value into [0, 1] using the observed range.
// An empty or collapsed range normalizes to 0.
func (m MinMax) Normalize(value float64) float64 {
	if m.Count == 0 || m.Max == m.Min {
		return 0
	}
	return Clamp((value-m.Min)/(m.Max-m.Min), 0, 1)
}
