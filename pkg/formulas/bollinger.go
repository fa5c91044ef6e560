package formulas

// BollingerBands represents Bollinger Bands values
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Width returns the distance from the middle to the upper band.
func (b BollingerBands) Width() float64 {
	return b.Upper - b.Middle
}

// CalculateBollingerBands computes mean ± k·σ over the last `length` values of a
// series ordered oldest first. σ is the population standard deviation.
//
// Returns nil if there is insufficient data.
func CalculateBollingerBands(values []float64, length int, k float64) *BollingerBands {
	if length <= 0 || len(values) < length {
		return nil
	}

	mean, std := MeanStdDev(values[len(values)-length:])
	return &BollingerBands{
		Upper:  mean + k*std,
		Middle: mean,
		Lower:  mean - k*std,
	}
}
