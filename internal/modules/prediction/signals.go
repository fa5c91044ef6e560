package prediction

import (
	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/pkg/formulas"
)

// Channel weights. Each regime formula sums to 1.
const (
	almaWeight       = 0.2
	smaWeight        = 0.15
	weekWeight       = 0.15
	stochasticWeight = 0.1
)

// signals holds every metric placed against its baseline.
// centered values peak at the baseline mean; ramped values run 0 at mean-σ to 1 at mean+σ.
type signals struct {
	almaCentered [3]float64
	almaRamped   [3]float64
	smaCentered  float64
	smaRamped    float64
	smaVelocity  float64
	weekCentered float64
	weekRamped   float64
	stochastic   float64
}

func newSignals(b domain.Baselines, latest, previous domain.BarMetric) signals {
	var s signals
	for i, field := range []domain.MetricField{domain.FieldAlmaSMA1, domain.FieldAlmaSMA2, domain.FieldAlmaSMA3} {
		s.almaCentered[i] = centered(latest.Value(field), b.Get(field))
		s.almaRamped[i] = ramped(latest.Value(field), b.Get(field))
	}

	sma := b.Get(domain.FieldSMASMA)
	s.smaCentered = centered(latest.SMASMA, sma)
	s.smaRamped = ramped(latest.SMASMA, sma)
	s.smaVelocity = formulas.DoubleReduce(latest.SMASMA-previous.SMASMA, sma.VelocityUpper(), sma.VelocityLower())

	week := b.Get(domain.FieldWeekTrend)
	s.weekCentered = centered(latest.WeekTrend, week)
	s.weekRamped = ramped(latest.WeekTrend, week)

	s.stochastic = formulas.Clamp(latest.Stochastic/100, 0, 1)
	return s
}

func centered(v float64, d domain.Distribution) float64 {
	return formulas.ZeroReduce(v, d.Upper(), d.Lower())
}

func ramped(v float64, d domain.Distribution) float64 {
	return formulas.DoubleReduce(v, d.Upper(), d.Lower())
}

// bullCoefficient is how much the trend-following formulas are trusted
func (s signals) bullCoefficient() float64 {
	return (s.smaRamped + s.smaVelocity) / 2
}

// buyBull adds to strength that is not overextended
func (s signals) buyBull() float64 {
	v := 0.0
	for _, c := range s.almaCentered {
		v += almaWeight * c
	}
	return v + smaWeight*s.smaRamped + weekWeight*s.weekRamped + stochasticWeight*(1-s.stochastic)
}

// sellBull trims overextension and fading momentum
func (s signals) sellBull() float64 {
	v := 0.0
	for i, c := range s.almaCentered {
		v += almaWeight * (1 - c) * s.almaRamped[i]
	}
	return v + smaWeight*(1-s.smaRamped) + weekWeight*(1-s.weekRamped) + stochasticWeight*s.stochastic
}

// buyBear buys dips back toward the mean
func (s signals) buyBear() float64 {
	v := 0.0
	for _, r := range s.almaRamped {
		v += almaWeight * (1 - r)
	}
	return v + smaWeight*s.smaCentered + weekWeight*s.weekCentered + stochasticWeight*(1-s.stochastic)
}

// sellBear sells into any rebound
func (s signals) sellBear() float64 {
	v := 0.0
	for _, r := range s.almaRamped {
		v += almaWeight * r
	}
	return v + smaWeight*(1-s.smaRamped) + weekWeight*(1-s.weekRamped) + stochasticWeight*s.stochastic
}
