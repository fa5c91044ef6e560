// Package scoring ranks tickers by a composite performance score.
package scoring

import (
	"github.com/aristath/meridian/pkg/formulas"
)

// MaxScore is the top of the performance vector scale
const MaxScore = 100.0

// Factor is one weighted component of a composite score
type Factor[T any] struct {
	Name   string
	Weight float64
	Value  func(T) float64
}

// Candidate is one member of the population being scored
type Candidate[T any] struct {
	Symbol   string
	Item     T
	Eligible bool
}

// Normalize scores the eligible candidates of a population.
//
// Every factor is min-max normalized across the eligible candidates, weighted
// and summed. The weighted totals are min-max normalized again and rescaled to
// [0, MaxScore]. With compress set, a population averaging above MaxScore/2 is
// scaled down so its average sits at MaxScore/2.
// Ineligible candidates score 0 and do not affect the ranges.
func Normalize[T any](candidates []Candidate[T], factors []Factor[T], compress bool) map[string]float64 {
	scores := make(map[string]float64, len(candidates))

	ranges := make([]formulas.MinMax, len(factors))
	values := make(map[string][]float64, len(candidates))
	for _, c := range candidates {
		scores[c.Symbol] = 0
		if !c.Eligible {
			continue
		}
		row := make([]float64, len(factors))
		for i, f := range factors {
			row[i] = f.Value(c.Item)
			ranges[i].Observe(row[i])
		}
		values[c.Symbol] = row
	}
	if len(values) == 0 {
		return scores
	}

	var totals formulas.MinMax
	weighted := make(map[string]float64, len(values))
	for symbol, row := range values {
		total := 0.0
		for i, f := range factors {
			total += ranges[i].Normalize(row[i]) * f.Weight
		}
		weighted[symbol] = total
		totals.Observe(total)
	}

	sum := 0.0
	for symbol, total := range weighted {
		score := totals.Normalize(total) * MaxScore
		scores[symbol] = score
		sum += score
	}

	if compress {
		ideal := MaxScore / 2
		avg := sum / float64(len(weighted))
		if avg > ideal {
			ratio := ideal / avg
			for symbol := range weighted {
				scores[symbol] *= ratio
			}
		}
	}

	for symbol := range weighted {
		scores[symbol] = formulas.Round(scores[symbol], 3)
	}
	return scores
}
