// Package prediction turns metric history into buy and sell conviction.
package prediction

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
	"github.com/aristath/meridian/pkg/formulas"
)

// MinHistory is the number of recent metrics a ticker must have before it is
// predicted at all. It gates young tickers; the multipliers themselves read
// only the two newest metrics.
const MinHistory = 7

// requiredFields must have an established baseline before predicting
var requiredFields = []domain.MetricField{
	domain.FieldAlmaSMA1, domain.FieldAlmaSMA2, domain.FieldAlmaSMA3,
	domain.FieldSMASMA, domain.FieldWeekTrend, domain.FieldStochastic,
}

// Predict computes the multipliers of a ticker from its recent metrics,
// newest first. Returns nil when fewer than MinHistory metrics are given or
// the baselines are degenerate. Levels come from recent[0] and the SMA
// velocity from recent[0] minus recent[1], matching how velocity baselines
// are built; older metrics only satisfy the history requirement.
func Predict(ticker domain.Ticker, recent []domain.BarMetric, encouragement float64) *domain.Prediction {
	if len(recent) < MinHistory {
		return nil
	}
	b := ticker.Baselines
	if !b.Established(requiredFields...) || b.Get(domain.FieldSMASMA).VelocityStdDev == 0 {
		return nil
	}

	s := newSignals(b, recent[0], recent[1])

	bull := s.bullCoefficient()
	buy := bull*s.buyBull() + (1-bull)*s.buyBear()
	sell := bull*s.sellBull() + (1-bull)*s.sellBear()

	buy, sell = Encourage(buy, sell, encouragement)

	return &domain.Prediction{
		Symbol:         ticker.Symbol,
		BuyMultiplier:  formulas.Round(formulas.Clamp(buy, 0, 1), 3),
		SellMultiplier: formulas.Round(formulas.Clamp(sell, 0, 1), 3),
		Metric:         recent[0],
	}
}

// Encourage shifts the multipliers toward more trading for a positive e and
// less for a negative one. e is clamped to [-1, 1].
func Encourage(buy, sell, e float64) (float64, float64) {
	e = formulas.Clamp(e, -1, 1)
	if e >= 0 {
		buy += (1 - buy) * e / 2
		sell *= 1 - e/2
	} else {
		buy *= 1 + e/2
		sell += (1 - sell) * -e / 2
	}
	return buy, sell
}

// Engine predicts from stored metrics and baselines
type Engine struct {
	metrics       *universe.MetricRepository
	encouragement float64
	log           zerolog.Logger
}

// NewEngine creates a new prediction engine
func NewEngine(metrics *universe.MetricRepository, encouragement float64, log zerolog.Logger) *Engine {
	return &Engine{
		metrics:       metrics,
		encouragement: encouragement,
		log:           log.With().Str("service", "prediction").Logger(),
	}
}

// Predict returns the prediction of one ticker, or nil without enough history
func (e *Engine) Predict(ctx context.Context, ticker domain.Ticker) (*domain.Prediction, error) {
	recent, err := e.metrics.GetRecent(ctx, ticker.Symbol, MinHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics for %s: %w", ticker.Symbol, err)
	}
	return Predict(ticker, recent, e.encouragement), nil
}

// PredictAll predicts every ticker. Tickers without a prediction are absent.
func (e *Engine) PredictAll(ctx context.Context, tickers []domain.Ticker) (map[string]*domain.Prediction, error) {
	out := make(map[string]*domain.Prediction, len(tickers))
	for _, t := range tickers {
		p, err := e.Predict(ctx, t)
		if err != nil {
			return nil, err
		}
		if p == nil {
			e.log.Debug().Str("symbol", t.Symbol).Msg("No prediction, insufficient history")
			continue
		}
		out[t.Symbol] = p
	}
	return out, nil
}
