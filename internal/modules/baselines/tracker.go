// Package baselines maintains the per-ticker metric distributions.
package baselines

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
	"github.com/aristath/meridian/pkg/formulas"
)

// HistoryLength is the number of recent metrics a baseline is computed over
const HistoryLength = 500

// Compute builds the distribution of every metric field over metrics,
// which must be ordered oldest first. Velocity is the first difference series.
func Compute(metrics []domain.BarMetric) domain.Baselines {
	out := make(domain.Baselines, len(domain.MetricFields))
	if len(metrics) == 0 {
		return out
	}

	values := make([]float64, len(metrics))
	for _, field := range domain.MetricFields {
		for i, m := range metrics {
			values[i] = m.Value(field)
		}
		mean, std := formulas.MeanStdDev(values)
		velocityMean, velocityStd := formulas.MeanStdDev(formulas.Differences(values))
		out[field] = domain.Distribution{
			Mean:           mean,
			StdDev:         std,
			VelocityMean:   velocityMean,
			VelocityStdDev: velocityStd,
		}
	}
	return out
}

// Tracker recomputes and stores ticker baselines
type Tracker struct {
	metrics *universe.MetricRepository
	tickers *universe.TickerRepository
	now     func() time.Time
	log     zerolog.Logger
}

// NewTracker creates a new baseline tracker
func NewTracker(metrics *universe.MetricRepository, tickers *universe.TickerRepository, log zerolog.Logger) *Tracker {
	return &Tracker{
		metrics: metrics,
		tickers: tickers,
		now:     time.Now,
		log:     log.With().Str("service", "baselines").Logger(),
	}
}

// SetClock replaces the clock used to stamp the averages
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Refresh recomputes the baselines of one ticker from its recent history.
// A ticker without metrics keeps empty baselines and cannot be predicted.
func (t *Tracker) Refresh(ctx context.Context, symbol string) (domain.Baselines, error) {
	history, err := t.metrics.GetHistory(ctx, symbol, HistoryLength)
	if err != nil {
		return nil, err
	}

	b := Compute(history)
	if err := t.tickers.UpdateBaselines(ctx, symbol, b, t.now()); err != nil {
		return nil, err
	}
	return b, nil
}

// RefreshAll recomputes baselines for every active ticker.
// A failing ticker is logged and skipped.
func (t *Tracker) RefreshAll(ctx context.Context) (int, error) {
	tickers, err := t.tickers.GetActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active tickers: %w", err)
	}

	refreshed := 0
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		b, err := t.Refresh(ctx, ticker.Symbol)
		if err != nil {
			t.log.Error().Err(err).Str("symbol", ticker.Symbol).Msg("Baseline refresh failed")
			continue
		}
		if !b.Established(domain.FieldSMASMA) {
			t.log.Debug().Str("symbol", ticker.Symbol).Msg("Baseline not established yet")
		}
		refreshed++
	}

	t.log.Info().Int("tickers", len(tickers)).Int("refreshed", refreshed).Msg("Baselines refreshed")
	return refreshed, nil
}
