package calculations

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
	"github.com/aristath/meridian/internal/work"
)

// MetricEngine turns stored bars into stored metrics.
// A metric is written once per bar and never recomputed, so runs are repeatable.
type MetricEngine struct {
	bars    *universe.BarRepository
	metrics *universe.MetricRepository
	tickers *universe.TickerRepository
	batch   work.BatchOptions
	log     zerolog.Logger
}

// NewMetricEngine creates a new metric engine
func NewMetricEngine(
	bars *universe.BarRepository,
	metrics *universe.MetricRepository,
	tickers *universe.TickerRepository,
	batch work.BatchOptions,
	log zerolog.Logger,
) *MetricEngine {
	return &MetricEngine{
		bars:    bars,
		metrics: metrics,
		tickers: tickers,
		batch:   batch,
		log:     log.With().Str("service", "metric_engine").Logger(),
	}
}

// GenerateAll generates missing metrics for every active ticker
func (e *MetricEngine) GenerateAll(ctx context.Context) (*work.Report, error) {
	tickers, err := e.tickers.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active tickers: %w", err)
	}

	symbols := make([]string, len(tickers))
	for i, t := range tickers {
		symbols[i] = t.Symbol
	}

	report, err := work.RunBatches(ctx, symbols, e.batch, func(ctx context.Context, symbol string) error {
		n, err := e.Generate(ctx, symbol)
		if errors.Is(err, domain.ErrInsufficientHistory) {
			e.log.Debug().Err(err).Str("symbol", symbol).Msg("Skipping metric generation")
			return nil
		}
		if err != nil {
			e.log.Error().Err(err).Str("symbol", symbol).Msg("Metric generation failed")
			return err
		}
		e.log.Debug().Str("symbol", symbol).Int("inserted", n).Msg("Metrics generated")
		return nil
	})

	if report != nil {
		e.log.Info().
			Int("symbols", report.Total).
			Int("succeeded", report.Succeeded).
			Int("failed", len(report.Failed)).
			Msg("Metric generation finished")
	}
	return report, err
}

// Generate computes the metric of every bar of symbol that has a full trailing
// window and no metric yet. Returns the number of metrics stored, or
// domain.ErrInsufficientHistory when symbol has fewer than BarLength bars.
func (e *MetricEngine) Generate(ctx context.Context, symbol string) (int, error) {
	bars, err := e.bars.GetBars(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if len(bars) < BarLength {
		return 0, fmt.Errorf("%s has %d of %d bars: %w", symbol, len(bars), BarLength, domain.ErrInsufficientHistory)
	}

	existing, err := e.metrics.ExistingBarIDs(ctx, symbol)
	if err != nil {
		return 0, err
	}

	var pending []domain.BarMetric
	for end := BarLength; end <= len(bars); end++ {
		if existing[bars[end-1].ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		metric, ok := ComputeMetric(bars[end-BarLength : end])
		if !ok {
			continue
		}
		pending = append(pending, metric)
	}

	if len(pending) == 0 {
		return 0, nil
	}
	return e.metrics.Insert(ctx, pending)
}
