package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/reliability"
	"github.com/aristath/meridian/internal/work"
)

// DefaultLookbackDays is how far back the first collection for a symbol reaches
const DefaultLookbackDays = 3 * 365

// BarCollector pulls completed daily bars from the broker into the store
type BarCollector struct {
	broker   domain.BrokerClient
	bars     *BarRepository
	tickers  *TickerRepository
	retry    reliability.RetryPolicy
	batch    work.BatchOptions
	lookback int
	now      func() time.Time
	log      zerolog.Logger
}

// NewBarCollector creates a new bar collector
func NewBarCollector(
	broker domain.BrokerClient,
	bars *BarRepository,
	tickers *TickerRepository,
	retry reliability.RetryPolicy,
	batch work.BatchOptions,
	log zerolog.Logger,
) *BarCollector {
	return &BarCollector{
		broker:   broker,
		bars:     bars,
		tickers:  tickers,
		retry:    retry,
		batch:    batch,
		lookback: DefaultLookbackDays,
		now:      time.Now,
		log:      log.With().Str("service", "bar_collector").Logger(),
	}
}

// SetClock replaces the clock deciding which bars are complete
func (c *BarCollector) SetClock(now func() time.Time) {
	c.now = now
}

// CollectAll collects bars for every active ticker
func (c *BarCollector) CollectAll(ctx context.Context) (*work.Report, error) {
	tickers, err := c.tickers.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active tickers: %w", err)
	}

	symbols := make([]string, len(tickers))
	for i, t := range tickers {
		symbols[i] = t.Symbol
	}

	report, err := work.RunBatches(ctx, symbols, c.batch, func(ctx context.Context, symbol string) error {
		n, err := c.Collect(ctx, symbol)
		if err != nil {
			c.log.Error().Err(err).Str("symbol", symbol).Msg("Bar collection failed")
			return err
		}
		c.log.Debug().Str("symbol", symbol).Int("inserted", n).Msg("Bars collected")
		return nil
	})

	if report != nil {
		c.log.Info().
			Int("symbols", report.Total).
			Int("succeeded", report.Succeeded).
			Int("failed", len(report.Failed)).
			Msg("Bar collection finished")
	}
	return report, err
}

// Collect fetches and stores the bars of one symbol after its last stored day.
// Only bars of days before today are stored.
func (c *BarCollector) Collect(ctx context.Context, symbol string) (int, error) {
	today := domain.TruncateDay(c.now())

	from := today.AddDate(0, 0, -c.lookback)
	last, err := c.bars.LastDay(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if last != nil {
		from = last.AddDate(0, 0, 1)
	}
	if !from.Before(today) {
		return 0, nil
	}

	fetched, err := reliability.Retry(ctx, c.retry, c.log, "get_bar_history:"+symbol,
		func(ctx context.Context) ([]domain.PriceBar, error) {
			return c.broker.GetBarHistoryDay(ctx, symbol, from)
		})
	if err != nil {
		return 0, err
	}

	complete := make([]domain.PriceBar, 0, len(fetched))
	for _, b := range fetched {
		day := domain.TruncateDay(b.Day)
		if day.Before(from) || !day.Before(today) {
			continue
		}
		b.Symbol = symbol
		b.Day = day
		complete = append(complete, b)
	}

	return c.bars.Insert(ctx, complete)
}
