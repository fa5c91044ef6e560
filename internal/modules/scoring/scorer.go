package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
)

// Scorer computes and stores performance vectors
type Scorer struct {
	tickers  *universe.TickerRepository
	bank     *universe.BankTickerRepository
	metrics  *universe.MetricRepository
	strategy *config.Strategy
	now      func() time.Time
	log      zerolog.Logger
}

// NewScorer creates a new performance scorer
func NewScorer(
	tickers *universe.TickerRepository,
	bank *universe.BankTickerRepository,
	metrics *universe.MetricRepository,
	strategy *config.Strategy,
	log zerolog.Logger,
) *Scorer {
	return &Scorer{
		tickers:  tickers,
		bank:     bank,
		metrics:  metrics,
		strategy: strategy,
		now:      time.Now,
		log:      log.With().Str("service", "scorer").Logger(),
	}
}

// SetClock replaces the clock used to stamp the scores
func (s *Scorer) SetClock(now func() time.Time) {
	s.now = now
}

// ScoreBank scores the whole bank universe on fundamentals and stores the result
func (s *Scorer) ScoreBank(ctx context.Context) (map[string]float64, error) {
	all, err := s.bank.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate[domain.BankTicker], 0, len(all))
	for _, b := range all {
		candidates = append(candidates, Candidate[domain.BankTicker]{
			Symbol:   b.Symbol,
			Item:     b,
			Eligible: s.eligible(b.Symbol, b.Fundamentals),
		})
	}

	scores := Normalize(candidates, BankFactors(), s.strategy.CompressScores)

	at := s.now()
	for _, b := range all {
		if err := s.bank.UpdatePerformance(ctx, b.Symbol, scores[b.Symbol], at); err != nil {
			return nil, err
		}
	}

	s.log.Info().Int("tickers", len(all)).Int("eligible", countEligible(candidates)).Msg("Bank tickers scored")
	return scores, nil
}

// ScoreActive scores the active universe on its latest metric and fundamentals.
// A ticker without metrics is not eligible.
func (s *Scorer) ScoreActive(ctx context.Context) (map[string]float64, error) {
	tickers, err := s.tickers.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active tickers: %w", err)
	}

	candidates := make([]Candidate[Active], 0, len(tickers))
	for _, t := range tickers {
		recent, err := s.metrics.GetRecent(ctx, t.Symbol, 1)
		if err != nil {
			return nil, err
		}

		c := Candidate[Active]{Symbol: t.Symbol, Item: Active{Ticker: t}}
		if len(recent) > 0 {
			c.Item.Metric = recent[0]
			c.Eligible = s.eligible(t.Symbol, t.Fundamentals)
		}
		candidates = append(candidates, c)
	}

	scores := Normalize(candidates, ActiveFactors(), s.strategy.CompressScores)

	at := s.now()
	for _, t := range tickers {
		if err := s.tickers.UpdatePerformance(ctx, t.Symbol, scores[t.Symbol], at); err != nil {
			return nil, err
		}
	}

	s.log.Info().Int("tickers", len(tickers)).Int("eligible", countEligible(candidates)).Msg("Active tickers scored")
	return scores, nil
}

func (s *Scorer) eligible(symbol string, f domain.Fundamentals) bool {
	return !s.strategy.IsBlacklisted(symbol) && Eligible(f, s.strategy.EarningsMultipleCutoff)
}

func countEligible[T any](candidates []Candidate[T]) int {
	n := 0
	for _, c := range candidates {
		if c.Eligible {
			n++
		}
	}
	return n
}
