package scoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
)

// BaselineRefresher recomputes ticker baselines
type BaselineRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// Service runs the gated recomputation stages in order
type Service struct {
	scorer    *Scorer
	promoter  *Promoter
	baselines BaselineRefresher
	tickers   *universe.TickerRepository
	gate      Gate
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a new scoring service
func NewService(
	scorer *Scorer,
	promoter *Promoter,
	baselines BaselineRefresher,
	tickers *universe.TickerRepository,
	gate Gate,
	log zerolog.Logger,
) *Service {
	return &Service{
		scorer:    scorer,
		promoter:  promoter,
		baselines: baselines,
		tickers:   tickers,
		gate:      gate,
		now:       time.Now,
		log:       log.With().Str("service", "scoring").Logger(),
	}
}

// SetClock replaces the clock the gate is evaluated against
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// RefreshBaselines recomputes baselines when the averages stage is due
func (s *Service) RefreshBaselines(ctx context.Context) (bool, error) {
	due, err := s.due(ctx, func(t domain.Ticker) time.Time { return t.AveragesCalculated })
	if err != nil || !due {
		return false, err
	}
	_, err = s.baselines.RefreshAll(ctx)
	return err == nil, err
}

// Run scores the bank universe and promotes from it when the load stage is
// due, then rescores the active universe when the performance stage is due.
func (s *Service) Run(ctx context.Context) error {
	loadDue, err := s.due(ctx, func(t domain.Ticker) time.Time { return t.LoadCalculated })
	if err != nil {
		return err
	}
	if loadDue {
		scores, err := s.scorer.ScoreBank(ctx)
		if err != nil {
			return err
		}
		if _, err := s.promoter.Promote(ctx, scores); err != nil {
			return err
		}
	} else {
		s.log.Debug().Msg("Load stage not due")
	}

	performanceDue, err := s.due(ctx, func(t domain.Ticker) time.Time { return t.PerformanceCalculated })
	if err != nil {
		return err
	}
	if !performanceDue {
		s.log.Debug().Msg("Performance stage not due")
		return nil
	}
	_, err = s.scorer.ScoreActive(ctx)
	return err
}

func (s *Service) due(ctx context.Context, stamp func(domain.Ticker) time.Time) (bool, error) {
	tickers, err := s.tickers.GetActive(ctx)
	if err != nil {
		return false, err
	}
	stamps := make([]time.Time, len(tickers))
	for i, t := range tickers {
		stamps[i] = stamp(t)
	}
	return s.gate.ShouldRun(Latest(stamps), s.now()), nil
}
