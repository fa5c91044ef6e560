package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/market_hours"
	"github.com/aristath/meridian/internal/modules/portfolio"
	"github.com/aristath/meridian/internal/modules/rebalancing"
	"github.com/aristath/meridian/internal/modules/universe"
	"github.com/aristath/meridian/internal/utils"
)

// Predictor produces the buy and sell multipliers of a ticker set
type Predictor interface {
	PredictAll(ctx context.Context, tickers []domain.Ticker) (map[string]*domain.Prediction, error)
}

// CycleReport summarises one trading cycle
type CycleReport struct {
	Day        time.Time        `json:"day"`
	Skipped    bool             `json:"skipped"`
	Reconciled int              `json:"reconciled"`
	Proposals  int              `json:"proposals"`
	Decided    int              `json:"decided"`
	Execution  *ExecutionReport `json:"execution,omitempty"`
}

// Service runs the daily trading cycle
type Service struct {
	calendar   *market_hours.Calendar
	portfolio  *portfolio.Service
	tickers    *universe.TickerRepository
	predictor  Predictor
	planner    *rebalancing.Engine
	decider    *Decider
	executor   *Executor
	reconciler *Reconciler
	log        zerolog.Logger
}

// NewService creates a new trading service
func NewService(
	calendar *market_hours.Calendar,
	portfolio *portfolio.Service,
	tickers *universe.TickerRepository,
	predictor Predictor,
	planner *rebalancing.Engine,
	decider *Decider,
	executor *Executor,
	reconciler *Reconciler,
	log zerolog.Logger,
) *Service {
	return &Service{
		calendar:   calendar,
		portfolio:  portfolio,
		tickers:    tickers,
		predictor:  predictor,
		planner:    planner,
		decider:    decider,
		executor:   executor,
		reconciler: reconciler,
		log:        log.With().Str("service", "trading").Logger(),
	}
}

// RunCycle reconciles the previous market day, then plans, decides and
// executes today's orders. Non-market days are skipped.
func (s *Service) RunCycle(ctx context.Context) (*CycleReport, error) {
	timer := utils.NewTimer("trading_cycle", s.log)
	defer timer.Stop()

	today := s.calendar.Today()
	report := &CycleReport{Day: today}

	open, err := s.calendar.IsMarketDay(ctx, today)
	if err != nil {
		return nil, err
	}
	if !open {
		s.log.Info().Time("day", today).Msg("Market closed, skipping trading cycle")
		report.Skipped = true
		return report, nil
	}

	account, err := s.portfolio.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	previous, err := s.calendar.PreviousMarketDay(ctx, today)
	if err != nil {
		s.log.Error().Err(err).Msg("Cannot find previous market day, skipping reconciliation")
	} else {
		n, err := s.reconciler.Reconcile(ctx, account.ID, previous, account.TradeableEquity)
		if err != nil {
			return nil, fmt.Errorf("reconciliation failed: %w", err)
		}
		report.Reconciled = n
	}

	positions, err := s.portfolio.Positions(ctx)
	if err != nil {
		return nil, err
	}

	tickers, err := s.universe(ctx, positions)
	if err != nil {
		return nil, err
	}

	predictions, err := s.predictor.PredictAll(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	proposals := s.planner.Plan(rebalancing.Input{
		Account:     *account,
		Positions:   positions,
		Tickers:     tickers,
		Predictions: predictions,
	})
	report.Proposals = len(proposals)

	bySymbol := make(map[string]domain.Ticker, len(tickers))
	for _, t := range tickers {
		bySymbol[t.Symbol] = t
	}
	created, err := s.decider.Decide(ctx, account, today, proposals, bySymbol)
	if err != nil {
		return nil, err
	}
	report.Decided = len(created)

	report.Execution, err = s.executor.Execute(ctx, account, positions, today)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("reconciled", report.Reconciled).
		Int("proposals", report.Proposals).
		Int("decided", report.Decided).
		Int("submitted", report.Execution.Submitted).
		Msg("Trading cycle finished")
	return report, nil
}

// ExecutePending submits today's orders still waiting for a broker id
func (s *Service) ExecutePending(ctx context.Context) (*ExecutionReport, error) {
	today := s.calendar.Today()

	open, err := s.calendar.IsMarketDay(ctx, today)
	if err != nil {
		return nil, err
	}
	if !open {
		return &ExecutionReport{}, nil
	}

	account, err := s.portfolio.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	positions, err := s.portfolio.Positions(ctx)
	if err != nil {
		return nil, err
	}
	return s.executor.Execute(ctx, account, positions, today)
}

// universe returns the active tickers plus every held symbol known to the store
func (s *Service) universe(ctx context.Context, positions []domain.Position) ([]domain.Ticker, error) {
	tickers, err := s.tickers.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		seen[t.Symbol] = true
	}
	var missing []string
	for _, p := range positions {
		if !seen[p.Symbol] {
			missing = append(missing, p.Symbol)
		}
	}
	if len(missing) == 0 {
		return tickers, nil
	}

	held, err := s.tickers.GetBySymbols(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, symbol := range missing {
		if t, ok := held[symbol]; ok {
			tickers = append(tickers, t)
		}
	}
	return tickers, nil
}
