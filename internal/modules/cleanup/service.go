// Package cleanup prunes decision records and raw bars past their retention.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Retention periods
const (
	OrderRetention   = 30 * 24 * time.Hour
	HistoryRetention = 365 * 24 * time.Hour
	BarRetention     = 5 * 365 * 24 * time.Hour
)

// Pruner deletes rows older than a cutoff
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result holds the rows removed per store
type Result struct {
	Orders  int64 `json:"orders"`
	History int64 `json:"history"`
	Bars    int64 `json:"bars"`
}

// Service applies the retention policy
type Service struct {
	orders  Pruner
	history Pruner
	bars    Pruner
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a new cleanup service
func NewService(orders, history, bars Pruner, log zerolog.Logger) *Service {
	return &Service{
		orders:  orders,
		history: history,
		bars:    bars,
		now:     time.Now,
		log:     log.With().Str("service", "cleanup").Logger(),
	}
}

// SetClock replaces the clock the cutoffs are computed from
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Run deletes decided orders older than 30 days, fills older than one year and
// raw bars no metric references after five years
func (s *Service) Run(ctx context.Context) (*Result, error) {
	now := s.now()
	result := &Result{}

	var err error
	if result.Orders, err = s.orders.DeleteBefore(ctx, now.Add(-OrderRetention)); err != nil {
		return nil, fmt.Errorf("order cleanup failed: %w", err)
	}
	if result.History, err = s.history.DeleteBefore(ctx, now.Add(-HistoryRetention)); err != nil {
		return nil, fmt.Errorf("order history cleanup failed: %w", err)
	}
	if s.bars != nil {
		if result.Bars, err = s.bars.DeleteBefore(ctx, now.Add(-BarRetention)); err != nil {
			return nil, fmt.Errorf("bar cleanup failed: %w", err)
		}
	}

	s.log.Info().
		Int64("orders", result.Orders).
		Int64("history", result.History).
		Int64("bars", result.Bars).
		Msg("Cleanup finished")
	return result, nil
}
