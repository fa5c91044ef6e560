package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
)

// PositionSource lists the current holdings
type PositionSource interface {
	GetPositions(ctx context.Context) ([]domain.Position, error)
}

// PromotionResult summarizes one promotion pass
type PromotionResult struct {
	Promoted    []string `json:"promoted"`
	Deactivated []string `json:"deactivated"`
}

// Promoter moves the best bank tickers into the active universe
type Promoter struct {
	bank      *universe.BankTickerRepository
	tickers   *universe.TickerRepository
	positions PositionSource
	count     int
	now       func() time.Time
	log       zerolog.Logger
}

// NewPromoter creates a new promoter keeping count tickers active
func NewPromoter(
	bank *universe.BankTickerRepository,
	tickers *universe.TickerRepository,
	positions PositionSource,
	count int,
	log zerolog.Logger,
) *Promoter {
	return &Promoter{
		bank:      bank,
		tickers:   tickers,
		positions: positions,
		count:     count,
		now:       time.Now,
		log:       log.With().Str("service", "promoter").Logger(),
	}
}

// SetClock replaces the clock used to stamp the load
func (p *Promoter) SetClock(now func() time.Time) {
	p.now = now
}

// Promote activates the top scoring bank tickers and deactivates active
// tickers that fell out of the top and are not held.
func (p *Promoter) Promote(ctx context.Context, scores map[string]float64) (*PromotionResult, error) {
	all, err := p.bank.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.BankTicker, 0, len(all))
	for _, b := range all {
		if scores[b.Symbol] > 0 {
			ranked = append(ranked, b)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].Symbol], scores[ranked[j].Symbol]
		if si != sj {
			return si > sj
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	if len(ranked) > p.count {
		ranked = ranked[:p.count]
	}

	positions, err := p.positions.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	held := make(map[string]bool, len(positions))
	for _, pos := range positions {
		held[strings.ToUpper(pos.Symbol)] = true
	}

	result := &PromotionResult{}
	keep := make(map[string]bool, len(ranked))
	for _, b := range ranked {
		keep[b.Symbol] = true
		if err := p.tickers.Upsert(ctx, domain.Ticker{Symbol: b.Symbol, Fundamentals: b.Fundamentals}); err != nil {
			return nil, err
		}
		result.Promoted = append(result.Promoted, b.Symbol)
	}

	active, err := p.tickers.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range active {
		if keep[t.Symbol] || held[t.Symbol] {
			continue
		}
		if err := p.tickers.Deactivate(ctx, t.Symbol); err != nil {
			return nil, err
		}
		result.Deactivated = append(result.Deactivated, t.Symbol)
	}

	if err := p.tickers.MarkLoadCalculated(ctx, p.now()); err != nil {
		return nil, err
	}

	p.log.Info().
		Int("promoted", len(result.Promoted)).
		Int("deactivated", len(result.Deactivated)).
		Msg("Universe promotion finished")
	return result, nil
}
