package trading

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/rebalancing"
	"github.com/aristath/meridian/pkg/formulas"
)

// QuoteSource returns the latest traded price of a symbol
type QuoteSource interface {
	GetLastTrade(ctx context.Context, symbol string) (*domain.BrokerTrade, error)
}

// Decider records the day's orders from rebalancing proposals
type Decider struct {
	orders   *OrderRepository
	history  *HistoryRepository
	quotes   QuoteSource
	strategy *config.Strategy
	log      zerolog.Logger
}

// NewDecider creates a new order decider
func NewDecider(orders *OrderRepository, history *HistoryRepository, quotes QuoteSource, strategy *config.Strategy, log zerolog.Logger) *Decider {
	return &Decider{
		orders:   orders,
		history:  history,
		quotes:   quotes,
		strategy: strategy,
		log:      log.With().Str("service", "order_decider").Logger(),
	}
}

type candidate struct {
	proposal   rebalancing.Proposal
	side       domain.OrderSide
	multiplier float64
	priority   float64
}

// Priority weights the score by how close the current profit/loss sits to its
// usual level. A degenerate baseline leaves the score unchanged.
func Priority(score float64, p *domain.Prediction, baselines domain.Baselines) float64 {
	if p == nil {
		return score
	}
	d := baselines.Get(domain.FieldProfitLossPerc)
	if d.StdDev == 0 {
		return score
	}
	return score * formulas.ZeroReduce(p.Metric.ProfitLossPerc, d.Upper(), d.Lower())
}

// Decide records one order per proposal that passes the day's gates and
// returns the orders created. Symbols already decided for the day are skipped.
func (d *Decider) Decide(ctx context.Context, account *domain.Account, day time.Time, proposals []rebalancing.Proposal, tickers map[string]domain.Ticker) ([]domain.Order, error) {
	day = domain.TruncateDay(day)

	existing, err := d.orders.GetForDay(ctx, account.ID, day)
	if err != nil {
		return nil, err
	}
	decided := make(map[string]bool, len(existing))
	used := map[domain.OrderSide]float64{}
	for _, o := range existing {
		decided[o.Symbol] = true
		if !o.CloseOut {
			used[o.Side] += o.Multiplier * d.securityCap(o.Side)
		}
	}

	cooldowns, err := d.history.Cooldowns(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, p := range proposals {
		if p.Amount == 0 || decided[p.Symbol] {
			continue
		}
		side := p.Side()

		if !p.CloseOut {
			cd := cooldowns[p.Symbol]
			if (side == domain.OrderSideBuy && cd.BlocksBuy(day)) || (side == domain.OrderSideSell && cd.BlocksSell(day)) {
				d.log.Debug().Str("symbol", p.Symbol).Str("side", string(side)).Msg("Skipping, cooling down")
				continue
			}
		}

		c := candidate{proposal: p, side: side, multiplier: 1}
		if p.Kind == domain.AssetKindStock && !p.CloseOut {
			c.multiplier = p.Prediction.Multiplier(side)
			if c.multiplier <= 0 {
				continue
			}
		}
		c.priority = Priority(p.Score, p.Prediction, tickers[p.Symbol].Baselines)
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority > candidates[j].priority
		}
		return candidates[i].proposal.Symbol < candidates[j].proposal.Symbol
	})

	var created []domain.Order
	for _, c := range candidates {
		if !c.proposal.CloseOut {
			share := c.multiplier * d.securityCap(c.side)
			if used[c.side]+share > d.dailyCap(c.side)+1e-9 {
				d.log.Debug().Str("symbol", c.proposal.Symbol).Str("side", string(c.side)).Msg("Skipping, daily cap reached")
				continue
			}
			used[c.side] += share
		}

		trade, err := d.quotes.GetLastTrade(ctx, c.proposal.Symbol)
		if err != nil || trade == nil || trade.Price <= 0 {
			d.log.Error().Err(err).Str("symbol", c.proposal.Symbol).Msg("No target price, skipping")
			if !c.proposal.CloseOut {
				used[c.side] -= c.multiplier * d.securityCap(c.side)
			}
			continue
		}

		o := domain.Order{
			AccountID:       account.ID,
			Symbol:          c.proposal.Symbol,
			Side:            c.side,
			Kind:            c.proposal.Kind,
			Day:             day,
			TargetPrice:     trade.Price,
			RequestedAmount: math.Abs(c.proposal.Amount),
			Multiplier:      c.multiplier,
			Priority:        formulas.Round(c.priority, 3),
			CloseOut:        c.proposal.CloseOut,
		}
		if last := cooldowns[c.proposal.Symbol].LastBuy; !last.IsZero() {
			o.DaysSinceLastBuy = int(day.Sub(last).Hours() / 24)
		}

		ok, err := d.orders.Create(ctx, &o)
		if err != nil {
			return created, fmt.Errorf("failed to record decision: %w", err)
		}
		if !ok {
			continue
		}
		created = append(created, o)
	}

	d.log.Info().
		Int("proposals", len(proposals)).
		Int("decided", len(created)).
		Msg("Orders decided")
	return created, nil
}

func (d *Decider) securityCap(side domain.OrderSide) float64 {
	if side == domain.OrderSideBuy {
		return d.strategy.MaxSecurityBuy
	}
	return d.strategy.MaxSecuritySell
}

func (d *Decider) dailyCap(side domain.OrderSide) float64 {
	if side == domain.OrderSideBuy {
		return d.strategy.MaxDailyBuy
	}
	return d.strategy.MaxDailySell
}
