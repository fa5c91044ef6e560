package trading

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
)

// FillSource returns the broker's view of a submitted order
type FillSource interface {
	GetOrder(ctx context.Context, orderID string) (*domain.BrokerOrder, error)
}

// Reconciler records the fills of submitted orders
type Reconciler struct {
	orders   *OrderRepository
	history  *HistoryRepository
	fills    FillSource
	strategy *config.Strategy
	now      func() time.Time
	log      zerolog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(orders *OrderRepository, history *HistoryRepository, fills FillSource, strategy *config.Strategy, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		orders:   orders,
		history:  history,
		fills:    fills,
		strategy: strategy,
		now:      time.Now,
		log:      log.With().Str("service", "reconciler").Logger(),
	}
}

// SetClock replaces the clock stamping reconciled orders
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Reconcile checks every unreconciled order of day or earlier with the broker
// and returns the number of fills recorded. Orders whose fill cannot be
// fetched are left for the next pass, whichever day that pass reconciles.
func (r *Reconciler) Reconcile(ctx context.Context, accountID string, day time.Time, equity float64) (int, error) {
	orders, err := r.orders.GetUnreconciledThrough(ctx, accountID, day)
	if err != nil {
		return 0, err
	}

	filled := 0
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return filled, err
		}

		bo, err := r.fills.GetOrder(ctx, o.BrokerOrderID)
		if err != nil {
			r.log.Error().Err(err).Str("symbol", o.Symbol).Str("broker_order_id", o.BrokerOrderID).Msg("Failed to fetch fill")
			continue
		}

		if bo.HasFill() {
			recorded, err := r.record(ctx, o, bo, equity)
			if err != nil {
				return filled, err
			}
			if recorded {
				filled++
			}
		} else {
			r.log.Info().Str("symbol", o.Symbol).Str("status", string(bo.Status)).Msg("Order not filled")
		}

		if err := r.orders.MarkReconciled(ctx, o.ID, r.now()); err != nil {
			return filled, err
		}
	}

	r.log.Info().Int("orders", len(orders)).Int("filled", filled).Msg("Orders reconciled")
	return filled, nil
}

func (r *Reconciler) record(ctx context.Context, o domain.Order, bo *domain.BrokerOrder, equity float64) (bool, error) {
	h := domain.OrderHistory{
		AccountID:     o.AccountID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		BrokerOrderID: o.BrokerOrderID,
		Day:           o.Day,
		AvgFillPrice:  bo.FilledAvgPrice,
		FilledQty:     bo.FilledQty,
		Multiplier:    o.Multiplier,
	}

	if o.Side == domain.OrderSideSell {
		avg, err := r.history.AverageBuyPrice(ctx, o.AccountID, o.Symbol)
		if err != nil {
			return false, err
		}
		if avg > 0 {
			h.PLPerc = (bo.FilledAvgPrice - avg) * 100 / avg
		}
	}

	h.NextBuy, h.NextSell = NextDates(Fill{
		Side:       o.Side,
		Day:        o.Day,
		Multiplier: o.Multiplier,
		PLPerc:     h.PLPerc,
		Notional:   bo.FilledQty * bo.FilledAvgPrice,
		Equity:     equity,
	}, r.strategy.MaxCooldownDays)

	return r.history.Insert(ctx, &h)
}
