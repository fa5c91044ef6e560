package trading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
)

// SellOvershoot is how far, as a fraction of the capped amount, rounding a sell
// up to a whole share may exceed the cap before one share is dropped
const SellOvershoot = 0.1

// OrderPlacer submits orders to the broker
type OrderPlacer interface {
	Buy(ctx context.Context, symbol string, qty float64, limit *float64) (string, error)
	Sell(ctx context.Context, symbol string, qty float64, limit *float64) (string, error)
	ClosePositionAtMarket(ctx context.Context, symbol string) (string, error)
}

// ExecutionReport summarises one execution pass
type ExecutionReport struct {
	Submitted int     `json:"submitted"`
	Skipped   int     `json:"skipped"`
	Pending   int     `json:"pending"`
	Bought    float64 `json:"bought"`
	Sold      float64 `json:"sold"`
}

// Executor turns recorded orders into broker orders within the daily budgets
type Executor struct {
	orders   *OrderRepository
	broker   OrderPlacer
	strategy *config.Strategy
	log      zerolog.Logger
}

// NewExecutor creates a new order executor
func NewExecutor(orders *OrderRepository, broker OrderPlacer, strategy *config.Strategy, log zerolog.Logger) *Executor {
	return &Executor{
		orders:   orders,
		broker:   broker,
		strategy: strategy,
		log:      log.With().Str("service", "order_executor").Logger(),
	}
}

type budget struct {
	buy  float64
	sell float64
	cash float64
}

// Execute submits the pending orders of day, highest priority first.
// Orders the broker refuses stay pending for the next pass.
func (e *Executor) Execute(ctx context.Context, account *domain.Account, positions []domain.Position, day time.Time) (*ExecutionReport, error) {
	day = domain.TruncateDay(day)

	all, err := e.orders.GetForDay(ctx, account.ID, day)
	if err != nil {
		return nil, err
	}

	equity := math.Max(account.TradeableEquity, 0)
	b := budget{
		buy:  equity * e.strategy.MaxDailyBuy,
		sell: equity * e.strategy.MaxDailySell,
		cash: math.Max(account.TradableCash, 0),
	}
	var pending []domain.Order
	for _, o := range all {
		if !o.Submitted() {
			pending = append(pending, o)
			continue
		}
		if o.CloseOut {
			continue
		}
		if o.Side == domain.OrderSideBuy {
			b.buy -= o.AppliedAmount
		} else {
			b.sell -= o.AppliedAmount
		}
	}

	held := make(map[string]domain.Position, len(positions))
	for _, p := range positions {
		held[strings.ToUpper(p.Symbol)] = p
	}

	report := &ExecutionReport{}
	for _, o := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		brokerID, applied, err := e.place(ctx, o, held, equity, &b)
		switch {
		case errors.Is(err, errNothingToDo):
			report.Skipped++
			continue
		case err != nil:
			e.log.Error().Err(err).Str("symbol", o.Symbol).Str("side", string(o.Side)).Msg("Order not placed")
			report.Skipped++
			continue
		case brokerID == "":
			e.log.Warn().Str("symbol", o.Symbol).Msg("Broker returned no order id, order stays pending")
			report.Pending++
			continue
		}

		if err := e.orders.MarkSubmitted(ctx, o.ID, brokerID, applied); err != nil {
			return report, err
		}

		report.Submitted++
		if o.Side == domain.OrderSideBuy {
			report.Bought += applied
			b.buy -= applied
			b.cash -= applied
		} else {
			report.Sold += applied
			if !o.CloseOut {
				b.sell -= applied
			}
		}

		e.log.Info().
			Str("symbol", o.Symbol).
			Str("side", string(o.Side)).
			Float64("amount", applied).
			Str("broker_order_id", brokerID).
			Msg("Order submitted")
	}

	return report, nil
}

var errNothingToDo = errors.New("nothing to execute")

// place submits one order and returns the broker id and the dollar amount applied
func (e *Executor) place(ctx context.Context, o domain.Order, held map[string]domain.Position, equity float64, b *budget) (string, float64, error) {
	limit := decimal.NewFromFloat(o.TargetPrice).Round(2)
	if !limit.IsPositive() {
		return "", 0, fmt.Errorf("invalid target price %.4f", o.TargetPrice)
	}
	limitPrice := limit.InexactFloat64()

	if o.Side == domain.OrderSideBuy {
		amount := minOf(o.RequestedAmount, equity*e.strategy.MaxSecurityBuy*o.Multiplier, b.buy, b.cash)
		qty := decimal.NewFromFloat(math.Max(amount, 0)).Div(limit).Floor()
		if !qty.IsPositive() {
			return "", 0, errNothingToDo
		}
		id, err := e.broker.Buy(ctx, o.Symbol, qty.InexactFloat64(), &limitPrice)
		return id, qty.Mul(limit).InexactFloat64(), err
	}

	pos, ok := held[o.Symbol]
	if !ok || pos.Quantity <= 0 {
		e.log.Error().
			Err(domain.ErrPositionNotFound).
			Str("symbol", o.Symbol).
			Msg("manual intervention required: sell order without a position")
		return "", 0, errNothingToDo
	}

	if o.CloseOut {
		id, err := e.broker.ClosePositionAtMarket(ctx, o.Symbol)
		return id, pos.MarketValue, err
	}

	amount := minOf(o.RequestedAmount, equity*e.strategy.MaxSecuritySell*o.Multiplier, b.sell)
	capped := decimal.NewFromFloat(math.Max(amount, 0))
	qty := capped.Div(limit).Ceil()
	if qty.Mul(limit).GreaterThan(capped.Mul(decimal.NewFromFloat(1 + SellOvershoot))) {
		qty = qty.Sub(decimal.NewFromInt(1))
	}
	position := decimal.NewFromFloat(pos.Quantity)
	if qty.GreaterThan(position) {
		qty = position
	}
	if !qty.IsPositive() {
		return "", 0, errNothingToDo
	}
	id, err := e.broker.Sell(ctx, o.Symbol, qty.InexactFloat64(), &limitPrice)
	return id, qty.Mul(limit).InexactFloat64(), err
}

func minOf(values ...float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}
