package broker

import (
	"context"
	"time"

	"github.com/aristath/meridian/internal/domain"
)

// CallObserver is notified of every gated call
type CallObserver interface {
	ObserveBrokerCall(class, method string, err error, duration time.Duration)
}

// GatedClient decorates a domain.BrokerClient so every call passes a rate gate.
// Market data and calendar calls use the data gate, portfolio and order calls the trading gate.
type GatedClient struct {
	inner    domain.BrokerClient
	data     *RateGate
	trading  *RateGate
	observer CallObserver
}

// NewGatedClient wraps inner with the given gates
func NewGatedClient(inner domain.BrokerClient, data, trading *RateGate) *GatedClient {
	return &GatedClient{inner: inner, data: data, trading: trading}
}

// WithObserver attaches a call observer (metrics)
func (c *GatedClient) WithObserver(o CallObserver) *GatedClient {
	c.observer = o
	return c
}

func gated[T any](ctx context.Context, c *GatedClient, gate *RateGate, method string, fn func() (T, error)) (T, error) {
	var zero T
	if err := gate.Acquire(ctx); err != nil {
		return zero, err
	}

	start := time.Now()
	v, err := fn()
	if c.observer != nil {
		c.observer.ObserveBrokerCall(gate.Name(), method, err, time.Since(start))
	}
	return v, err
}

// GetPositions implements domain.BrokerClient
func (c *GatedClient) GetPositions(ctx context.Context) ([]domain.Position, error) {
	return gated(ctx, c, c.trading, "get_positions", func() ([]domain.Position, error) {
		return c.inner.GetPositions(ctx)
	})
}

// GetAccount implements domain.BrokerClient
func (c *GatedClient) GetAccount(ctx context.Context) (*domain.BrokerAccount, error) {
	return gated(ctx, c, c.trading, "get_account", func() (*domain.BrokerAccount, error) {
		return c.inner.GetAccount(ctx)
	})
}

// GetLastTrade implements domain.BrokerClient
func (c *GatedClient) GetLastTrade(ctx context.Context, symbol string) (*domain.BrokerTrade, error) {
	return gated(ctx, c, c.data, "get_last_trade", func() (*domain.BrokerTrade, error) {
		return c.inner.GetLastTrade(ctx, symbol)
	})
}

// GetBarHistoryDay implements domain.BrokerClient
func (c *GatedClient) GetBarHistoryDay(ctx context.Context, symbol string, from time.Time) ([]domain.PriceBar, error) {
	return gated(ctx, c, c.data, "get_bar_history", func() ([]domain.PriceBar, error) {
		return c.inner.GetBarHistoryDay(ctx, symbol, from)
	})
}

// Buy implements domain.BrokerClient
func (c *GatedClient) Buy(ctx context.Context, symbol string, qty float64, limit *float64) (string, error) {
	return gated(ctx, c, c.trading, "buy", func() (string, error) {
		return c.inner.Buy(ctx, symbol, qty, limit)
	})
}

// Sell implements domain.BrokerClient
func (c *GatedClient) Sell(ctx context.Context, symbol string, qty float64, limit *float64) (string, error) {
	return gated(ctx, c, c.trading, "sell", func() (string, error) {
		return c.inner.Sell(ctx, symbol, qty, limit)
	})
}

// ClosePositionAtMarket implements domain.BrokerClient
func (c *GatedClient) ClosePositionAtMarket(ctx context.Context, symbol string) (string, error) {
	return gated(ctx, c, c.trading, "close_position", func() (string, error) {
		return c.inner.ClosePositionAtMarket(ctx, symbol)
	})
}

// GetOrder implements domain.BrokerClient
func (c *GatedClient) GetOrder(ctx context.Context, orderID string) (*domain.BrokerOrder, error) {
	return gated(ctx, c, c.trading, "get_order", func() (*domain.BrokerOrder, error) {
		return c.inner.GetOrder(ctx, orderID)
	})
}

// GetMarketOpen implements domain.BrokerClient
func (c *GatedClient) GetMarketOpen(ctx context.Context, day time.Time) (time.Time, error) {
	return gated(ctx, c, c.data, "get_market_open", func() (time.Time, error) {
		return c.inner.GetMarketOpen(ctx, day)
	})
}

// GetMarketClose implements domain.BrokerClient
func (c *GatedClient) GetMarketClose(ctx context.Context, day time.Time) (time.Time, error) {
	return gated(ctx, c, c.data, "get_market_close", func() (time.Time, error) {
		return c.inner.GetMarketClose(ctx, day)
	})
}

// GetLastMarketDay implements domain.BrokerClient
func (c *GatedClient) GetLastMarketDay(ctx context.Context, before time.Time) (time.Time, error) {
	return gated(ctx, c, c.data, "get_last_market_day", func() (time.Time, error) {
		return c.inner.GetLastMarketDay(ctx, before)
	})
}

// GetMarketDays implements domain.BrokerClient
func (c *GatedClient) GetMarketDays(ctx context.Context, from, to time.Time) ([]domain.MarketSession, error) {
	return gated(ctx, c, c.data, "get_market_days", func() ([]domain.MarketSession, error) {
		return c.inner.GetMarketDays(ctx, from, to)
	})
}

var _ domain.BrokerClient = (*GatedClient)(nil)
