package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/meridian/internal/domain"
)

// FaultyBroker wraps a broker and injects errors per call and symbol.
// Calls without an injected fault are delegated to the wrapped broker.
type FaultyBroker struct {
	domain.BrokerClient

	mu     sync.Mutex
	faults map[string]error
	calls  map[string]int
}

// NewFaultyBroker wraps inner
func NewFaultyBroker(inner domain.BrokerClient) *FaultyBroker {
	return &FaultyBroker{
		BrokerClient: inner,
		faults:       make(map[string]error),
		calls:        make(map[string]int),
	}
}

// Fail makes every call of op ("buy", "sell", "bars", "order", "positions", "account") for key return err.
// key is the symbol, or the order id for "order"; use "" for calls without one.
func (f *FaultyBroker) Fail(op, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op+":"+key] = err
}

// Clear removes every injected fault
func (f *FaultyBroker) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = make(map[string]error)
}

// Calls returns how often op was invoked for key
func (f *FaultyBroker) Calls(op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+":"+key]
}

func (f *FaultyBroker) check(op, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op+":"+key]++
	return f.faults[op+":"+key]
}

// GetPositions returns the injected fault or delegates
func (f *FaultyBroker) GetPositions(ctx context.Context) ([]domain.Position, error) {
	if err := f.check("positions", ""); err != nil {
		return nil, err
	}
	return f.BrokerClient.GetPositions(ctx)
}

// GetAccount returns the injected fault or delegates
func (f *FaultyBroker) GetAccount(ctx context.Context) (*domain.BrokerAccount, error) {
	if err := f.check("account", ""); err != nil {
		return nil, err
	}
	return f.BrokerClient.GetAccount(ctx)
}

// GetBarHistoryDay returns the injected fault or delegates
func (f *FaultyBroker) GetBarHistoryDay(ctx context.Context, symbol string, from time.Time) ([]domain.PriceBar, error) {
	if err := f.check("bars", symbol); err != nil {
		return nil, err
	}
	return f.BrokerClient.GetBarHistoryDay(ctx, symbol, from)
}

// Buy returns the injected fault or delegates
func (f *FaultyBroker) Buy(ctx context.Context, symbol string, qty float64, limit *float64) (string, error) {
	if err := f.check("buy", symbol); err != nil {
		return "", err
	}
	return f.BrokerClient.Buy(ctx, symbol, qty, limit)
}

// Sell returns the injected fault or delegates
func (f *FaultyBroker) Sell(ctx context.Context, symbol string, qty float64, limit *float64) (string, error) {
	if err := f.check("sell", symbol); err != nil {
		return "", err
	}
	return f.BrokerClient.Sell(ctx, symbol, qty, limit)
}

// GetOrder returns the injected fault or delegates
func (f *FaultyBroker) GetOrder(ctx context.Context, orderID string) (*domain.BrokerOrder, error) {
	if err := f.check("order", orderID); err != nil {
		return nil, err
	}
	return f.BrokerClient.GetOrder(ctx, orderID)
}
