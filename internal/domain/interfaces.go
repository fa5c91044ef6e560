package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared across modules
var (
	// ErrInsufficientHistory means too few bars were available to compute a result
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrPositionNotFound means the broker reported no holding for a symbol that needs one
	ErrPositionNotFound = errors.New("position not found")
	// ErrInvariantViolation marks data that breaks a structural expectation and needs manual attention
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrSessionUnavailable means the broker session bootstrap failed
	ErrSessionUnavailable = errors.New("broker session unavailable")
)

// BrokerClient defines broker-agnostic trading, portfolio and calendar operations.
// Every call is fallible and must be rate-gated by the caller.
type BrokerClient interface {
	// Portfolio operations
	GetPositions(ctx context.Context) ([]Position, error)
	GetAccount(ctx context.Context) (*BrokerAccount, error)

	// Market data operations
	GetLastTrade(ctx context.Context, symbol string) (*BrokerTrade, error)
	GetBarHistoryDay(ctx context.Context, symbol string, from time.Time) ([]PriceBar, error)

	// Trading operations. An empty order id with a nil error means no order was placed.
	Buy(ctx context.Context, symbol string, qty float64, limit *float64) (string, error)
	Sell(ctx context.Context, symbol string, qty float64, limit *float64) (string, error)
	ClosePositionAtMarket(ctx context.Context, symbol string) (string, error)
	GetOrder(ctx context.Context, orderID string) (*BrokerOrder, error)

	// Calendar operations
	GetMarketOpen(ctx context.Context, day time.Time) (time.Time, error)
	GetMarketClose(ctx context.Context, day time.Time) (time.Time, error)
	GetLastMarketDay(ctx context.Context, before time.Time) (time.Time, error)
	GetMarketDays(ctx context.Context, from, to time.Time) ([]MarketSession, error)
}
