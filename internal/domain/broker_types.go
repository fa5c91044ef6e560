package domain

import "time"

// Broker-agnostic types returned by the broker collaborator.

// BrokerAccount is the raw account balance as reported by the broker
type BrokerAccount struct {
	ID          string  // Account identifier
	Equity      float64 // Current equity
	LastEquity  float64 // Equity at previous close
	Cash        float64 // Settled cash
	BuyingPower float64 // Buying power
}

// BrokerTrade is the last trade print for a symbol
type BrokerTrade struct {
	Symbol string
	Price  float64
	Size   float64
	Time   time.Time
}

// BrokerOrderStatus is the lifecycle state of a submitted order
type BrokerOrderStatus string

const (
	BrokerOrderNew             BrokerOrderStatus = "new"
	BrokerOrderPartiallyFilled BrokerOrderStatus = "partially_filled"
	BrokerOrderFilled          BrokerOrderStatus = "filled"
	BrokerOrderCanceled        BrokerOrderStatus = "canceled"
	BrokerOrderExpired         BrokerOrderStatus = "expired"
	BrokerOrderRejected        BrokerOrderStatus = "rejected"
)

// BrokerOrder is the fill status of a submitted order
type BrokerOrder struct {
	ID             string
	Symbol         string
	Side           OrderSide
	Status         BrokerOrderStatus
	Quantity       float64 // Requested
	FilledQty      float64
	FilledAvgPrice float64
	LimitPrice     *float64
	SubmittedAt    time.Time
	FilledAt       *time.Time
}

// HasFill reports whether any quantity was executed
func (o BrokerOrder) HasFill() bool {
	return o.FilledQty > 0 && o.FilledAvgPrice > 0
}

// MarketSession is the open/close time of one trading day
type MarketSession struct {
	Day   time.Time
	Open  time.Time
	Close time.Time
}
