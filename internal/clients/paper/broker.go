// Package paper provides a deterministic in-memory broker.
// It fills orders against the last known price and keeps a weekday market calendar.
package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/meridian/internal/domain"
)

type holding struct {
	qty      float64
	avgPrice float64
}

// Broker is an in-memory domain.BrokerClient
type Broker struct {
	mu         sync.Mutex
	accountID  string
	cash       float64
	lastEquity float64
	holdings   map[string]*holding
	bars       map[string][]domain.PriceBar
	prices     map[string]float64
	orders     map[string]*domain.BrokerOrder
	holidays   map[time.Time]bool
	openAt     time.Duration // Offset from UTC midnight
	closeAt    time.Duration
	now        func() time.Time
}

// NewBroker creates a paper broker holding only cash
func NewBroker(accountID string, cash float64) *Broker {
	return &Broker{
		accountID:  accountID,
		cash:       cash,
		lastEquity: cash,
		holdings:   make(map[string]*holding),
		bars:       make(map[string][]domain.PriceBar),
		prices:     make(map[string]float64),
		orders:     make(map[string]*domain.BrokerOrder),
		holidays:   make(map[time.Time]bool),
		openAt:     14*time.Hour + 30*time.Minute,
		closeAt:    21 * time.Hour,
		now:        time.Now,
	}
}

// SetClock replaces the wall clock used for fill timestamps
func (b *Broker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// SetBars replaces the bar history of a symbol
func (b *Broker) SetBars(symbol string, bars []domain.PriceBar) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sorted := append([]domain.PriceBar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Day.Before(sorted[j].Day) })
	b.bars[symbol] = sorted
}

// SetPrice overrides the last trade price of a symbol
func (b *Broker) SetPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
}

// SetPosition replaces a holding
func (b *Broker) SetPosition(symbol string, qty, avgPrice float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if qty <= 0 {
		delete(b.holdings, symbol)
		return
	}
	b.holdings[symbol] = &holding{qty: qty, avgPrice: avgPrice}
}

// SetCash replaces the cash balance
func (b *Broker) SetCash(cash float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cash = cash
}

// AddHoliday closes the market on day
func (b *Broker) AddHoliday(day time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holidays[domain.TruncateDay(day)] = true
}

// Orders returns every order placed so far
func (b *Broker) Orders() []domain.BrokerOrder {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.BrokerOrder, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// Cash returns the cash balance
func (b *Broker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// price must be called with the lock held
func (b *Broker) price(symbol string) (float64, bool) {
	if p, ok := b.prices[symbol]; ok && p > 0 {
		return p, true
	}
	bars := b.bars[symbol]
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

func (b *Broker) previousClose(symbol string) float64 {
	bars := b.bars[symbol]
	if len(bars) < 2 {
		p, _ := b.price(symbol)
		return p
	}
	return bars[len(bars)-2].Close
}

// GetPositions implements domain.BrokerClient
func (b *Broker) GetPositions(ctx context.Context) ([]domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	symbols := make([]string, 0, len(b.holdings))
	for s := range b.holdings {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	positions := make([]domain.Position, 0, len(symbols))
	for _, s := range symbols {
		h := b.holdings[s]
		price, ok := b.price(s)
		if !ok {
			price = h.avgPrice
		}
		costBasis := h.qty * h.avgPrice
		marketValue := h.qty * price
		pos := domain.Position{
			Symbol:        s,
			Quantity:      h.qty,
			AvgEntryPrice: h.avgPrice,
			CostBasis:     costBasis,
			MarketValue:   marketValue,
			UnrealizedPL:  marketValue - costBasis,
			LastdayPrice:  b.previousClose(s),
			CurrentPrice:  price,
		}
		if costBasis > 0 {
			pos.UnrealizedPLPerc = (marketValue - costBasis) * 100 / costBasis
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// GetAccount implements domain.BrokerClient
func (b *Broker) GetAccount(ctx context.Context) (*domain.BrokerAccount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for s, h := range b.holdings {
		price, ok := b.price(s)
		if !ok {
			price = h.avgPrice
		}
		equity += h.qty * price
	}

	return &domain.BrokerAccount{
		ID:          b.accountID,
		Equity:      equity,
		LastEquity:  b.lastEquity,
		Cash:        b.cash,
		BuyingPower: b.cash,
	}, nil
}

// GetLastTrade implements domain.BrokerClient
func (b *Broker) GetLastTrade(ctx context.Context, symbol string) (*domain.BrokerTrade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.price(symbol)
	if !ok {
		return nil, fmt.Errorf("no trades for %s", symbol)
	}
	return &domain.BrokerTrade{Symbol: symbol, Price: price, Size: 100, Time: b.now()}, nil
}

// GetBarHistoryDay implements domain.BrokerClient
func (b *Broker) GetBarHistoryDay(ctx context.Context, symbol string, from time.Time) ([]domain.PriceBar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from = domain.TruncateDay(from)
	var out []domain.PriceBar
	for _, bar := range b.bars[symbol] {
		if !bar.Day.Before(from) {
			out = append(out, bar)
		}
	}
	return out, nil
}

// Buy implements domain.BrokerClient
func (b *Broker) Buy(ctx context.Context, symbol string, qty float64, limit *float64) (string, error) {
	return b.submit(symbol, domain.OrderSideBuy, qty, limit)
}

// Sell implements domain.BrokerClient
func (b *Broker) Sell(ctx context.Context, symbol string, qty float64, limit *float64) (string, error) {
	return b.submit(symbol, domain.OrderSideSell, qty, limit)
}

// ClosePositionAtMarket implements domain.BrokerClient
func (b *Broker) ClosePositionAtMarket(ctx context.Context, symbol string) (string, error) {
	b.mu.Lock()
	h, ok := b.holdings[symbol]
	qty := 0.0
	if ok {
		qty = h.qty
	}
	b.mu.Unlock()

	if qty <= 0 {
		return "", fmt.Errorf("no position in %s", symbol)
	}
	return b.submit(symbol, domain.OrderSideSell, qty, nil)
}

func (b *Broker) submit(symbol string, side domain.OrderSide, qty float64, limit *float64) (string, error) {
	if qty <= 0 {
		return "", nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.price(symbol)
	if !ok {
		return "", fmt.Errorf("no price for %s", symbol)
	}

	now := b.now()
	order := &domain.BrokerOrder{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Side:        side,
		Status:      domain.BrokerOrderNew,
		Quantity:    qty,
		LimitPrice:  limit,
		SubmittedAt: now,
	}

	marketable := limit == nil ||
		(side == domain.OrderSideBuy && *limit >= price) ||
		(side == domain.OrderSideSell && *limit <= price)

	switch side {
	case domain.OrderSideBuy:
		if qty*price > b.cash {
			return "", fmt.Errorf("insufficient buying power for %s: need %.2f, have %.2f", symbol, qty*price, b.cash)
		}
		if marketable {
			h := b.holdings[symbol]
			if h == nil {
				h = &holding{}
				b.holdings[symbol] = h
			}
			h.avgPrice = (h.qty*h.avgPrice + qty*price) / (h.qty + qty)
			h.qty += qty
			b.cash -= qty * price
		}
	case domain.OrderSideSell:
		h := b.holdings[symbol]
		if h == nil || h.qty < qty {
			return "", fmt.Errorf("insufficient quantity for %s", symbol)
		}
		if marketable {
			h.qty -= qty
			if h.qty <= 0 {
				delete(b.holdings, symbol)
			}
			b.cash += qty * price
		}
	}

	if marketable {
		filledAt := now
		order.Status = domain.BrokerOrderFilled
		order.FilledQty = qty
		order.FilledAvgPrice = price
		order.FilledAt = &filledAt
	}

	b.orders[order.ID] = order
	return order.ID, nil
}

// GetOrder implements domain.BrokerClient
func (b *Broker) GetOrder(ctx context.Context, orderID string) (*domain.BrokerOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	cp := *o
	return &cp, nil
}

// isMarketDay must be called with the lock held
func (b *Broker) isMarketDay(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday && !b.holidays[day]
}

// GetMarketOpen implements domain.BrokerClient
func (b *Broker) GetMarketOpen(ctx context.Context, day time.Time) (time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := domain.TruncateDay(day)
	if !b.isMarketDay(d) {
		return time.Time{}, fmt.Errorf("market closed on %s", d.Format("2006-01-02"))
	}
	return d.Add(b.openAt), nil
}

// GetMarketClose implements domain.BrokerClient
func (b *Broker) GetMarketClose(ctx context.Context, day time.Time) (time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := domain.TruncateDay(day)
	if !b.isMarketDay(d) {
		return time.Time{}, fmt.Errorf("market closed on %s", d.Format("2006-01-02"))
	}
	return d.Add(b.closeAt), nil
}

// GetLastMarketDay implements domain.BrokerClient. It returns the latest market day strictly before the given day.
func (b *Broker) GetLastMarketDay(ctx context.Context, before time.Time) (time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := domain.TruncateDay(before)
	for i := 0; i < 30; i++ {
		d = d.AddDate(0, 0, -1)
		if b.isMarketDay(d) {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("no market day in the 30 days before %s", before.Format("2006-01-02"))
}

// GetMarketDays implements domain.BrokerClient. Both ends are inclusive.
func (b *Broker) GetMarketDays(ctx context.Context, from, to time.Time) ([]domain.MarketSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sessions []domain.MarketSession
	for d := domain.TruncateDay(from); !d.After(domain.TruncateDay(to)); d = d.AddDate(0, 0, 1) {
		if b.isMarketDay(d) {
			sessions = append(sessions, domain.MarketSession{Day: d, Open: d.Add(b.openAt), Close: d.Add(b.closeAt)})
		}
	}
	return sessions, nil
}

var _ domain.BrokerClient = (*Broker)(nil)
