package trading

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/clients/paper"
	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

// tradeDay is a Wednesday; the previous market day is Tuesday
var tradeDay = time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)

type fixture struct {
	orders   *OrderRepository
	history  *HistoryRepository
	paper    *paper.Broker
	broker   *testingpkg.FaultyBroker
	strategy *config.Strategy
	account  *domain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testingpkg.NewTestDB(t)
	pb := paper.NewBroker("acct", 100_000)
	pb.SetClock(func() time.Time { return tradeDay.Add(15 * time.Hour) })

	return &fixture{
		orders:   NewOrderRepository(db, zerolog.Nop()),
		history:  NewHistoryRepository(db, zerolog.Nop()),
		paper:    pb,
		broker:   testingpkg.NewFaultyBroker(pb),
		strategy: config.DefaultStrategy(),
		account:  &domain.Account{ID: "acct", Equity: 100_000, TradeableEquity: 100_000, TradableCash: 100_000},
	}
}

func stockPrediction(symbol string, buy, sell float64) *domain.Prediction {
	return &domain.Prediction{Symbol: symbol, BuyMultiplier: buy, SellMultiplier: sell}
}
