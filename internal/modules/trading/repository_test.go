package trading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/domain"
)

func TestOrderRepository_OneDecisionPerSymbolAndDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := &domain.Order{AccountID: "acct", Symbol: "aapl", Side: domain.OrderSideBuy, Kind: domain.AssetKindStock,
		Day: tradeDay.Add(15 * time.Hour), TargetPrice: 180, RequestedAmount: 2000, Multiplier: 0.8, Priority: 70}
	created, err := f.orders.Create(ctx, o)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, o.ID)

	again := &domain.Order{AccountID: "acct", Symbol: "AAPL", Side: domain.OrderSideSell, Day: tradeDay, TargetPrice: 1}
	created, err = f.orders.Create(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.orders.Create(ctx, &domain.Order{AccountID: "acct", Symbol: "MSFT", Side: domain.OrderSideBuy,
		Kind: domain.AssetKindStock, Day: tradeDay, TargetPrice: 400, Priority: 90})
	require.NoError(t, err)

	day, err := f.orders.GetForDay(ctx, "acct", tradeDay)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, "MSFT", day[0].Symbol, "highest priority first")
	assert.Equal(t, "AAPL", day[1].Symbol)
	assert.Equal(t, tradeDay, day[1].Day)
	assert.Equal(t, domain.OrderSideBuy, day[1].Side)
	assert.Equal(t, 0.8, day[1].Multiplier)
	assert.False(t, day[1].Submitted())
}

func TestOrderRepository_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := &domain.Order{AccountID: "acct", Symbol: "AAPL", Side: domain.OrderSideBuy, Kind: domain.AssetKindStock,
		Day: tradeDay, TargetPrice: 180, RequestedAmount: 2000, Multiplier: 1}
	_, err := f.orders.Create(ctx, o)
	require.NoError(t, err)

	day, err := f.orders.GetForDay(ctx, "acct", tradeDay)
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.False(t, day[0].Submitted())

	require.NoError(t, f.orders.MarkSubmitted(ctx, o.ID, "broker-1", 1800))

	day, err = f.orders.GetForDay(ctx, "acct", tradeDay)
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.True(t, day[0].Submitted())

	unreconciled, err := f.orders.GetUnreconciledThrough(ctx, "acct", tradeDay)
	require.NoError(t, err)
	require.Len(t, unreconciled, 1)
	assert.Equal(t, "broker-1", unreconciled[0].BrokerOrderID)
	assert.Equal(t, 1800.0, unreconciled[0].AppliedAmount)

	require.NoError(t, f.orders.MarkReconciled(ctx, o.ID, tradeDay.AddDate(0, 0, 1)))
	unreconciled, err = f.orders.GetUnreconciledThrough(ctx, "acct", tradeDay)
	require.NoError(t, err)
	assert.Empty(t, unreconciled)

	ranged, err := f.orders.GetInRange(ctx, "acct", tradeDay, tradeDay)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	require.NotNil(t, ranged[0].ReconciledAt)

	n, err := f.orders.DeleteBefore(ctx, tradeDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHistoryRepository_CooldownsAndAverages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fills := []domain.OrderHistory{
		{AccountID: "acct", Symbol: "AAPL", Side: domain.OrderSideBuy, BrokerOrderID: "b1", Day: tradeDay.AddDate(0, 0, -20),
			AvgFillPrice: 100, FilledQty: 10, NextBuy: tradeDay.AddDate(0, 0, -10), NextSell: tradeDay.AddDate(0, 0, -19)},
		{AccountID: "acct", Symbol: "AAPL", Side: domain.OrderSideBuy, BrokerOrderID: "b2", Day: tradeDay.AddDate(0, 0, -2),
			AvgFillPrice: 130, FilledQty: 30, NextBuy: tradeDay.AddDate(0, 0, 5), NextSell: tradeDay.AddDate(0, 0, -1)},
		{AccountID: "acct", Symbol: "KO", Side: domain.OrderSideSell, BrokerOrderID: "s1", Day: tradeDay.AddDate(0, 0, -1),
			AvgFillPrice: 60, FilledQty: 5, NextBuy: tradeDay, NextSell: tradeDay.AddDate(0, 0, 3)},
	}
	for i := range fills {
		ok, err := f.history.Insert(ctx, &fills[i])
		require.NoError(t, err)
		assert.True(t, ok)
	}

	dup := fills[0]
	ok, err := f.history.Insert(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, ok, "a broker order is recorded once")

	cooldowns, err := f.history.Cooldowns(ctx, "acct")
	require.NoError(t, err)
	require.Len(t, cooldowns, 2)

	aapl := cooldowns["AAPL"]
	assert.True(t, aapl.BlocksBuy(tradeDay))
	assert.False(t, aapl.BlocksSell(tradeDay))
	assert.Equal(t, tradeDay.AddDate(0, 0, -2), aapl.LastBuy)

	ko := cooldowns["KO"]
	assert.False(t, ko.BlocksBuy(tradeDay))
	assert.True(t, ko.BlocksSell(tradeDay))
	assert.True(t, ko.LastBuy.IsZero())

	avg, err := f.history.AverageBuyPrice(ctx, "acct", "aapl")
	require.NoError(t, err)
	assert.InDelta(t, 122.5, avg, 1e-9)

	avg, err = f.history.AverageBuyPrice(ctx, "acct", "KO")
	require.NoError(t, err)
	assert.Zero(t, avg)

	recent, err := f.history.GetBySymbol(ctx, "acct", "AAPL", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b2", recent[0].BrokerOrderID)

	n, err := f.history.DeleteBefore(ctx, tradeDay.AddDate(0, 0, -5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
