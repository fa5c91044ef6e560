package trading

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/rebalancing"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

func buyProposal(symbol string, amount, score, multiplier float64) rebalancing.Proposal {
	return rebalancing.Proposal{
		Symbol:     symbol,
		Kind:       domain.AssetKindStock,
		Amount:     amount,
		Score:      score,
		Prediction: stockPrediction(symbol, multiplier, 0.5),
	}
}

func symbolsOf(orders []domain.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.Symbol
	}
	return out
}

func TestDecider_DailyCapByPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, s := range []string{"A", "B", "C", "D"} {
		f.paper.SetPrice(s, 50)
	}
	d := NewDecider(f.orders, f.history, f.broker, f.strategy, zerolog.Nop())

	proposals := []rebalancing.Proposal{
		buyProposal("D", 1000, 60, 1),
		buyProposal("B", 1000, 80, 1),
		buyProposal("A", 1000, 90, 1),
		buyProposal("C", 1000, 70, 1),
	}

	created, err := d.Decide(ctx, f.account, tradeDay, proposals, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, symbolsOf(created), "three full buys fill the daily cap")
	assert.Equal(t, 50.0, created[0].TargetPrice)
	assert.Equal(t, 1000.0, created[0].RequestedAmount)

	again, err := d.Decide(ctx, f.account, tradeDay, proposals, nil)
	require.NoError(t, err)
	assert.Empty(t, again, "decided symbols and the used cap carry over within the day")
}

func TestDecider_SmallerMultipliersFitMoreOrders(t *testing.T) {
	f := newFixture(t)
	var proposals []rebalancing.Proposal
	for _, s := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		f.paper.SetPrice(s, 10)
		proposals = append(proposals, buyProposal(s, 500, 50, 0.5))
	}
	d := NewDecider(f.orders, f.history, f.broker, f.strategy, zerolog.Nop())

	created, err := d.Decide(context.Background(), f.account, tradeDay, proposals, nil)
	require.NoError(t, err)
	assert.Len(t, created, 6)
}

func TestDecider_CooldownAndCloseOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.paper.SetPrice("AAPL", 100)
	f.paper.SetPrice("KO", 60)

	_, err := f.history.Insert(ctx, &domain.OrderHistory{AccountID: "acct", Symbol: "AAPL", Side: domain.OrderSideBuy,
		BrokerOrderID: "b1", Day: tradeDay.AddDate(0, 0, -3), AvgFillPrice: 90, FilledQty: 10,
		NextBuy: tradeDay.AddDate(0, 0, 4), NextSell: tradeDay.AddDate(0, 0, -2)})
	require.NoError(t, err)
	_, err = f.history.Insert(ctx, &domain.OrderHistory{AccountID: "acct", Symbol: "KO", Side: domain.OrderSideSell,
		BrokerOrderID: "s1", Day: tradeDay.AddDate(0, 0, -1), AvgFillPrice: 60, FilledQty: 10,
		NextBuy: tradeDay, NextSell: tradeDay.AddDate(0, 0, 10)})
	require.NoError(t, err)

	d := NewDecider(f.orders, f.history, f.broker, f.strategy, zerolog.Nop())

	blocked, err := d.Decide(ctx, f.account, tradeDay, []rebalancing.Proposal{
		buyProposal("AAPL", 1000, 80, 1),
		{Symbol: "KO", Kind: domain.AssetKindStock, Amount: -500, Score: 10, Prediction: stockPrediction("KO", 0.2, 0.9)},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, blocked)

	closeOut, err := d.Decide(ctx, f.account, tradeDay, []rebalancing.Proposal{
		{Symbol: "KO", Kind: domain.AssetKindStock, Amount: -600, CloseOut: true, Prediction: stockPrediction("KO", 0.2, 0.9)},
	}, nil)
	require.NoError(t, err)
	require.Len(t, closeOut, 1)
	assert.True(t, closeOut[0].CloseOut)
	assert.Equal(t, domain.OrderSideSell, closeOut[0].Side)
	assert.Equal(t, 1.0, closeOut[0].Multiplier)
	assert.Equal(t, 600.0, closeOut[0].RequestedAmount)
}

func TestDecider_SkipsWithoutMultiplierOrPrice(t *testing.T) {
	f := newFixture(t)
	f.paper.SetPrice("AAPL", 100)
	f.paper.SetPrice("BND", 72)
	d := NewDecider(f.orders, f.history, f.broker, f.strategy, zerolog.Nop())

	created, err := d.Decide(context.Background(), f.account, tradeDay, []rebalancing.Proposal{
		buyProposal("AAPL", 1000, 80, 0),
		buyProposal("MSFT", 1000, 80, 1),
		{Symbol: "BND", Kind: domain.AssetKindBond, Amount: 3000},
	}, nil)
	require.NoError(t, err)
	require.Len(t, created, 1, "zero multiplier and missing quote are skipped")
	assert.Equal(t, "BND", created[0].Symbol)
	assert.Equal(t, domain.AssetKindBond, created[0].Kind)
	assert.Equal(t, 1.0, created[0].Multiplier)
	assert.Zero(t, created[0].Priority)
}

func TestDecider_RecordsDaysSinceLastBuy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.paper.SetPrice("AAPL", 100)

	_, err := f.history.Insert(ctx, &domain.OrderHistory{AccountID: "acct", Symbol: "AAPL", Side: domain.OrderSideBuy,
		BrokerOrderID: "b1", Day: tradeDay.AddDate(0, 0, -9), AvgFillPrice: 90, FilledQty: 10,
		NextBuy: tradeDay.AddDate(0, 0, -2), NextSell: tradeDay.AddDate(0, 0, -8)})
	require.NoError(t, err)

	d := NewDecider(f.orders, f.history, f.broker, f.strategy, zerolog.Nop())
	created, err := d.Decide(ctx, f.account, tradeDay, []rebalancing.Proposal{buyProposal("AAPL", 1000, 80, 1)}, nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 9, created[0].DaysSinceLastBuy)
}

func TestPriority(t *testing.T) {
	baselines := testingpkg.EstablishedBaselines()
	pl := baselines.Get(domain.FieldProfitLossPerc)

	atMean := &domain.Prediction{Metric: domain.BarMetric{ProfitLossPerc: pl.Mean}}
	atUpper := &domain.Prediction{Metric: domain.BarMetric{ProfitLossPerc: pl.Upper()}}

	assert.Equal(t, 80.0, Priority(80, atMean, baselines))
	assert.Zero(t, Priority(80, atUpper, baselines))
	assert.Equal(t, 80.0, Priority(80, atUpper, nil), "no baseline keeps the score")
	assert.Equal(t, 80.0, Priority(80, nil, baselines))
}
