package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/trading"
	"github.com/aristath/meridian/internal/modules/universe"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

func TestService_Run(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	today := domain.TruncateDay(now)

	orders := trading.NewOrderRepository(db, zerolog.Nop())
	history := trading.NewHistoryRepository(db, zerolog.Nop())
	bars := universe.NewBarRepository(db, zerolog.Nop())

	for i, age := range []int{40, 31, 29, 0} {
		_, err := orders.Create(ctx, &domain.Order{AccountID: "acct", Symbol: "S" + string(rune('A'+i)),
			Side: domain.OrderSideBuy, Day: today.AddDate(0, 0, -age), TargetPrice: 10})
		require.NoError(t, err)
	}
	for i, age := range []int{400, 200} {
		_, err := history.Insert(ctx, &domain.OrderHistory{AccountID: "acct", Symbol: "AAPL", Side: domain.OrderSideBuy,
			BrokerOrderID: string(rune('x' + i)), Day: today.AddDate(0, 0, -age), AvgFillPrice: 10, FilledQty: 1,
			NextBuy: today, NextSell: today})
		require.NoError(t, err)
	}
	_, err := bars.Insert(ctx, testingpkg.NewBarSeries("OLD", today.AddDate(-6, 0, 0), 3, testingpkg.Rising(10, 1)))
	require.NoError(t, err)
	_, err = bars.Insert(ctx, testingpkg.NewBarSeries("NEW", today.AddDate(0, 0, -3), 3, testingpkg.Rising(10, 1)))
	require.NoError(t, err)

	s := NewService(orders, history, bars, zerolog.Nop())
	s.SetClock(func() time.Time { return now })

	result, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Orders)
	assert.Equal(t, int64(1), result.History)
	assert.Equal(t, int64(3), result.Bars)

	kept, err := orders.GetInRange(ctx, "acct", today.AddDate(-1, 0, 0), today)
	require.NoError(t, err)
	assert.Len(t, kept, 2)

	again, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, *again)
}
