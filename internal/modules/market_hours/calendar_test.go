package market_hours

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/clients/paper"
)

func TestCalendar(t *testing.T) {
	broker := paper.NewBroker("acct", 0)
	friday := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	monday := friday.AddDate(0, 0, 3)
	tuesday := monday.AddDate(0, 0, 1)
	broker.AddHoliday(monday)

	cal := NewCalendar(broker, zerolog.Nop())
	ctx := context.Background()

	ok, err := cal.IsMarketDay(ctx, friday)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cal.IsMarketDay(ctx, friday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok, "saturday")

	ok, err = cal.IsMarketDay(ctx, monday)
	require.NoError(t, err)
	assert.False(t, ok, "holiday")

	prev, err := cal.PreviousMarketDay(ctx, tuesday.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, friday, prev)
}

func TestCalendar_Status(t *testing.T) {
	broker := paper.NewBroker("acct", 0)
	cal := NewCalendar(broker, zerolog.Nop())
	ctx := context.Background()

	cal.SetClock(func() time.Time { return time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC) })
	status, err := cal.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsMarketDay)
	assert.True(t, status.IsOpen)

	cal.SetClock(func() time.Time { return time.Date(2024, 3, 8, 22, 0, 0, 0, time.UTC) })
	status, err = cal.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsOpen)

	cal.SetClock(func() time.Time { return time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC) })
	status, err = cal.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsMarketDay)
	assert.False(t, status.IsOpen)
}
