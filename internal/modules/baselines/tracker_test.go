package baselines

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

func TestCompute(t *testing.T) {
	metrics := []domain.BarMetric{
		{SMASMA: 2, RSI: 50},
		{SMASMA: 4, RSI: 50},
		{SMASMA: 4, RSI: 50},
		{SMASMA: 6, RSI: 50},
	}

	b := Compute(metrics)
	require.Len(t, b, len(domain.MetricFields))

	sma := b.Get(domain.FieldSMASMA)
	assert.InDelta(t, 4.0, sma.Mean, 1e-9)
	assert.InDelta(t, 1.41421356, sma.StdDev, 1e-6)
	// differences are 2, 0, 2
	assert.InDelta(t, 4.0/3.0, sma.VelocityMean, 1e-9)
	assert.Greater(t, sma.VelocityStdDev, 0.0)

	rsi := b.Get(domain.FieldRSI)
	assert.Equal(t, 50.0, rsi.Mean)
	assert.Zero(t, rsi.StdDev)

	assert.True(t, b.Established(domain.FieldSMASMA))
	assert.False(t, b.Established(domain.FieldRSI))
}

func TestCompute_Empty(t *testing.T) {
	b := Compute(nil)
	assert.False(t, b.Established())
}

func TestTracker_RefreshAll(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	ctx := context.Background()
	bars := universe.NewBarRepository(db, zerolog.Nop())
	metrics := universe.NewMetricRepository(db, zerolog.Nop())
	tickers := universe.NewTickerRepository(db, zerolog.Nop())

	require.NoError(t, tickers.Upsert(ctx, testingpkg.NewTickerFixture("AAPL")))
	require.NoError(t, tickers.Upsert(ctx, testingpkg.NewTickerFixture("MSFT")))

	_, err := bars.Insert(ctx, testingpkg.NewBarSeries("AAPL", testingpkg.FixtureStart, 5, testingpkg.Rising(10, 1)))
	require.NoError(t, err)
	stored, err := bars.GetBars(ctx, "AAPL")
	require.NoError(t, err)

	var rows []domain.BarMetric
	for i, b := range stored {
		rows = append(rows, domain.BarMetric{BarID: b.ID, Symbol: "AAPL", Day: b.Day, SMASMA: float64(i * 3)})
	}
	_, err = metrics.Insert(ctx, rows)
	require.NoError(t, err)

	at := time.Date(2024, 3, 9, 2, 0, 0, 0, time.UTC)
	tracker := NewTracker(metrics, tickers, zerolog.Nop())
	tracker.SetClock(func() time.Time { return at })

	n, err := tracker.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	aapl, err := tickers.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 6.0, aapl.Baselines.Get(domain.FieldSMASMA).Mean, 1e-9)
	assert.InDelta(t, 3.0, aapl.Baselines.Get(domain.FieldSMASMA).VelocityMean, 1e-9)
	assert.Equal(t, at, aapl.AveragesCalculated)

	msft, err := tickers.GetBySymbol(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, msft.Baselines.Established(domain.FieldSMASMA))
}
