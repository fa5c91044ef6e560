package calculations

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
	testingpkg "github.com/aristath/meridian/internal/testing"
	"github.com/aristath/meridian/internal/work"
)

type engineFixture struct {
	engine  *MetricEngine
	bars    *universe.BarRepository
	metrics *universe.MetricRepository
	tickers *universe.TickerRepository
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := testingpkg.NewTestDB(t)
	f := &engineFixture{
		bars:    universe.NewBarRepository(db, zerolog.Nop()),
		metrics: universe.NewMetricRepository(db, zerolog.Nop()),
		tickers: universe.NewTickerRepository(db, zerolog.Nop()),
	}
	f.engine = NewMetricEngine(f.bars, f.metrics, f.tickers, work.BatchOptions{Width: 4}, zerolog.Nop())
	return f
}

func (f *engineFixture) seed(t *testing.T, symbol string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.tickers.Upsert(ctx, testingpkg.NewTickerFixture(symbol)))
	_, err := f.bars.Insert(ctx, testingpkg.NewBarSeries(symbol, testingpkg.FixtureStart, n, testingpkg.Wave(100, 10, 30)))
	require.NoError(t, err)
}

func TestMetricEngine_GenerateIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "AAPL", BarLength+9)
	ctx := context.Background()

	n, err := f.engine.Generate(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10, n, "one metric per bar with a full window")

	n, err = f.engine.Generate(ctx, "AAPL")
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := f.metrics.Count(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestMetricEngine_GeneratesOnlyNewBars(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "AAPL", BarLength)
	ctx := context.Background()

	n, err := f.engine.Generate(ctx, "AAPL")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = f.bars.Insert(ctx, testingpkg.NewBarSeries("AAPL", testingpkg.FixtureStart, BarLength+3, testingpkg.Wave(100, 10, 30)))
	require.NoError(t, err)

	n, err = f.engine.Generate(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	history, err := f.metrics.GetHistory(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].Day.Before(history[i].Day))
	}
}

func TestMetricEngine_InsufficientBars(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "AAPL", BarLength-1)

	n, err := f.engine.Generate(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
	assert.Zero(t, n)
}

func TestMetricEngine_GenerateAll(t *testing.T) {
	f := newEngineFixture(t)
	f.seed(t, "AAPL", BarLength+1)
	f.seed(t, "MSFT", BarLength+2)
	f.seed(t, "IBM", 10)

	report, err := f.engine.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Succeeded, "a short history is skipped, not failed")
	assert.Empty(t, report.Failed)

	count, err := f.metrics.Count(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
