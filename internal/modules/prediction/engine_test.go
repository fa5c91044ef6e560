package prediction

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/universe"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

func history(n int, m domain.BarMetric) []domain.BarMetric {
	out := make([]domain.BarMetric, n)
	for i := range out {
		out[i] = m
	}
	return out
}

func establishedTicker() domain.Ticker {
	t := testingpkg.NewTickerFixture("AAPL")
	t.Baselines = testingpkg.EstablishedBaselines()
	return t
}

func TestPredict_ShortHistory(t *testing.T) {
	assert.Nil(t, Predict(establishedTicker(), history(MinHistory-1, domain.BarMetric{}), 0))
	assert.NotNil(t, Predict(establishedTicker(), history(MinHistory, domain.BarMetric{}), 0))
}

func TestPredict_OlderMetricsOnlyGateHistory(t *testing.T) {
	m := domain.BarMetric{AlmaSMA1: 4, AlmaSMA2: 6, AlmaSMA3: -2, SMASMA: 3, WeekTrend: 1, Stochastic: 55}
	recent := history(MinHistory, m)
	recent[1].SMASMA = 2
	base := Predict(establishedTicker(), recent, 0)
	require.NotNil(t, base)

	for i := 2; i < MinHistory; i++ {
		recent[i] = domain.BarMetric{AlmaSMA1: -40, SMASMA: -30, WeekTrend: -20, Stochastic: 5}
	}
	got := Predict(establishedTicker(), recent, 0)
	require.NotNil(t, got)
	assert.Equal(t, base.BuyMultiplier, got.BuyMultiplier)
	assert.Equal(t, base.SellMultiplier, got.SellMultiplier)
}

func TestPredict_DegenerateBaseline(t *testing.T) {
	ticker := establishedTicker()
	ticker.Baselines[domain.FieldAlmaSMA2] = domain.Distribution{Mean: 3}
	assert.Nil(t, Predict(ticker, history(MinHistory, domain.BarMetric{}), 0))

	ticker = establishedTicker()
	sma := ticker.Baselines[domain.FieldSMASMA]
	sma.VelocityStdDev = 0
	ticker.Baselines[domain.FieldSMASMA] = sma
	assert.Nil(t, Predict(ticker, history(MinHistory, domain.BarMetric{}), 0))

	ticker.Baselines = nil
	assert.Nil(t, Predict(ticker, history(MinHistory, domain.BarMetric{}), 0))
}

func TestPredict_MultipliersAlwaysInUnitRange(t *testing.T) {
	values := []float64{-90, -25, -10, -1, 0, 1, 10, 25, 90}
	for _, alma := range values {
		for _, sma := range values {
			for _, e := range []float64{-1, -0.3, 0, 0.6, 1} {
				m := domain.BarMetric{
					AlmaSMA1: alma, AlmaSMA2: alma / 2, AlmaSMA3: -alma,
					SMASMA: sma, WeekTrend: sma / 3, Stochastic: 50 + alma,
				}
				recent := history(MinHistory, m)
				recent[1].SMASMA = -sma

				p := Predict(establishedTicker(), recent, e)
				require.NotNil(t, p)
				assert.GreaterOrEqual(t, p.BuyMultiplier, 0.0)
				assert.LessOrEqual(t, p.BuyMultiplier, 1.0)
				assert.GreaterOrEqual(t, p.SellMultiplier, 0.0)
				assert.LessOrEqual(t, p.SellMultiplier, 1.0)
			}
		}
	}
}

func TestPredict_RoundsToThreeDecimals(t *testing.T) {
	m := domain.BarMetric{AlmaSMA1: 3.3, AlmaSMA2: -1.7, AlmaSMA3: 7.1, SMASMA: 2.2, WeekTrend: 0.9, Stochastic: 61}
	p := Predict(establishedTicker(), history(MinHistory, m), 0.25)
	require.NotNil(t, p)
	assert.Equal(t, p.BuyMultiplier, float64(int(p.BuyMultiplier*1000+0.5))/1000)
	assert.Equal(t, m, p.Metric)
	assert.Equal(t, "AAPL", p.Symbol)
}

func TestPredict_EncouragementShiftsConviction(t *testing.T) {
	m := domain.BarMetric{AlmaSMA1: 4, AlmaSMA2: 6, AlmaSMA3: -2, SMASMA: 3, WeekTrend: 1, Stochastic: 55}
	recent := history(MinHistory, m)
	recent[1].SMASMA = 2

	neutral := Predict(establishedTicker(), recent, 0)
	eager := Predict(establishedTicker(), recent, 1)
	reluctant := Predict(establishedTicker(), recent, -1)
	require.NotNil(t, neutral)

	assert.Greater(t, eager.BuyMultiplier, neutral.BuyMultiplier)
	assert.Less(t, eager.SellMultiplier, neutral.SellMultiplier)
	assert.Greater(t, reluctant.SellMultiplier, neutral.SellMultiplier)
	assert.Less(t, reluctant.BuyMultiplier, neutral.BuyMultiplier)
}

func TestPredict_MomentumFavoursBuying(t *testing.T) {
	rising := history(MinHistory, domain.BarMetric{SMASMA: 9, WeekTrend: 8, Stochastic: 50})
	rising[1].SMASMA = 5
	falling := history(MinHistory, domain.BarMetric{SMASMA: -9, WeekTrend: -8, Stochastic: 50})
	falling[1].SMASMA = -5

	up := Predict(establishedTicker(), rising, 0)
	down := Predict(establishedTicker(), falling, 0)
	require.NotNil(t, up)
	require.NotNil(t, down)

	assert.Greater(t, up.BuyMultiplier-up.SellMultiplier, down.BuyMultiplier-down.SellMultiplier)
}

func TestEncourage(t *testing.T) {
	tests := []struct {
		name            string
		buy, sell, e    float64
		wantBuy, wantSl float64
	}{
		{"neutral", 0.4, 0.6, 0, 0.4, 0.6},
		{"full encouragement", 0.4, 0.6, 1, 0.7, 0.3},
		{"full discouragement", 0.4, 0.6, -1, 0.2, 0.8},
		{"clamped", 0.4, 0.6, 3, 0.7, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buy, sell := Encourage(tt.buy, tt.sell, tt.e)
			assert.InDelta(t, tt.wantBuy, buy, 1e-9)
			assert.InDelta(t, tt.wantSl, sell, 1e-9)
		})
	}
}

func TestEngine_PredictAllSkipsShortHistory(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	ctx := context.Background()
	bars := universe.NewBarRepository(db, zerolog.Nop())
	metrics := universe.NewMetricRepository(db, zerolog.Nop())

	seed := func(symbol string, n int) {
		_, err := bars.Insert(ctx, testingpkg.NewBarSeries(symbol, testingpkg.FixtureStart, n, testingpkg.Rising(10, 1)))
		require.NoError(t, err)
		stored, err := bars.GetBars(ctx, symbol)
		require.NoError(t, err)
		var rows []domain.BarMetric
		for _, b := range stored {
			rows = append(rows, domain.BarMetric{BarID: b.ID, Symbol: symbol, Day: b.Day, SMASMA: 1, Stochastic: 50})
		}
		_, err = metrics.Insert(ctx, rows)
		require.NoError(t, err)
	}
	seed("LONG", 10)
	seed("SHORT", 6)

	long := establishedTicker()
	long.Symbol = "LONG"
	short := establishedTicker()
	short.Symbol = "SHORT"

	engine := NewEngine(metrics, 0, zerolog.Nop())
	predictions, err := engine.PredictAll(ctx, []domain.Ticker{long, short})
	require.NoError(t, err)

	assert.Contains(t, predictions, "LONG")
	assert.NotContains(t, predictions, "SHORT")
	assert.Equal(t, testingpkg.FixtureStart.AddDate(0, 0, 9), predictions["LONG"].Metric.Day)
}
