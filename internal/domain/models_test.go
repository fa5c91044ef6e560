package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriceBar_Price(t *testing.T) {
	bar := PriceBar{Open: 10, High: 14, Low: 8, Close: 12}

	assert.Equal(t, 11.0, bar.Price())
	assert.InDelta(t, 34.0/3, bar.HLC3(), 1e-12)
}

func TestBarMetric_Value(t *testing.T) {
	metric := BarMetric{
		AlmaSMA1:        1,
		AlmaSMA2:        2,
		AlmaSMA3:        3,
		PriceSMA1:       4,
		PriceSMA2:       5,
		PriceSMA3:       6,
		SMASMA:          7,
		RegressionAngle: 8,
		RSI:             9,
		Stochastic:      10,
		WeekTrend:       11,
		WeekVariance:    12,
		MonthTrend:      13,
		VolAlmaSMA:      14,
		ProfitLossPerc:  15,
	}

	for i, field := range MetricFields {
		assert.Equal(t, float64(i+1), metric.Value(field), string(field))
	}
	assert.Equal(t, 0.0, metric.Value(MetricField("unknown")))
}

func TestDistribution_Bands(t *testing.T) {
	d := Distribution{Mean: 10, StdDev: 2, VelocityMean: -1, VelocityStdDev: 0.5}

	assert.Equal(t, 12.0, d.Upper())
	assert.Equal(t, 8.0, d.Lower())
	assert.Equal(t, -0.5, d.VelocityUpper())
	assert.Equal(t, -1.5, d.VelocityLower())
}

func TestBaselines_Established(t *testing.T) {
	tests := []struct {
		name      string
		baselines Baselines
		expected  bool
	}{
		{"nil baselines", nil, false},
		{"empty baselines", Baselines{}, false},
		{
			name: "all spreads present",
			baselines: Baselines{
				FieldSMASMA:     {Mean: 1, StdDev: 1},
				FieldStochastic: {Mean: 50, StdDev: 10},
			},
			expected: true,
		},
		{
			name: "zero spread",
			baselines: Baselines{
				FieldSMASMA:     {Mean: 1, StdDev: 0},
				FieldStochastic: {Mean: 50, StdDev: 10},
			},
			expected: false,
		},
		{
			name: "missing field",
			baselines: Baselines{
				FieldSMASMA: {Mean: 1, StdDev: 1},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.baselines.Established(FieldSMASMA, FieldStochastic))
		})
	}
}

func TestBaselines_GetNil(t *testing.T) {
	var b Baselines
	assert.Equal(t, Distribution{}, b.Get(FieldRSI))
}

func TestPrediction_Multiplier(t *testing.T) {
	p := &Prediction{BuyMultiplier: 0.7, SellMultiplier: 0.2}

	assert.Equal(t, 0.7, p.Multiplier(OrderSideBuy))
	assert.Equal(t, 0.2, p.Multiplier(OrderSideSell))

	var missing *Prediction
	assert.Equal(t, 0.0, missing.Multiplier(OrderSideBuy))
}

func TestOrderHistory_Cooldown(t *testing.T) {
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	h := OrderHistory{
		NextBuy:  day.AddDate(0, 0, 3),
		NextSell: day,
	}

	assert.True(t, h.BlocksBuy(day))
	assert.True(t, h.BlocksBuy(day.AddDate(0, 0, 2)))
	assert.False(t, h.BlocksBuy(day.AddDate(0, 0, 3)))
	assert.False(t, h.BlocksSell(day))
}

func TestOrder_Submitted(t *testing.T) {
	assert.False(t, Order{}.Submitted())
	assert.True(t, Order{BrokerOrderID: "abc"}.Submitted())
}

func TestBrokerOrder_HasFill(t *testing.T) {
	assert.False(t, BrokerOrder{Status: BrokerOrderNew}.HasFill())
	assert.True(t, BrokerOrder{FilledQty: 2, FilledAvgPrice: 10}.HasFill())
}

func TestTruncateDay(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, 3, 11, 22, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), TruncateDay(ts))
}
