// Package domain provides core domain models and types.
package domain

import "time"

// OrderSide is the direction of an order or fill
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// AssetKind separates scored equities from the fixed bond sleeve
type AssetKind string

const (
	AssetKindStock AssetKind = "STOCK"
	AssetKindBond  AssetKind = "BOND"
)

// PriceBar is one daily OHLCV bar. Immutable once stored; one per (symbol, day).
type PriceBar struct {
	ID      int64     `json:"id"`
	Symbol  string    `json:"symbol"`
	Day     time.Time `json:"day"`      // Trading day at UTC midnight
	TimeUTC int64     `json:"time_utc"` // Day as millisecond epoch
	Open    float64   `json:"open"`
	High    float64   `json:"high"`
	Low     float64   `json:"low"`
	Close   float64   `json:"close"`
	Volume  float64   `json:"volume"`
}

// Price is the average of open, high, low and close
func (b PriceBar) Price() float64 {
	return (b.Open + b.High + b.Low + b.Close) / 4
}

// HLC3 is the average of high, low and close
func (b PriceBar) HLC3() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// BarMetric holds the indicators derived from the window ending at one bar.
// Computed once per bar and never recomputed.
type BarMetric struct {
	ID              int64     `json:"id"`
	BarID           int64     `json:"bar_id"`
	Symbol          string    `json:"symbol"`
	Day             time.Time `json:"day"`
	AlmaSMA1        float64   `json:"alma_sma1"`  // ALMA vs 40-bar band
	AlmaSMA2        float64   `json:"alma_sma2"`  // ALMA vs 80-bar band
	AlmaSMA3        float64   `json:"alma_sma3"`  // ALMA vs 120-bar band
	PriceSMA1       float64   `json:"price_sma1"` // Price vs 40-bar band
	PriceSMA2       float64   `json:"price_sma2"`
	PriceSMA3       float64   `json:"price_sma3"`
	SMASMA          float64   `json:"smasma"`
	RegressionAngle float64   `json:"regression_angle"`
	RSI             float64   `json:"rsi"`
	Stochastic      float64   `json:"stochastic"`
	WeekTrend       float64   `json:"week_trend"`
	WeekVariance    float64   `json:"week_variance"`
	MonthTrend      float64   `json:"month_trend"`
	VolAlmaSMA      float64   `json:"vol_alma_sma"`
	ProfitLossPerc  float64   `json:"profit_loss_perc"`
}

// MetricField names a numeric BarMetric field tracked by the baselines
type MetricField string

const (
	FieldAlmaSMA1        MetricField = "alma_sma1"
	FieldAlmaSMA2        MetricField = "alma_sma2"
	FieldAlmaSMA3        MetricField = "alma_sma3"
	FieldPriceSMA1       MetricField = "price_sma1"
	FieldPriceSMA2       MetricField = "price_sma2"
	FieldPriceSMA3       MetricField = "price_sma3"
	FieldSMASMA          MetricField = "smasma"
	FieldRegressionAngle MetricField = "regression_angle"
	FieldRSI             MetricField = "rsi"
	FieldStochastic      MetricField = "stochastic"
	FieldWeekTrend       MetricField = "week_trend"
	FieldWeekVariance    MetricField = "week_variance"
	FieldMonthTrend      MetricField = "month_trend"
	FieldVolAlmaSMA      MetricField = "vol_alma_sma"
	FieldProfitLossPerc  MetricField = "profit_loss_perc"
)

// MetricFields lists every field a baseline distribution is kept for
var MetricFields = []MetricField{
	FieldAlmaSMA1, FieldAlmaSMA2, FieldAlmaSMA3,
	FieldPriceSMA1, FieldPriceSMA2, FieldPriceSMA3,
	FieldSMASMA, FieldRegressionAngle, FieldRSI, FieldStochastic,
	FieldWeekTrend, FieldWeekVariance, FieldMonthTrend,
	FieldVolAlmaSMA, FieldProfitLossPerc,
}

// Value returns the named field
func (m BarMetric) Value(field MetricField) float64 {
	switch field {
	case FieldAlmaSMA1:
		return m.AlmaSMA1
	case FieldAlmaSMA2:
		return m.AlmaSMA2
	case FieldAlmaSMA3:
		return m.AlmaSMA3
	case FieldPriceSMA1:
		return m.PriceSMA1
	case FieldPriceSMA2:
		return m.PriceSMA2
	case FieldPriceSMA3:
		return m.PriceSMA3
	case FieldSMASMA:
		return m.SMASMA
	case FieldRegressionAngle:
		return m.RegressionAngle
	case FieldRSI:
		return m.RSI
	case FieldStochastic:
		return m.Stochastic
	case FieldWeekTrend:
		return m.WeekTrend
	case FieldWeekVariance:
		return m.WeekVariance
	case FieldMonthTrend:
		return m.MonthTrend
	case FieldVolAlmaSMA:
		return m.VolAlmaSMA
	case FieldProfitLossPerc:
		return m.ProfitLossPerc
	}
	return 0
}

// Distribution is the rolling baseline of one metric field and of its first differences
type Distribution struct {
	Mean           float64 `msgpack:"m" json:"mean"`
	StdDev         float64 `msgpack:"s" json:"std_dev"`
	VelocityMean   float64 `msgpack:"vm" json:"velocity_mean"`
	VelocityStdDev float64 `msgpack:"vs" json:"velocity_std_dev"`
}

// Upper is mean + one standard deviation
func (d Distribution) Upper() float64 { return d.Mean + d.StdDev }

// Lower is mean - one standard deviation
func (d Distribution) Lower() float64 { return d.Mean - d.StdDev }

// VelocityUpper is velocity mean + one velocity standard deviation
func (d Distribution) VelocityUpper() float64 { return d.VelocityMean + d.VelocityStdDev }

// VelocityLower is velocity mean - one velocity standard deviation
func (d Distribution) VelocityLower() float64 { return d.VelocityMean - d.VelocityStdDev }

// Baselines maps metric fields to their distributions
type Baselines map[MetricField]Distribution

// Get returns the distribution of a field (zero value when missing)
func (b Baselines) Get(field MetricField) Distribution {
	if b == nil {
		return Distribution{}
	}
	return b[field]
}

// Established reports whether every listed field has a non-zero spread
func (b Baselines) Established(fields ...MetricField) bool {
	if len(b) == 0 {
		return false
	}
	for _, f := range fields {
		if b[f].StdDev == 0 {
			return false
		}
	}
	return true
}

// Fundamentals are the balance-sheet ratios shared by tickers and bank tickers
type Fundamentals struct {
	EPS             float64 `json:"eps"`
	PERatio         float64 `json:"pe_ratio"`
	EVEarnings      float64 `json:"ev_earnings"`
	DividendYield   float64 `json:"dividend_yield"` // Fraction, 0.03 = 3%
	Earnings        float64 `json:"earnings"`
	MarketCap       float64 `json:"market_cap"`
	Debt            float64 `json:"debt"`
	Cash            float64 `json:"cash"`
	DebtEquityRatio float64 `json:"debt_equity_ratio"`
	CurrentRatio    float64 `json:"current_ratio"`
}

// Ticker is a member of the active tradable universe
type Ticker struct {
	ID                    int64        `json:"id"`
	Symbol                string       `json:"symbol"`
	Active                bool         `json:"active"`
	Fundamentals          Fundamentals `json:"fundamentals"`
	Baselines             Baselines    `json:"baselines"`
	PerformanceVector     float64      `json:"performance_vector"`
	AveragesCalculated    time.Time    `json:"averages_calculated"`
	PerformanceCalculated time.Time    `json:"performance_calculated"`
	LoadCalculated        time.Time    `json:"load_calculated"`
	LastUpdated           time.Time    `json:"last_updated"`
}

// BankTicker is a member of the wider candidate universe
type BankTicker struct {
	ID                    int64        `json:"id"`
	Symbol                string       `json:"symbol"`
	Name                  string       `json:"name"`
	Country               string       `json:"country"`
	Sector                string       `json:"sector"`
	Fundamentals          Fundamentals `json:"fundamentals"`
	PriceChangeAvg        float64      `json:"price_change_avg"` // Percent
	BetaAvg               float64      `json:"beta_avg"`
	PerformanceVector     float64      `json:"performance_vector"`
	PerformanceCalculated time.Time    `json:"performance_calculated"`
}

// Position is a broker-reported holding, refreshed every cycle
type Position struct {
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"`
	AvgEntryPrice    float64 `json:"avg_entry_price"`
	CostBasis        float64 `json:"cost_basis"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedPL     float64 `json:"unrealized_pl"`
	UnrealizedPLPerc float64 `json:"unrealized_pl_perc"`
	LastdayPrice     float64 `json:"lastday_price"`
	CurrentPrice     float64 `json:"current_price"`
}

// Account is the broker balance snapshot with the cash reserve applied
type Account struct {
	ID              string  `json:"id"`
	Equity          float64 `json:"equity"`
	LastEquity      float64 `json:"last_equity"`
	TradableCash    float64 `json:"tradable_cash"`
	BuyingPower     float64 `json:"buying_power"`
	TradeableEquity float64 `json:"tradeable_equity"`
}

// Prediction carries the buy/sell conviction for one ticker. Never persisted.
type Prediction struct {
	Symbol         string    `json:"symbol"`
	BuyMultiplier  float64   `json:"buy_multiplier"`
	SellMultiplier float64   `json:"sell_multiplier"`
	Metric         BarMetric `json:"metric"`
}

// Multiplier returns the conviction for the given side
func (p *Prediction) Multiplier(side OrderSide) float64 {
	if p == nil {
		return 0
	}
	if side == OrderSideBuy {
		return p.BuyMultiplier
	}
	return p.SellMultiplier
}

// Order is an intra-day decision record, mutated by execution
type Order struct {
	ID               int64      `json:"id"`
	AccountID        string     `json:"account_id"`
	Symbol           string     `json:"symbol"`
	Side             OrderSide  `json:"side"`
	Kind             AssetKind  `json:"kind"`
	Day              time.Time  `json:"day"`
	TargetPrice      float64    `json:"target_price"`
	RequestedAmount  float64    `json:"requested_amount"`
	AppliedAmount    float64    `json:"applied_amount"`
	Multiplier       float64    `json:"multiplier"`
	Priority         float64    `json:"priority"`
	DaysSinceLastBuy int        `json:"days_since_last_buy"`
	CloseOut         bool       `json:"close_out"`
	BrokerOrderID    string     `json:"broker_order_id"`
	CreatedAt        time.Time  `json:"created_at"`
	ReconciledAt     *time.Time `json:"reconciled_at,omitempty"`
}

// Submitted reports whether the broker accepted the order
func (o Order) Submitted() bool {
	return o.BrokerOrderID != ""
}

// OrderHistory is an append-only fill record with the cooldown it imposes
type OrderHistory struct {
	ID            int64     `json:"id"`
	AccountID     string    `json:"account_id"`
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side"`
	BrokerOrderID string    `json:"broker_order_id"`
	Day           time.Time `json:"day"`
	AvgFillPrice  float64   `json:"avg_fill_price"`
	FilledQty     float64   `json:"filled_qty"`
	PLPerc        float64   `json:"pl_perc"`
	Multiplier    float64   `json:"multiplier"`
	NextBuy       time.Time `json:"next_buy"`
	NextSell      time.Time `json:"next_sell"`
	CreatedAt     time.Time `json:"created_at"`
}

// BlocksBuy reports whether the cooldown still blocks buying on day
func (h OrderHistory) BlocksBuy(day time.Time) bool {
	return day.Before(h.NextBuy)
}

// BlocksSell reports whether the cooldown still blocks selling on day
func (h OrderHistory) BlocksSell(day time.Time) bool {
	return day.Before(h.NextSell)
}

// TruncateDay returns t at UTC midnight
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
