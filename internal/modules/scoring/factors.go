package scoring

import (
	"math"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/pkg/formulas"
)

// maxDividend caps the dividend yield credited by any factor
const maxDividend = 0.1

// Eligible applies the structural cutoffs a ticker must pass to be scored
func Eligible(f domain.Fundamentals, earningsMultipleCutoff float64) bool {
	liquid := f.CurrentRatio > 0 || (f.DebtEquityRatio > 0 && f.DebtEquityRatio < 2)
	if !liquid {
		return false
	}
	if f.Debt-f.Cash >= 0.5*f.MarketCap {
		return false
	}
	if f.Earnings <= 0 || f.DividendYield <= 0 || f.EPS <= 0 || f.EVEarnings <= 0 {
		return false
	}
	return f.EVEarnings < earningsMultipleCutoff
}

// BankFactors score the candidate universe on fundamentals alone
func BankFactors() []Factor[domain.BankTicker] {
	return []Factor[domain.BankTicker]{
		{Name: "earnings", Weight: 25, Value: func(b domain.BankTicker) float64 {
			return math.Sqrt(b.Fundamentals.Earnings)
		}},
		{Name: "price_change", Weight: 25, Value: func(b domain.BankTicker) float64 {
			return b.PriceChangeAvg * betaDamping(b.BetaAvg)
		}},
		{Name: "dividend", Weight: 15, Value: func(b domain.BankTicker) float64 {
			return math.Min(b.Fundamentals.DividendYield, maxDividend)
		}},
		{Name: "ev_earnings", Weight: 20, Value: func(b domain.BankTicker) float64 {
			return 1 / b.Fundamentals.EVEarnings
		}},
		{Name: "debt_cap", Weight: 15, Value: func(b domain.BankTicker) float64 {
			return debtCapScore(b.Fundamentals)
		}},
	}
}

// Active is an active ticker joined with its most recent metric
type Active struct {
	Ticker domain.Ticker
	Metric domain.BarMetric
}

// ActiveFactors score the active universe on trend and fundamentals
func ActiveFactors() []Factor[Active] {
	return []Factor[Active]{
		{Name: "sma_angle", Weight: 30, Value: func(a Active) float64 {
			return a.Metric.SMASMA
		}},
		{Name: "month_trend", Weight: 20, Value: func(a Active) float64 {
			return formulas.DoubleReduce(a.Metric.MonthTrend, 10, -10) * smaRamp(a.Metric)
		}},
		{Name: "regression", Weight: 20, Value: func(a Active) float64 {
			return formulas.DoubleReduce(a.Metric.RegressionAngle, 45, -45) * smaRamp(a.Metric)
		}},
		{Name: "earnings", Weight: 15, Value: func(a Active) float64 {
			f := a.Ticker.Fundamentals
			return 1/f.EVEarnings + math.Min(f.DividendYield, maxDividend)
		}},
		{Name: "debt_cap", Weight: 15, Value: func(a Active) float64 {
			f := a.Ticker.Fundamentals
			if f.MarketCap <= 0 {
				return 0
			}
			return 1 - formulas.Clamp((f.Debt-f.Cash)/f.MarketCap, 0, 1)
		}},
	}
}

func smaRamp(m domain.BarMetric) float64 {
	return formulas.DoubleReduce(m.SMASMA, 15, -15)
}

// betaDamping is 1 at beta 1 and shrinks as beta moves away from it
func betaDamping(beta float64) float64 {
	return 1 / (1 + math.Abs(beta-1))
}

func debtCapScore(f domain.Fundamentals) float64 {
	if f.MarketCap <= 0 {
		return 0
	}
	return 1 / (1 + math.Max(f.Debt, 0)/f.MarketCap)
}
