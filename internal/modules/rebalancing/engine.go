// Package rebalancing turns scores and predictions into target position changes.
package rebalancing

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/pkg/formulas"
)

// Thresholds, in percent of the current market value
const (
	StockDeviation    = 12.0
	MinStockDeviation = 4.0
	BondDeviation     = 10.0
)

// fullAllocationCount is the number of qualifying tickers at which the
// whole stock budget is allocated
const fullAllocationCount = 20

// Proposal is a signed dollar change to one position
type Proposal struct {
	Symbol      string             `json:"symbol"`
	Kind        domain.AssetKind   `json:"kind"`
	Amount      float64            `json:"amount"` // Positive buys, negative sells
	Target      float64            `json:"target"`
	MarketValue float64            `json:"market_value"`
	Price       float64            `json:"price"`
	Score       float64            `json:"score"`
	CloseOut    bool               `json:"close_out"`
	Prediction  *domain.Prediction `json:"prediction,omitempty"`
}

// Side returns the order side of the proposal
func (p Proposal) Side() domain.OrderSide {
	if p.Amount < 0 {
		return domain.OrderSideSell
	}
	return domain.OrderSideBuy
}

// Input is the state one rebalancing pass works from
type Input struct {
	Account     domain.Account
	Positions   []domain.Position
	Tickers     []domain.Ticker
	Predictions map[string]*domain.Prediction
}

// Engine proposes rebalancing changes
type Engine struct {
	strategy *config.Strategy
	log      zerolog.Logger
}

// NewEngine creates a new rebalancing engine
func NewEngine(strategy *config.Strategy, log zerolog.Logger) *Engine {
	return &Engine{
		strategy: strategy,
		log:      log.With().Str("service", "rebalancing").Logger(),
	}
}

type selection struct {
	ticker     domain.Ticker
	prediction *domain.Prediction
	position   *domain.Position
	meets      bool
	weight     float64
}

// Plan proposes stock changes followed by bond changes.
// Buys are capped by the tradable cash in proposal order.
func (e *Engine) Plan(in Input) []Proposal {
	positions := make(map[string]*domain.Position, len(in.Positions))
	for i := range in.Positions {
		positions[strings.ToUpper(in.Positions[i].Symbol)] = &in.Positions[i]
	}

	cash := math.Max(in.Account.TradableCash, 0)
	proposals := e.planStocks(in, positions, &cash)
	return append(proposals, e.planBonds(in.Account, positions, &cash)...)
}

func (e *Engine) planStocks(in Input, positions map[string]*domain.Position, cash *float64) []Proposal {
	var selected []*selection
	qualifying := 0
	totalWeight := 0.0

	for _, t := range in.Tickers {
		if e.strategy.IsBond(t.Symbol) {
			continue
		}
		prediction := in.Predictions[t.Symbol]
		if prediction == nil {
			continue
		}
		s := &selection{
			ticker:     t,
			prediction: prediction,
			position:   positions[t.Symbol],
			meets:      t.PerformanceVector > e.strategy.PerformanceCutoff && !e.strategy.IsBlacklisted(t.Symbol),
		}
		if !s.meets && s.position == nil {
			continue
		}
		if s.meets {
			s.weight = PerformanceValue(t.PerformanceVector) * PerformanceMultiplier(prediction, s.position, t.Fundamentals.DividendYield)
			totalWeight += s.weight
			qualifying++
		}
		selected = append(selected, s)
	}

	// strongest candidates claim the cash first
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].weight != selected[j].weight {
			return selected[i].weight > selected[j].weight
		}
		return selected[i].ticker.Symbol < selected[j].ticker.Symbol
	})

	budget := in.Account.TradeableEquity * e.strategy.StockBondPerc *
		AllocationRamp(qualifying) * EncouragementScale(e.strategy.Encouragement)
	budget = math.Max(budget, 0)

	var proposals []Proposal
	for _, s := range selected {
		target := 0.0
		if s.meets && totalWeight > 0 {
			target = budget * s.weight / totalWeight
		}

		p := Proposal{
			Symbol:     s.ticker.Symbol,
			Kind:       domain.AssetKindStock,
			Target:     target,
			Score:      s.ticker.PerformanceVector,
			Prediction: s.prediction,
		}

		if s.position == nil {
			if !s.meets || target <= 0 {
				continue
			}
			p.Amount = takeCash(cash, target*s.prediction.BuyMultiplier)
			if p.Amount <= 0 {
				continue
			}
			proposals = append(proposals, p)
			continue
		}

		p.MarketValue = s.position.MarketValue
		p.Price = s.position.CurrentPrice
		if p.MarketValue <= 0 {
			e.log.Error().
				Err(domain.ErrInvariantViolation).
				Str("symbol", s.ticker.Symbol).
				Float64("market_value", p.MarketValue).
				Msg("manual intervention required: held position without positive market value")
			continue
		}

		diff := target - p.MarketValue
		diffPerc := diff * 100 / p.MarketValue
		if math.Abs(diffPerc) <= DynamicDeviation(s.position.UnrealizedPLPerc, s.ticker.Fundamentals.DividendYield) {
			continue
		}

		if diff > 0 {
			if !s.meets {
				continue
			}
			p.Amount = takeCash(cash, diff*s.prediction.BuyMultiplier)
		} else {
			p.Amount = diff * s.prediction.SellMultiplier
			p.CloseOut = e.strategy.IsBlacklisted(s.ticker.Symbol)
		}
		if p.Amount == 0 {
			continue
		}
		proposals = append(proposals, p)
	}

	e.log.Debug().
		Int("qualifying", qualifying).
		Float64("budget", budget).
		Int("proposals", len(proposals)).
		Msg("Stock rebalance planned")
	return proposals
}

func (e *Engine) planBonds(account domain.Account, positions map[string]*domain.Position, cash *float64) []Proposal {
	bonds := e.strategy.BondSymbols
	if len(bonds) == 0 {
		return nil
	}

	budget := math.Max(account.TradeableEquity*(1-e.strategy.StockBondPerc), 0)
	target := budget / float64(len(bonds))

	var proposals []Proposal
	for _, symbol := range bonds {
		symbol = strings.ToUpper(symbol)
		p := Proposal{Symbol: symbol, Kind: domain.AssetKindBond, Target: target}

		pos := positions[symbol]
		if pos == nil {
			p.Amount = takeCash(cash, target)
			if p.Amount > 0 {
				proposals = append(proposals, p)
			}
			continue
		}

		p.MarketValue = pos.MarketValue
		p.Price = pos.CurrentPrice
		if p.MarketValue <= 0 {
			e.log.Error().Err(domain.ErrInvariantViolation).Str("symbol", symbol).Msg("manual intervention required: bond position without positive market value")
			continue
		}

		diff := target - p.MarketValue
		if math.Abs(diff*100/p.MarketValue) <= BondDeviation {
			continue
		}
		if diff > 0 {
			diff = takeCash(cash, diff)
		}
		if diff == 0 {
			continue
		}
		p.Amount = diff
		proposals = append(proposals, p)
	}
	return proposals
}

// takeCash reserves up to amount from the remaining cash and returns what was reserved
func takeCash(cash *float64, amount float64) float64 {
	amount = math.Min(amount, *cash)
	if amount <= 0 {
		return 0
	}
	*cash -= amount
	return amount
}

// PerformanceValue curves the score so the best tickers get a larger share
func PerformanceValue(score float64) float64 {
	bonus := (score / 100) * (score / 100)
	return score * (1 + bonus)
}

// PerformanceMultiplier scales the allocation by conviction, boosted for held
// winners that also pay a dividend.
func PerformanceMultiplier(p *domain.Prediction, position *domain.Position, dividendYield float64) float64 {
	m := math.Max(0.05, 0.5+(p.Multiplier(domain.OrderSideBuy)-p.Multiplier(domain.OrderSideSell))/2)
	if position != nil && position.UnrealizedPLPerc > 0 {
		gain := position.UnrealizedPLPerc / 100
		m *= 1 + math.Log1p(gain)*(0.5+5*math.Min(math.Max(dividendYield, 0), 0.1))
	}
	return m
}

// AllocationRamp grows the share of the stock budget in use with the number
// of qualifying tickers.
func AllocationRamp(qualifying int) float64 {
	return formulas.Clamp(0.25+0.75*float64(qualifying)/fullAllocationCount, 0, 1)
}

// EncouragementScale maps the encouragement in [-1, 1] to a budget scale in [0.8, 1]
func EncouragementScale(e float64) float64 {
	return 0.9 + 0.1*formulas.Clamp(e, -1, 1)
}

// DynamicDeviation is the percent deviation a held stock must exceed to be
// rebalanced. Gains that dwarf the dividend yield lower it.
func DynamicDeviation(gainPerc, dividendYield float64) float64 {
	dividendPerc := dividendYield * 100
	if gainPerc <= 0 || dividendPerc <= 0 {
		return StockDeviation
	}
	ratio := gainPerc / dividendPerc
	if ratio <= 1 {
		return StockDeviation
	}
	return math.Max(MinStockDeviation, StockDeviation/ratio)
}
