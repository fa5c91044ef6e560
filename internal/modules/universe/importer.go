package universe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aristath/meridian/internal/domain"
)

// UniverseFile is the YAML document accepted by the importer
type UniverseFile struct {
	BankTickers []BankTickerEntry     `yaml:"bank_tickers"`
	Bars        map[string][]BarEntry `yaml:"bars"`
}

// BankTickerEntry is one candidate with its fundamentals
type BankTickerEntry struct {
	Symbol          string  `yaml:"symbol"`
	Name            string  `yaml:"name"`
	Country         string  `yaml:"country"`
	Sector          string  `yaml:"sector"`
	EPS             float64 `yaml:"eps"`
	PERatio         float64 `yaml:"pe_ratio"`
	EVEarnings      float64 `yaml:"ev_earnings"`
	DividendYield   float64 `yaml:"dividend_yield"`
	Earnings        float64 `yaml:"earnings"`
	MarketCap       float64 `yaml:"market_cap"`
	Debt            float64 `yaml:"debt"`
	Cash            float64 `yaml:"cash"`
	DebtEquityRatio float64 `yaml:"debt_equity_ratio"`
	CurrentRatio    float64 `yaml:"current_ratio"`
	PriceChangeAvg  float64 `yaml:"price_change_avg"`
	BetaAvg         float64 `yaml:"beta_avg"`
}

// BarEntry is one daily bar, day formatted as YYYY-MM-DD
type BarEntry struct {
	Day    string  `yaml:"day"`
	Open   float64 `yaml:"open"`
	High   float64 `yaml:"high"`
	Low    float64 `yaml:"low"`
	Close  float64 `yaml:"close"`
	Volume float64 `yaml:"volume"`
}

// ImportResult counts what an import stored
type ImportResult struct {
	BankTickers int `json:"bank_tickers"`
	Bars        int `json:"bars"`
}

// Importer loads the candidate universe and bar history from a file
type Importer struct {
	bank *BankTickerRepository
	bars *BarRepository
	log  zerolog.Logger
}

// NewImporter creates a new importer
func NewImporter(bank *BankTickerRepository, bars *BarRepository, log zerolog.Logger) *Importer {
	return &Importer{
		bank: bank,
		bars: bars,
		log:  log.With().Str("service", "universe_importer").Logger(),
	}
}

// Import parses r and upserts its bank tickers and bars.
// Bars already stored for a (symbol, day) are left untouched.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var file UniverseFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return &ImportResult{}, nil
		}
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}

	result := &ImportResult{}
	for _, e := range file.BankTickers {
		if strings.TrimSpace(e.Symbol) == "" {
			return nil, fmt.Errorf("bank ticker without symbol")
		}
		if err := i.bank.Upsert(ctx, e.toDomain()); err != nil {
			return nil, err
		}
		result.BankTickers++
	}

	for symbol, entries := range file.Bars {
		bars := make([]domain.PriceBar, 0, len(entries))
		for _, e := range entries {
			day, err := time.Parse("2006-01-02", e.Day)
			if err != nil {
				return nil, fmt.Errorf("invalid bar day %q for %s: %w", e.Day, symbol, err)
			}
			bars = append(bars, domain.PriceBar{
				Symbol: symbol,
				Day:    day,
				Open:   e.Open,
				High:   e.High,
				Low:    e.Low,
				Close:  e.Close,
				Volume: e.Volume,
			})
		}
		n, err := i.bars.Insert(ctx, bars)
		if err != nil {
			return nil, err
		}
		result.Bars += n
	}

	i.log.Info().
		Int("bank_tickers", result.BankTickers).
		Int("bars", result.Bars).
		Msg("Universe imported")
	return result, nil
}

func (e BankTickerEntry) toDomain() domain.BankTicker {
	return domain.BankTicker{
		Symbol:  strings.ToUpper(strings.TrimSpace(e.Symbol)),
		Name:    e.Name,
		Country: e.Country,
		Sector:  e.Sector,
		Fundamentals: domain.Fundamentals{
			EPS:             e.EPS,
			PERatio:         e.PERatio,
			EVEarnings:      e.EVEarnings,
			DividendYield:   e.DividendYield,
			Earnings:        e.Earnings,
			MarketCap:       e.MarketCap,
			Debt:            e.Debt,
			Cash:            e.Cash,
			DebtEquityRatio: e.DebtEquityRatio,
			CurrentRatio:    e.CurrentRatio,
		},
		PriceChangeAvg: e.PriceChangeAvg,
		BetaAvg:        e.BetaAvg,
	}
}
