package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Strategy holds the trading parameters
type Strategy struct {
	PerformanceCutoff      float64  `yaml:"performance_cutoff" default:"25" validate:"gte=0,lte=100"`
	EarningsMultipleCutoff float64  `yaml:"earnings_multiple_cutoff" default:"30" validate:"gt=0"`
	BondSymbols            []string `yaml:"bond_symbols" default:"[\"BND\",\"AGG\",\"SCHZ\"]" validate:"dive,required"`
	StockBondPerc          float64  `yaml:"stock_bond_perc" default:"0.85" validate:"gte=0,lte=1"`
	Blacklist              []string `yaml:"blacklist"`
	Encouragement          float64  `yaml:"encouragement" validate:"gte=-1,lte=1"`
	CashMinimum            float64  `yaml:"cash_minimum" default:"1000" validate:"gte=0"`
	CashPercent            float64  `yaml:"cash_percent" default:"0.05" validate:"gte=0,lt=1"`
	ForceDataCollection    bool     `yaml:"force_data_collection"`
	CompressScores         bool     `yaml:"compress_scores" default:"true"`

	MaxDailyBuy     float64 `yaml:"max_daily_buy" default:"0.10" validate:"gt=0,lte=1"`
	MaxDailySell    float64 `yaml:"max_daily_sell" default:"0.10" validate:"gt=0,lte=1"`
	MaxSecurityBuy  float64 `yaml:"max_security_buy" default:"0.03" validate:"gt=0,lte=1"`
	MaxSecuritySell float64 `yaml:"max_security_sell" default:"0.02" validate:"gt=0,lte=1"`
	MaxCooldownDays int     `yaml:"max_cooldown_days" default:"14" validate:"gte=1"`

	CalculationWeekday string `yaml:"calculation_weekday" default:"saturday" validate:"oneof=sunday monday tuesday wednesday thursday friday saturday"`
	PromoteCount       int    `yaml:"promote_count" default:"40" validate:"gte=1"`

	BatchWidth   int           `yaml:"batch_width" default:"10" validate:"gte=1,lte=100"`
	BatchStagger time.Duration `yaml:"batch_stagger" default:"2s"`
	RetryDelay   time.Duration `yaml:"retry_delay" default:"5s"`

	DataGate    GateConfig `yaml:"data_gate"`
	TradingGate GateConfig `yaml:"trading_gate"`

	Schedules Schedules `yaml:"schedules"`
}

// GateConfig sizes one rate gate
type GateConfig struct {
	Slots int           `yaml:"slots" validate:"gte=1"`
	Delay time.Duration `yaml:"delay"`
}

// SetDefaults implements defaults.Setter
func (s *Strategy) SetDefaults() {
	if s.DataGate.Slots == 0 {
		s.DataGate = GateConfig{Slots: 3, Delay: 350 * time.Millisecond}
	}
	if s.TradingGate.Slots == 0 {
		s.TradingGate = GateConfig{Slots: 1, Delay: 300 * time.Millisecond}
	}
}

// Schedules are cron expressions with a seconds field, in UTC
type Schedules struct {
	CollectBars     string `yaml:"collect_bars" default:"0 30 22 * * 1-5"`
	GenerateMetrics string `yaml:"generate_metrics" default:"0 0 23 * * 1-5"`
	Baselines       string `yaml:"baselines" default:"0 0 2 * * *"`
	Scoring         string `yaml:"scoring" default:"0 30 2 * * *"`
	TradingCycle    string `yaml:"trading_cycle" default:"0 45 14 * * 1-5"`
	ExecuteOrders   string `yaml:"execute_orders" default:"0 */30 15-20 * * 1-5"`
	Cleanup         string `yaml:"cleanup" default:"0 0 3 * * 0"`
	Backup          string `yaml:"backup" default:"0 0 4 * * *"`
	CheckDatabase   string `yaml:"check_database" default:"0 15 * * * *"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DefaultStrategy returns a strategy with every default applied
func DefaultStrategy() *Strategy {
	s := &Strategy{}
	if err := defaults.Set(s); err != nil {
		panic(fmt.Sprintf("invalid strategy defaults: %v", err))
	}
	return s
}

// LoadStrategy reads a YAML strategy file over the defaults.
// A missing file yields the defaults.
func LoadStrategy(path string) (*Strategy, error) {
	s := DefaultStrategy()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read strategy: %w", err)
		default:
			if err := yaml.Unmarshal(b, s); err != nil {
				return nil, fmt.Errorf("parse strategy: %w", err)
			}
		}
	}

	s.CalculationWeekday = strings.ToLower(s.CalculationWeekday)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate strategy: %w", err)
	}
	return s, nil
}

// Validate checks field ranges
func (s *Strategy) Validate() error {
	return validator.New().Struct(s)
}

// CalculationDay returns the weekday expensive recomputation runs on
func (s *Strategy) CalculationDay() time.Weekday {
	return weekdays[strings.ToLower(s.CalculationWeekday)]
}

// IsBlacklisted reports whether symbol must never be bought
func (s *Strategy) IsBlacklisted(symbol string) bool {
	for _, b := range s.Blacklist {
		if strings.EqualFold(b, symbol) {
			return true
		}
	}
	return false
}

// IsBond reports whether symbol belongs to the bond sleeve
func (s *Strategy) IsBond(symbol string) bool {
	for _, b := range s.BondSymbols {
		if strings.EqualFold(b, symbol) {
			return true
		}
	}
	return false
}
