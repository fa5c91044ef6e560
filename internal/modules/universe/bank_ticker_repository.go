package universe

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
)

const bankTickerColumns = `id, symbol, name, country, sector,
eps, pe_ratio, ev_earnings, dividend_yield, earnings, market_cap, debt, cash, debt_equity_ratio, current_ratio,
price_change_avg, beta_avg, performance_vector, performance_calculated`

// BankTickerRepository stores the candidate universe
type BankTickerRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewBankTickerRepository creates a new bank ticker repository
func NewBankTickerRepository(db *sql.DB, log zerolog.Logger) *BankTickerRepository {
	return &BankTickerRepository{
		db:  db,
		log: log.With().Str("repo", "bank_ticker").Logger(),
	}
}

// GetAll returns every bank ticker ordered by symbol
func (r *BankTickerRepository) GetAll(ctx context.Context) ([]domain.BankTicker, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bankTickerColumns+` FROM bank_tickers ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank tickers: %w", err)
	}
	defer rows.Close()

	var out []domain.BankTicker
	for rows.Next() {
		var b domain.BankTicker
		var calculated int64
		f := &b.Fundamentals
		err := rows.Scan(&b.ID, &b.Symbol, &b.Name, &b.Country, &b.Sector,
			&f.EPS, &f.PERatio, &f.EVEarnings, &f.DividendYield, &f.Earnings, &f.MarketCap,
			&f.Debt, &f.Cash, &f.DebtEquityRatio, &f.CurrentRatio,
			&b.PriceChangeAvg, &b.BetaAvg, &b.PerformanceVector, &calculated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank ticker: %w", err)
		}
		b.PerformanceCalculated = fromUnix(calculated)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bank tickers: %w", err)
	}
	return out, nil
}

// Upsert inserts or refreshes a bank ticker. Symbol is the identity.
func (r *BankTickerRepository) Upsert(ctx context.Context, b domain.BankTicker) error {
	f := b.Fundamentals
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bank_tickers (symbol, name, country, sector, eps, pe_ratio, ev_earnings, dividend_yield,
			earnings, market_cap, debt, cash, debt_equity_ratio, current_ratio, price_change_avg, beta_avg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			sector = excluded.sector,
			eps = excluded.eps,
			pe_ratio = excluded.pe_ratio,
			ev_earnings = excluded.ev_earnings,
			dividend_yield = excluded.dividend_yield,
			earnings = excluded.earnings,
			market_cap = excluded.market_cap,
			debt = excluded.debt,
			cash = excluded.cash,
			debt_equity_ratio = excluded.debt_equity_ratio,
			current_ratio = excluded.current_ratio,
			price_change_avg = excluded.price_change_avg,
			beta_avg = excluded.beta_avg
	`, strings.ToUpper(b.Symbol), b.Name, b.Country, b.Sector, f.EPS, f.PERatio, f.EVEarnings, f.DividendYield,
		f.Earnings, f.MarketCap, f.Debt, f.Cash, f.DebtEquityRatio, f.CurrentRatio, b.PriceChangeAvg, b.BetaAvg)
	if err != nil {
		return fmt.Errorf("failed to upsert bank ticker %s: %w", b.Symbol, err)
	}
	return nil
}

// UpdatePerformance stores the score and the performance timestamp
func (r *BankTickerRepository) UpdatePerformance(ctx context.Context, symbol string, vector float64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bank_tickers SET performance_vector = ?, performance_calculated = ? WHERE symbol = ?`,
		vector, at.Unix(), strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to update bank ticker performance for %s: %w", symbol, err)
	}
	return nil
}
