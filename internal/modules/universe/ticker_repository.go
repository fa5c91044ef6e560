package universe

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/meridian/internal/domain"
)

const tickerColumns = `id, symbol, active,
eps, pe_ratio, ev_earnings, dividend_yield, earnings, market_cap, debt, cash, debt_equity_ratio, current_ratio,
baselines, performance_vector, averages_calculated, performance_calculated, load_calculated, last_updated`

// TickerRepository stores the active universe
type TickerRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTickerRepository creates a new ticker repository
func NewTickerRepository(db *sql.DB, log zerolog.Logger) *TickerRepository {
	return &TickerRepository{
		db:  db,
		log: log.With().Str("repo", "ticker").Logger(),
	}
}

// GetActive returns every active ticker ordered by symbol
func (r *TickerRepository) GetActive(ctx context.Context) ([]domain.Ticker, error) {
	return r.query(ctx, `SELECT `+tickerColumns+` FROM tickers WHERE active = 1 ORDER BY symbol`)
}

// GetAll returns every ticker ordered by symbol
func (r *TickerRepository) GetAll(ctx context.Context) ([]domain.Ticker, error) {
	return r.query(ctx, `SELECT `+tickerColumns+` FROM tickers ORDER BY symbol`)
}

// GetBySymbols returns the tickers matching symbols, keyed by symbol
func (r *TickerRepository) GetBySymbols(ctx context.Context, symbols []string) (map[string]domain.Ticker, error) {
	out := make(map[string]domain.Ticker, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(symbols))
	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		placeholders[i] = "?"
		args[i] = strings.ToUpper(s)
	}

	tickers, err := r.query(ctx,
		`SELECT `+tickerColumns+` FROM tickers WHERE symbol IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, t := range tickers {
		out[t.Symbol] = t
	}
	return out, nil
}

// GetBySymbol returns a ticker, or nil when it does not exist
func (r *TickerRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Ticker, error) {
	tickers, err := r.query(ctx, `SELECT `+tickerColumns+` FROM tickers WHERE symbol = ?`, strings.ToUpper(symbol))
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, nil
	}
	return &tickers[0], nil
}

// Upsert inserts a ticker or refreshes its fundamentals and reactivates it.
// Baselines, scores and stage timestamps of an existing ticker are kept.
func (r *TickerRepository) Upsert(ctx context.Context, t domain.Ticker) error {
	f := t.Fundamentals
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tickers (symbol, active, eps, pe_ratio, ev_earnings, dividend_yield, earnings,
			market_cap, debt, cash, debt_equity_ratio, current_ratio, last_updated)
		VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			active = 1,
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
			last_updated = excluded.last_updated
	`, strings.ToUpper(t.Symbol), f.EPS, f.PERatio, f.EVEarnings, f.DividendYield, f.Earnings,
		f.MarketCap, f.Debt, f.Cash, f.DebtEquityRatio, f.CurrentRatio, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert ticker %s: %w", t.Symbol, err)
	}
	return nil
}

// Deactivate removes symbols from the active set
func (r *TickerRepository) Deactivate(ctx context.Context, symbol string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tickers SET active = 0 WHERE symbol = ?`, strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to deactivate ticker %s: %w", symbol, err)
	}
	return nil
}

// UpdateBaselines stores the baseline distributions and the averages timestamp
func (r *TickerRepository) UpdateBaselines(ctx context.Context, symbol string, baselines domain.Baselines, at time.Time) error {
	blob, err := msgpack.Marshal(baselines)
	if err != nil {
		return fmt.Errorf("failed to encode baselines for %s: %w", symbol, err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE tickers SET baselines = ?, averages_calculated = ? WHERE symbol = ?`,
		blob, at.Unix(), strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to update baselines for %s: %w", symbol, err)
	}
	return nil
}

// UpdatePerformance stores the score and the performance timestamp
func (r *TickerRepository) UpdatePerformance(ctx context.Context, symbol string, vector float64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tickers SET performance_vector = ?, performance_calculated = ? WHERE symbol = ?`,
		vector, at.Unix(), strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to update performance for %s: %w", symbol, err)
	}
	return nil
}

// MarkLoadCalculated stamps every ticker with the universe load time
func (r *TickerRepository) MarkLoadCalculated(ctx context.Context, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tickers SET load_calculated = ?`, at.Unix()); err != nil {
		return fmt.Errorf("failed to mark load calculated: %w", err)
	}
	return nil
}

func (r *TickerRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Ticker, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []domain.Ticker
	for rows.Next() {
		t, err := r.scanTicker(rows)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}
	return tickers, nil
}

func (r *TickerRepository) scanTicker(rows *sql.Rows) (domain.Ticker, error) {
	var t domain.Ticker
	var active int
	var blob []byte
	var averages, performance, load, updated int64
	f := &t.Fundamentals

	err := rows.Scan(&t.ID, &t.Symbol, &active,
		&f.EPS, &f.PERatio, &f.EVEarnings, &f.DividendYield, &f.Earnings, &f.MarketCap,
		&f.Debt, &f.Cash, &f.DebtEquityRatio, &f.CurrentRatio,
		&blob, &t.PerformanceVector, &averages, &performance, &load, &updated)
	if err != nil {
		return t, fmt.Errorf("failed to scan ticker: %w", err)
	}

	t.Active = active == 1
	t.AveragesCalculated = fromUnix(averages)
	t.PerformanceCalculated = fromUnix(performance)
	t.LoadCalculated = fromUnix(load)
	t.LastUpdated = fromUnix(updated)

	if len(blob) > 0 {
		var b domain.Baselines
		if err := msgpack.Unmarshal(blob, &b); err != nil {
			r.log.Error().Err(err).Str("symbol", t.Symbol).Msg("Corrupt baselines, treating as absent")
		} else {
			t.Baselines = b
		}
	}

	return t, nil
}

// fromUnix maps 0 to the zero time
func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
