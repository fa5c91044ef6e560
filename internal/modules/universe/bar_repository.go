// Package universe provides the tradable universe and its market data.
package universe

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/database"
	"github.com/aristath/meridian/internal/domain"
)

const priceBarColumns = `id, symbol, time_utc, open, high, low, close, volume`

// BarRepository stores daily price bars
type BarRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewBarRepository creates a new bar repository
func NewBarRepository(db *sql.DB, log zerolog.Logger) *BarRepository {
	return &BarRepository{
		db:  db,
		log: log.With().Str("repo", "price_bar").Logger(),
	}
}

// Insert stores bars, skipping days already present. Returns the number inserted.
func (r *BarRepository) Insert(ctx context.Context, bars []domain.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	inserted := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO price_bars (symbol, time_utc, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare bar insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			day := domain.TruncateDay(b.Day)
			res, err := stmt.ExecContext(ctx,
				strings.ToUpper(b.Symbol), day.UnixMilli(), b.Open, b.High, b.Low, b.Close, b.Volume)
			if err != nil {
				return fmt.Errorf("failed to insert bar %s %s: %w", b.Symbol, day.Format("2006-01-02"), err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// LastDay returns the most recent stored bar day for symbol, or nil when none exist
func (r *BarRepository) LastDay(ctx context.Context, symbol string) (*time.Time, error) {
	var ms sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(time_utc) FROM price_bars WHERE symbol = ?`, strings.ToUpper(symbol)).Scan(&ms)
	if err != nil {
		return nil, fmt.Errorf("failed to query last bar day: %w", err)
	}
	if !ms.Valid {
		return nil, nil
	}

	day := time.UnixMilli(ms.Int64).UTC()
	return &day, nil
}

// GetBars returns every bar of symbol in chronological order
func (r *BarRepository) GetBars(ctx context.Context, symbol string) ([]domain.PriceBar, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+priceBarColumns+` FROM price_bars WHERE symbol = ? ORDER BY time_utc ASC`,
		strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetBarsInRange returns the bars of symbol with from <= day <= to, oldest first
func (r *BarRepository) GetBarsInRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+priceBarColumns+` FROM price_bars
		WHERE symbol = ? AND time_utc >= ? AND time_utc <= ?
		ORDER BY time_utc ASC
	`, strings.ToUpper(symbol), domain.TruncateDay(from).UnixMilli(), domain.TruncateDay(to).UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query bars in range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// Symbols returns every symbol with stored bars
func (r *BarRepository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM price_bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bar symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan bar symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bar symbols: %w", err)
	}
	return symbols, nil
}

// DeleteBefore removes bars older than cutoff that no metric references
func (r *BarRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM price_bars
		WHERE time_utc < ? AND id NOT IN (SELECT bar_id FROM bar_metrics)
	`, domain.TruncateDay(cutoff).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old bars: %w", err)
	}
	return res.RowsAffected()
}

func scanBars(rows *sql.Rows) ([]domain.PriceBar, error) {
	var bars []domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		if err := rows.Scan(&b.ID, &b.Symbol, &b.TimeUTC, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		b.Day = time.UnixMilli(b.TimeUTC).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}
	return bars, nil
}
