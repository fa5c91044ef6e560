package trading

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
)

const historyColumns = `id, account_id, symbol, side, broker_order_id, day, avg_fill_price, filled_qty,
pl_perc, multiplier, next_buy, next_sell, created_at`

// Cooldown is the trading block left on a symbol by its fills
type Cooldown struct {
	NextBuy  time.Time
	NextSell time.Time
	LastBuy  time.Time // Zero when never bought
}

// BlocksBuy reports whether buying is blocked on day
func (c Cooldown) BlocksBuy(day time.Time) bool { return day.Before(c.NextBuy) }

// BlocksSell reports whether selling is blocked on day
func (c Cooldown) BlocksSell(day time.Time) bool { return day.Before(c.NextSell) }

// HistoryRepository stores fills. Rows are never updated.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new order history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "order_history").Logger(),
	}
}

// Insert appends a fill. A broker order already recorded returns false.
func (r *HistoryRepository) Insert(ctx context.Context, h *domain.OrderHistory) (bool, error) {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	h.Symbol = strings.ToUpper(h.Symbol)

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO order_history (account_id, symbol, side, broker_order_id, day, avg_fill_price,
			filled_qty, pl_perc, multiplier, next_buy, next_sell, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.AccountID, h.Symbol, string(h.Side), h.BrokerOrderID, domain.TruncateDay(h.Day).Unix(), h.AvgFillPrice,
		h.FilledQty, h.PLPerc, h.Multiplier, h.NextBuy.Unix(), h.NextSell.Unix(), h.CreatedAt.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert order history for %s: %w", h.Symbol, err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		h.ID = id
	}
	return true, nil
}

// Cooldowns returns the cooldown of every symbol with fills, keyed by symbol
func (r *HistoryRepository) Cooldowns(ctx context.Context, accountID string) (map[string]Cooldown, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, MAX(next_buy), MAX(next_sell), COALESCE(MAX(CASE WHEN side = 'BUY' THEN day END), 0)
		FROM order_history WHERE account_id = ? GROUP BY symbol
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cooldowns: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Cooldown)
	for rows.Next() {
		var symbol string
		var nextBuy, nextSell, lastBuy int64
		if err := rows.Scan(&symbol, &nextBuy, &nextSell, &lastBuy); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown: %w", err)
		}
		c := Cooldown{NextBuy: time.Unix(nextBuy, 0).UTC(), NextSell: time.Unix(nextSell, 0).UTC()}
		if lastBuy > 0 {
			c.LastBuy = time.Unix(lastBuy, 0).UTC()
		}
		out[symbol] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cooldowns: %w", err)
	}
	return out, nil
}

// AverageBuyPrice returns the quantity weighted buy price of symbol, 0 without buys
func (r *HistoryRepository) AverageBuyPrice(ctx context.Context, accountID, symbol string) (float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(avg_fill_price * filled_qty) / NULLIF(SUM(filled_qty), 0)
		FROM order_history WHERE account_id = ? AND symbol = ? AND side = 'BUY'
	`, accountID, strings.ToUpper(symbol)).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to get average buy price for %s: %w", symbol, err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// GetBySymbol returns the latest fills of symbol, newest first
func (r *HistoryRepository) GetBySymbol(ctx context.Context, accountID, symbol string, limit int) ([]domain.OrderHistory, error) {
	return r.query(ctx, `SELECT `+historyColumns+` FROM order_history
		WHERE account_id = ? AND symbol = ? ORDER BY day DESC, id DESC LIMIT ?`,
		accountID, strings.ToUpper(symbol), limit)
}

// GetRecent returns the latest fills of the account, newest first
func (r *HistoryRepository) GetRecent(ctx context.Context, accountID string, limit int) ([]domain.OrderHistory, error) {
	return r.query(ctx, `SELECT `+historyColumns+` FROM order_history
		WHERE account_id = ? ORDER BY day DESC, id DESC LIMIT ?`, accountID, limit)
}

// DeleteBefore removes fills of days before cutoff
func (r *HistoryRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_history WHERE day < ?`, domain.TruncateDay(cutoff).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old order history: %w", err)
	}
	return res.RowsAffected()
}

func (r *HistoryRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.OrderHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderHistory
	for rows.Next() {
		var h domain.OrderHistory
		var side string
		var day, nextBuy, nextSell, created int64
		err := rows.Scan(&h.ID, &h.AccountID, &h.Symbol, &side, &h.BrokerOrderID, &day, &h.AvgFillPrice,
			&h.FilledQty, &h.PLPerc, &h.Multiplier, &nextBuy, &nextSell, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order history: %w", err)
		}
		h.Side = domain.OrderSide(side)
		h.Day = time.Unix(day, 0).UTC()
		h.NextBuy = time.Unix(nextBuy, 0).UTC()
		h.NextSell = time.Unix(nextSell, 0).UTC()
		h.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order history: %w", err)
	}
	return out, nil
}
