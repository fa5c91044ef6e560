// Package trading decides, executes and reconciles daily orders.
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

// orderColumns must match scanOrders
const orderColumns = `id, account_id, symbol, side, kind, day, target_price, requested_amount, applied_amount,
multiplier, priority, days_since_last_buy, close_out, broker_order_id, created_at, reconciled_at`

// OrderRepository stores the daily order decisions
type OrderRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, log zerolog.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log.With().Str("repo", "order").Logger(),
	}
}

// Create records a decision. A symbol already decided for the account and day
// is left alone and false is returned.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (bool, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.Symbol = strings.ToUpper(o.Symbol)
	o.Day = domain.TruncateDay(o.Day)

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO orders (account_id, symbol, side, kind, day, target_price, requested_amount,
			applied_amount, multiplier, priority, days_since_last_buy, close_out, broker_order_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.AccountID, o.Symbol, string(o.Side), string(o.Kind), o.Day.Unix(), o.TargetPrice, o.RequestedAmount,
		o.AppliedAmount, o.Multiplier, o.Priority, o.DaysSinceLastBuy, boolToInt(o.CloseOut), o.BrokerOrderID,
		o.CreatedAt.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to create order for %s: %w", o.Symbol, err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		o.ID = id
	}
	return true, nil
}

// GetForDay returns the orders of a day, highest priority first
func (r *OrderRepository) GetForDay(ctx context.Context, accountID string, day time.Time) ([]domain.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE account_id = ? AND day = ? ORDER BY priority DESC, symbol`,
		accountID, domain.TruncateDay(day).Unix())
}

// GetUnreconciledThrough returns submitted orders of day or earlier without a
// fill record yet, oldest day first
func (r *OrderRepository) GetUnreconciledThrough(ctx context.Context, accountID string, day time.Time) ([]domain.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE account_id = ? AND day <= ? AND broker_order_id != '' AND reconciled_at IS NULL ORDER BY day, symbol`,
		accountID, domain.TruncateDay(day).Unix())
}

// GetInRange returns the orders with a day in [from, to]
func (r *OrderRepository) GetInRange(ctx context.Context, accountID string, from, to time.Time) ([]domain.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE account_id = ? AND day >= ? AND day <= ? ORDER BY day DESC, priority DESC`,
		accountID, domain.TruncateDay(from).Unix(), domain.TruncateDay(to).Unix())
}

// MarkSubmitted stores the broker id and the dollar amount applied
func (r *OrderRepository) MarkSubmitted(ctx context.Context, id int64, brokerOrderID string, applied float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET broker_order_id = ?, applied_amount = ? WHERE id = ?`,
		brokerOrderID, applied, id)
	if err != nil {
		return fmt.Errorf("failed to mark order %d submitted: %w", id, err)
	}
	return nil
}

// MarkReconciled stamps an order as reconciled
func (r *OrderRepository) MarkReconciled(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET reconciled_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark order %d reconciled: %w", id, err)
	}
	return nil
}

// DeleteBefore removes orders of days before cutoff
func (r *OrderRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE day < ?`, domain.TruncateDay(cutoff).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old orders: %w", err)
	}
	return res.RowsAffected()
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var side, kind string
		var day, created int64
		var closeOut int
		var reconciled sql.NullInt64
		err := rows.Scan(&o.ID, &o.AccountID, &o.Symbol, &side, &kind, &day, &o.TargetPrice, &o.RequestedAmount,
			&o.AppliedAmount, &o.Multiplier, &o.Priority, &o.DaysSinceLastBuy, &closeOut, &o.BrokerOrderID,
			&created, &reconciled)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Side = domain.OrderSide(side)
		o.Kind = domain.AssetKind(kind)
		o.Day = time.Unix(day, 0).UTC()
		o.CreatedAt = time.Unix(created, 0).UTC()
		o.CloseOut = closeOut == 1
		if reconciled.Valid {
			at := time.Unix(reconciled.Int64, 0).UTC()
			o.ReconciledAt = &at
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
