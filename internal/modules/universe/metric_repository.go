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

const barMetricColumns = `id, bar_id, symbol, time_utc,
alma_sma1, alma_sma2, alma_sma3, price_sma1, price_sma2, price_sma3,
smasma, regression_angle, rsi, stochastic, week_trend, week_variance,
month_trend, vol_alma_sma, profit_loss_perc`

// MetricRepository stores bar metrics. A metric references its bar by id.
type MetricRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewMetricRepository creates a new metric repository
func NewMetricRepository(db *sql.DB, log zerolog.Logger) *MetricRepository {
	return &MetricRepository{
		db:  db,
		log: log.With().Str("repo", "bar_metric").Logger(),
	}
}

// Insert stores metrics. A bar that already has a metric keeps it. Returns the number inserted.
func (r *MetricRepository) Insert(ctx context.Context, metrics []domain.BarMetric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}

	inserted := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO bar_metrics (
				bar_id, symbol, time_utc,
				alma_sma1, alma_sma2, alma_sma3, price_sma1, price_sma2, price_sma3,
				smasma, regression_angle, rsi, stochastic, week_trend, week_variance,
				month_trend, vol_alma_sma, profit_loss_perc
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare metric insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range metrics {
			res, err := stmt.ExecContext(ctx,
				m.BarID, strings.ToUpper(m.Symbol), domain.TruncateDay(m.Day).UnixMilli(),
				m.AlmaSMA1, m.AlmaSMA2, m.AlmaSMA3, m.PriceSMA1, m.PriceSMA2, m.PriceSMA3,
				m.SMASMA, m.RegressionAngle, m.RSI, m.Stochastic, m.WeekTrend, m.WeekVariance,
				m.MonthTrend, m.VolAlmaSMA, m.ProfitLossPerc,
			)
			if err != nil {
				return fmt.Errorf("failed to insert metric for bar %d: %w", m.BarID, err)
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

// ExistingBarIDs returns the ids of symbol's bars that already have a metric
func (r *MetricRepository) ExistingBarIDs(ctx context.Context, symbol string) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT bar_id FROM bar_metrics WHERE symbol = ?`, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query metric bar ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bar id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// GetRecent returns up to limit metrics of symbol, most recent first
func (r *MetricRepository) GetRecent(ctx context.Context, symbol string, limit int) ([]domain.BarMetric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+barMetricColumns+` FROM bar_metrics
		WHERE symbol = ?
		ORDER BY time_utc DESC
		LIMIT ?
	`, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent metrics: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

// GetHistory returns up to limit metrics of symbol in chronological order
func (r *MetricRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]domain.BarMetric, error) {
	recent, err := r.GetRecent(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

// Count returns the number of metrics stored for symbol
func (r *MetricRepository) Count(ctx context.Context, symbol string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bar_metrics WHERE symbol = ?`, strings.ToUpper(symbol)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count metrics: %w", err)
	}
	return n, nil
}

func scanMetrics(rows *sql.Rows) ([]domain.BarMetric, error) {
	var metrics []domain.BarMetric
	for rows.Next() {
		var m domain.BarMetric
		var ms int64
		err := rows.Scan(&m.ID, &m.BarID, &m.Symbol, &ms,
			&m.AlmaSMA1, &m.AlmaSMA2, &m.AlmaSMA3, &m.PriceSMA1, &m.PriceSMA2, &m.PriceSMA3,
			&m.SMASMA, &m.RegressionAngle, &m.RSI, &m.Stochastic, &m.WeekTrend, &m.WeekVariance,
			&m.MonthTrend, &m.VolAlmaSMA, &m.ProfitLossPerc)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		m.Day = time.UnixMilli(ms).UTC()
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}
	return metrics, nil
}
