// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/meridian/internal/clients/broker"
	"github.com/aristath/meridian/internal/clients/paper"
	"github.com/aristath/meridian/internal/database"
	"github.com/aristath/meridian/internal/modules/baselines"
	"github.com/aristath/meridian/internal/modules/calculations"
	"github.com/aristath/meridian/internal/modules/cleanup"
	"github.com/aristath/meridian/internal/modules/market_hours"
	"github.com/aristath/meridian/internal/modules/portfolio"
	"github.com/aristath/meridian/internal/modules/prediction"
	"github.com/aristath/meridian/internal/modules/rebalancing"
	"github.com/aristath/meridian/internal/modules/scoring"
	"github.com/aristath/meridian/internal/modules/trading"
	"github.com/aristath/meridian/internal/modules/universe"
	"github.com/aristath/meridian/internal/monitoring"
	"github.com/aristath/meridian/internal/reliability"
	"github.com/aristath/meridian/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and handed to the HTTP server and the CLI.
type Container struct {
	// Database
	DB *database.DB

	// Clients
	Paper       *paper.Broker       // Underlying simulated broker
	Broker      *broker.GatedClient // Rate-gated broker every service talks to
	DataGate    *broker.RateGate
	TradingGate *broker.RateGate
	Metrics     *monitoring.Recorder

	// Repositories
	TickerRepo     *universe.TickerRepository
	BankTickerRepo *universe.BankTickerRepository
	BarRepo        *universe.BarRepository
	MetricRepo     *universe.MetricRepository
	OrderRepo      *trading.OrderRepository
	HistoryRepo    *trading.HistoryRepository

	// Services
	Session          *portfolio.Session
	Calendar         *market_hours.Calendar
	PortfolioService *portfolio.Service
	BarCollector     *universe.BarCollector
	MetricEngine     *calculations.MetricEngine
	BaselineTracker  *baselines.Tracker
	Scorer           *scoring.Scorer
	Promoter         *scoring.Promoter
	ScoringService   *scoring.Service
	Predictor        *prediction.Engine
	Rebalancer       *rebalancing.Engine
	Decider          *trading.Decider
	Executor         *trading.Executor
	Reconciler       *trading.Reconciler
	TradingService   *trading.Service
	CleanupService   *cleanup.Service
	BackupService    *reliability.BackupService // Nil unless a backup bucket is configured
	Importer         *universe.Importer

	// Scheduling
	Scheduler *scheduler.Scheduler
}

// Close releases the database
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
