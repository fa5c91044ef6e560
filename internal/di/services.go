package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/clients/broker"
	"github.com/aristath/meridian/internal/clients/paper"
	"github.com/aristath/meridian/internal/config"
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
	"github.com/aristath/meridian/internal/work"
)

// InitializeServices creates the broker stack and every service.
// shutdown is invoked when the broker session cannot be bootstrapped.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, shutdown func(error), log zerolog.Logger) error {
	strategy := cfg.Strategy
	if strategy == nil {
		strategy = config.DefaultStrategy()
	}

	// Clients
	container.Metrics = monitoring.New()
	container.Paper = paper.NewBroker(cfg.AccountID, cfg.PaperStartingCash)
	if err := seedPaperBroker(ctx, container, log); err != nil {
		return err
	}
	container.DataGate = broker.NewRateGate("data", strategy.DataGate.Slots, strategy.DataGate.Delay)
	container.TradingGate = broker.NewRateGate("trading", strategy.TradingGate.Slots, strategy.TradingGate.Delay)
	container.Broker = broker.NewGatedClient(container.Paper, container.DataGate, container.TradingGate).
		WithObserver(container.Metrics)

	retry := reliability.RetryPolicy{Attempts: 4, Delay: strategy.RetryDelay}
	batch := work.BatchOptions{Width: strategy.BatchWidth, Stagger: strategy.BatchStagger}

	// Account and calendar
	container.Session = portfolio.NewSession(container.Broker, shutdown, log)
	container.Calendar = market_hours.NewCalendar(container.Broker, log)
	container.PortfolioService = portfolio.NewService(container.Broker, container.Broker, strategy, log)

	// Data pipeline
	container.BarCollector = universe.NewBarCollector(container.Broker, container.BarRepo, container.TickerRepo, retry, batch, log)
	container.MetricEngine = calculations.NewMetricEngine(container.BarRepo, container.MetricRepo, container.TickerRepo, batch, log)
	container.BaselineTracker = baselines.NewTracker(container.MetricRepo, container.TickerRepo, log)

	// Scoring
	container.Scorer = scoring.NewScorer(container.TickerRepo, container.BankTickerRepo, container.MetricRepo, strategy, log)
	container.Promoter = scoring.NewPromoter(container.BankTickerRepo, container.TickerRepo, container.Broker, strategy.PromoteCount, log)
	container.ScoringService = scoring.NewService(
		container.Scorer,
		container.Promoter,
		container.BaselineTracker,
		container.TickerRepo,
		scoring.NewGate(strategy.CalculationDay(), strategy.ForceDataCollection),
		log,
	)

	// Decisions and execution
	container.Predictor = prediction.NewEngine(container.MetricRepo, strategy.Encouragement, log)
	container.Rebalancer = rebalancing.NewEngine(strategy, log)
	container.Decider = trading.NewDecider(container.OrderRepo, container.HistoryRepo, container.Broker, strategy, log)
	container.Executor = trading.NewExecutor(container.OrderRepo, container.Broker, strategy, log)
	container.Reconciler = trading.NewReconciler(container.OrderRepo, container.HistoryRepo, container.Broker, strategy, log)
	container.TradingService = trading.NewService(
		container.Calendar,
		container.PortfolioService,
		container.TickerRepo,
		container.Predictor,
		container.Rebalancer,
		container.Decider,
		container.Executor,
		container.Reconciler,
		log,
	)

	// Maintenance
	container.CleanupService = cleanup.NewService(container.OrderRepo, container.HistoryRepo, container.BarRepo, log)
	container.Importer = universe.NewImporter(container.BankTickerRepo, container.BarRepo, log)

	if cfg.Backup.Enabled() {
		uploader, err := reliability.NewS3Uploader(ctx, reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
			Prefix:          "meridian/",
		})
		if err != nil {
			return fmt.Errorf("failed to create backup uploader: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.DB, uploader, filepath.Join(cfg.DataDir, "backups"), log)
	} else {
		log.Info().Msg("Backups disabled, BACKUP_BUCKET not set")
	}

	log.Debug().Msg("Services initialized")
	return nil
}

// seedPaperBroker loads the stored bar history so the paper broker quotes
// the last stored close of every symbol
func seedPaperBroker(ctx context.Context, container *Container, log zerolog.Logger) error {
	symbols, err := container.BarRepo.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed paper broker: %w", err)
	}
	for _, symbol := range symbols {
		bars, err := container.BarRepo.GetBars(ctx, symbol)
		if err != nil {
			return fmt.Errorf("failed to seed paper broker: %w", err)
		}
		container.Paper.SetBars(symbol, bars)
	}
	log.Info().Int("symbols", len(symbols)).Msg("Paper broker seeded from stored bars")
	return nil
}
