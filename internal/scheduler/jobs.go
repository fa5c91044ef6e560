package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/modules/cleanup"
	"github.com/aristath/meridian/internal/modules/trading"
	"github.com/aristath/meridian/internal/work"
)

// Job names
const (
	JobCollectBars     = "collect_bars"
	JobGenerateMetrics = "generate_metrics"
	JobBaselines       = "baselines"
	JobScoring         = "scoring"
	JobTradingCycle    = "trading_cycle"
	JobExecuteOrders   = "execute_orders"
	JobCleanup         = "cleanup"
	JobBackup          = "backup"
	JobCheckDatabase   = "check_database"
)

// BarCollection pulls new bars for the active universe
type BarCollection interface {
	CollectAll(ctx context.Context) (*work.Report, error)
}

// MetricGeneration computes metrics for new bars
type MetricGeneration interface {
	GenerateAll(ctx context.Context) (*work.Report, error)
}

// Scoring refreshes baselines and scores on the calculation day
type Scoring interface {
	RefreshBaselines(ctx context.Context) (bool, error)
	Run(ctx context.Context) error
}

// Trading runs the trading cycle and the pending order passes
type Trading interface {
	RunCycle(ctx context.Context) (*trading.CycleReport, error)
	ExecutePending(ctx context.Context) (*trading.ExecutionReport, error)
}

// TradeObserver records order flow
type TradeObserver interface {
	ObserveOrders(stage string, n int)
	ObserveTraded(bought, sold float64)
}

// Cleanup applies the retention policy
type Cleanup interface {
	Run(ctx context.Context) (*cleanup.Result, error)
}

// Backup uploads a database snapshot and returns its key
type Backup interface {
	Run(ctx context.Context) (string, error)
}

// CollectBarsJob pulls completed daily bars
type CollectBarsJob struct {
	collector BarCollection
}

// NewCollectBarsJob creates a new CollectBarsJob
func NewCollectBarsJob(collector BarCollection) *CollectBarsJob {
	return &CollectBarsJob{collector: collector}
}

// Name returns the job name
func (j *CollectBarsJob) Name() string { return JobCollectBars }

// Run executes the bar collection. Per-symbol failures are reported, not returned.
func (j *CollectBarsJob) Run(ctx context.Context) error {
	report, err := j.collector.CollectAll(ctx)
	if err != nil {
		return err
	}
	logReport(ctx, report)
	return nil
}

// GenerateMetricsJob computes metrics for every new bar
type GenerateMetricsJob struct {
	engine MetricGeneration
}

// NewGenerateMetricsJob creates a new GenerateMetricsJob
func NewGenerateMetricsJob(engine MetricGeneration) *GenerateMetricsJob {
	return &GenerateMetricsJob{engine: engine}
}

// Name returns the job name
func (j *GenerateMetricsJob) Name() string { return JobGenerateMetrics }

// Run executes the metric generation
func (j *GenerateMetricsJob) Run(ctx context.Context) error {
	report, err := j.engine.GenerateAll(ctx)
	if err != nil {
		return err
	}
	logReport(ctx, report)
	return nil
}

// BaselinesJob refreshes the baseline distributions
type BaselinesJob struct {
	scoring Scoring
}

// NewBaselinesJob creates a new BaselinesJob
func NewBaselinesJob(scoring Scoring) *BaselinesJob {
	return &BaselinesJob{scoring: scoring}
}

// Name returns the job name
func (j *BaselinesJob) Name() string { return JobBaselines }

// Run executes the baseline refresh when it is due
func (j *BaselinesJob) Run(ctx context.Context) error {
	ran, err := j.scoring.RefreshBaselines(ctx)
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Bool("ran", ran).Msg("Baselines stage finished")
	return nil
}

// ScoringJob scores the bank, promotes the universe and scores active tickers
type ScoringJob struct {
	scoring Scoring
}

// NewScoringJob creates a new ScoringJob
func NewScoringJob(scoring Scoring) *ScoringJob {
	return &ScoringJob{scoring: scoring}
}

// Name returns the job name
func (j *ScoringJob) Name() string { return JobScoring }

// Run executes the scoring stages that are due
func (j *ScoringJob) Run(ctx context.Context) error {
	return j.scoring.Run(ctx)
}

// TradingCycleJob runs reconciliation, planning, decisions and execution
type TradingCycleJob struct {
	trading  Trading
	observer TradeObserver
}

// NewTradingCycleJob creates a new TradingCycleJob. observer may be nil.
func NewTradingCycleJob(trading Trading, observer TradeObserver) *TradingCycleJob {
	return &TradingCycleJob{trading: trading, observer: observer}
}

// Name returns the job name
func (j *TradingCycleJob) Name() string { return JobTradingCycle }

// Run executes one trading cycle
func (j *TradingCycleJob) Run(ctx context.Context) error {
	report, err := j.trading.RunCycle(ctx)
	if err != nil {
		return err
	}
	if report.Skipped || j.observer == nil {
		return nil
	}
	j.observer.ObserveOrders("reconciled", report.Reconciled)
	j.observer.ObserveOrders("decided", report.Decided)
	observeExecution(j.observer, report.Execution)
	return nil
}

// ExecuteOrdersJob submits orders left pending by earlier passes
type ExecuteOrdersJob struct {
	trading  Trading
	observer TradeObserver
}

// NewExecuteOrdersJob creates a new ExecuteOrdersJob. observer may be nil.
func NewExecuteOrdersJob(trading Trading, observer TradeObserver) *ExecuteOrdersJob {
	return &ExecuteOrdersJob{trading: trading, observer: observer}
}

// Name returns the job name
func (j *ExecuteOrdersJob) Name() string { return JobExecuteOrders }

// Run executes the pending orders
func (j *ExecuteOrdersJob) Run(ctx context.Context) error {
	report, err := j.trading.ExecutePending(ctx)
	if err != nil {
		return err
	}
	if j.observer != nil {
		observeExecution(j.observer, report)
	}
	return nil
}

// CleanupJob prunes old orders, fills and bars
type CleanupJob struct {
	cleanup Cleanup
}

// NewCleanupJob creates a new CleanupJob
func NewCleanupJob(cleanup Cleanup) *CleanupJob {
	return &CleanupJob{cleanup: cleanup}
}

// Name returns the job name
func (j *CleanupJob) Name() string { return JobCleanup }

// Run executes the cleanup
func (j *CleanupJob) Run(ctx context.Context) error {
	_, err := j.cleanup.Run(ctx)
	return err
}

// BackupJob uploads a database snapshot
type BackupJob struct {
	backup Backup
}

// NewBackupJob creates a new BackupJob
func NewBackupJob(backup Backup) *BackupJob {
	return &BackupJob{backup: backup}
}

// Name returns the job name
func (j *BackupJob) Name() string { return JobBackup }

// Run executes the backup
func (j *BackupJob) Run(ctx context.Context) error {
	key, err := j.backup.Run(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("key", key).Msg("Backup uploaded")
	return nil
}

func observeExecution(o TradeObserver, r *trading.ExecutionReport) {
	if r == nil {
		return
	}
	o.ObserveOrders("submitted", r.Submitted)
	o.ObserveOrders("skipped", r.Skipped)
	o.ObserveTraded(r.Bought, r.Sold)
}

func logReport(ctx context.Context, report *work.Report) {
	if report == nil {
		return
	}
	event := zerolog.Ctx(ctx).Info()
	if len(report.Failed) > 0 {
		event = zerolog.Ctx(ctx).Warn().Strs("failed", report.FailedSymbols())
	}
	event.Int("symbols", report.Total).Int("succeeded", report.Succeeded).Msg("Batch finished")
}
