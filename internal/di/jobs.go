package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers every job on its schedule.
// The backup job is registered only when backups are configured.
func RegisterJobs(ctx context.Context, container *Container, strategy *config.Strategy, log zerolog.Logger) error {
	if strategy == nil {
		strategy = config.DefaultStrategy()
	}
	s := strategy.Schedules

	sched := scheduler.New(ctx, log).WithObserver(container.Metrics)

	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{s.CollectBars, scheduler.NewCollectBarsJob(container.BarCollector)},
		{s.GenerateMetrics, scheduler.NewGenerateMetricsJob(container.MetricEngine)},
		{s.Baselines, scheduler.NewBaselinesJob(container.ScoringService)},
		{s.Scoring, scheduler.NewScoringJob(container.ScoringService)},
		{s.TradingCycle, scheduler.NewTradingCycleJob(container.TradingService, container.Metrics)},
		{s.ExecuteOrders, scheduler.NewExecuteOrdersJob(container.TradingService, container.Metrics)},
		{s.Cleanup, scheduler.NewCleanupJob(container.CleanupService)},
		{s.CheckDatabase, scheduler.NewCheckDatabaseJob(container.DB)},
	}
	if container.BackupService != nil {
		jobs = append(jobs, struct {
			schedule string
			job      scheduler.Job
		}{s.Backup, scheduler.NewBackupJob(container.BackupService)})
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			return fmt.Errorf("failed to register job %s: %w", j.job.Name(), err)
		}
	}
	container.Scheduler = sched

	log.Info().Int("jobs", len(jobs)).Msg("Jobs registered")
	return nil
}
