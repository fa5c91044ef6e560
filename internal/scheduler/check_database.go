package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/database"
)

// walFrameWarning is the WAL size, in frames, above which a truncating checkpoint runs
const walFrameWarning = 1000

// CheckDatabaseJob runs the integrity check and keeps the WAL file small
type CheckDatabaseJob struct {
	db *database.DB
}

// NewCheckDatabaseJob creates a new CheckDatabaseJob
func NewCheckDatabaseJob(db *database.DB) *CheckDatabaseJob {
	return &CheckDatabaseJob{db: db}
}

// Name returns the job name
func (j *CheckDatabaseJob) Name() string { return JobCheckDatabase }

// Run executes the database check
func (j *CheckDatabaseJob) Run(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	if err := j.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to check WAL checkpoint")
		return nil
	}

	if frames > walFrameWarning {
		log.Warn().
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
			return err
		}
	} else {
		log.Debug().Int("wal_frames", frames).Msg("WAL checkpoint status OK")
	}

	stats, err := j.db.GetStats()
	if err == nil {
		log.Info().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("Database check completed")
	}
	return nil
}
