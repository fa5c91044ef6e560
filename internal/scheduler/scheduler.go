// Package scheduler runs the pipeline jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/utils"
)

var (
	// ErrUnknownJob is returned for a job name that was never registered
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobRunning is returned when a job is triggered while it still runs
	ErrJobRunning = errors.New("job already running")
)

// Job represents a scheduled job
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Observer receives the outcome of every job run
type Observer interface {
	ObserveJob(name string, err error, duration time.Duration)
}

// Scheduler manages background jobs
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	observer Observer
	log      zerolog.Logger

	mu      sync.Mutex
	jobs    map[string]Job
	running map[string]bool
}

// New creates a new scheduler. Jobs run with ctx and stop when it is cancelled.
func New(ctx context.Context, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		ctx:     ctx,
		log:     log.With().Str("component", "scheduler").Logger(),
		jobs:    make(map[string]Job),
		running: make(map[string]bool),
	}
}

// WithObserver reports every run to o
func (s *Scheduler) WithObserver(o Observer) *Scheduler {
	s.observer = o
	return s
}

// AddJob registers a job. An empty schedule registers it for manual runs only.
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "0 30 14 * * 1-5"    - 14:30 UTC on weekdays
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	if _, exists := s.jobs[job.Name()]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %s registered twice", job.Name())
	}
	s.jobs[job.Name()] = job
	s.mu.Unlock()

	if schedule == "" {
		s.log.Info().Str("job", job.Name()).Msg("Job registered for manual runs")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(s.ctx, job); err != nil && !errors.Is(err, ErrJobRunning) {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// Jobs returns the registered job names in order
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.run(ctx, job)
}

// run executes job unless a previous run is still in flight
func (s *Scheduler) run(ctx context.Context, job Job) error {
	name := job.Name()

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.log.Warn().Str("job", name).Msg("Previous run still in progress, skipping")
		return fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	log := s.log.With().Str("job", name).Str("run_id", uuid.NewString()).Logger()
	log.Debug().Msg("Running job")

	timer := utils.NewTimer(name, log)
	err := job.Run(log.WithContext(ctx))
	duration := timer.Stop()

	if s.observer != nil {
		s.observer.ObserveJob(name, err, duration)
	}
	if err != nil {
		return err
	}
	log.Debug().Dur("duration", duration).Msg("Job completed")
	return nil
}
