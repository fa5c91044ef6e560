// Package utils holds small helpers shared across services.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Stages slower than these thresholds are reported above debug level
const (
	slowThreshold     = 10 * time.Second
	verySlowThreshold = 60 * time.Second
)

// Timer measures the duration of a named stage
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer starts a timer for the named stage
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Elapsed returns the time since the timer started
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop logs the stage duration and returns it
func (t *Timer) Stop() time.Duration {
	duration := t.Elapsed()

	event := t.log.Debug()
	switch {
	case duration > verySlowThreshold:
		event = t.log.Warn()
	case duration > slowThreshold:
		event = t.log.Info()
	}
	event.
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Stage finished")

	return duration
}
