package scoring

import (
	"time"

	"github.com/aristath/meridian/internal/domain"
)

// Gate decides whether an expensive recomputation stage runs today
type Gate struct {
	weekday time.Weekday
	force   bool
}

// NewGate creates a gate for the calculation weekday
func NewGate(weekday time.Weekday, force bool) Gate {
	return Gate{weekday: weekday, force: force}
}

// ShouldRun reports whether a stage last run at last may run at now.
// A stage that never ran always runs. A stage never runs twice on one day.
// Otherwise it runs on the calculation weekday or when forced.
func (g Gate) ShouldRun(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	if domain.TruncateDay(last).Equal(domain.TruncateDay(now)) {
		return false
	}
	return g.force || now.UTC().Weekday() == g.weekday
}

// Latest returns the most recent stamp, zero when any is missing so the stage
// still runs for tickers that never went through it.
func Latest(stamps []time.Time) time.Time {
	var latest time.Time
	for _, s := range stamps {
		if s.IsZero() {
			return time.Time{}
		}
		if s.After(latest) {
			latest = s
		}
	}
	return latest
}
