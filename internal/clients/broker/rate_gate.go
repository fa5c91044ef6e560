// Package broker provides rate-gated access to the broker collaborator.
package broker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// RateGate caps calls to one destination class. A caller takes a slot and
// proceeds at once; the slot returns to the pool Delay later. Slots bound
// concurrency and Delay bounds the spacing between calls on the same slot.
type RateGate struct {
	name  string
	slots int64
	delay time.Duration
	sem   *semaphore.Weighted
}

// NewRateGate creates a gate with the given number of slots
func NewRateGate(name string, slots int, delay time.Duration) *RateGate {
	if slots < 1 {
		slots = 1
	}
	return &RateGate{
		name:  name,
		slots: int64(slots),
		delay: delay,
		sem:   semaphore.NewWeighted(int64(slots)),
	}
}

// Acquire blocks until a slot is free and schedules its release
func (g *RateGate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s rate gate: %w", g.name, err)
	}

	if g.delay <= 0 {
		g.sem.Release(1)
		return nil
	}
	time.AfterFunc(g.delay, func() { g.sem.Release(1) })
	return nil
}

// Name returns the call class of the gate
func (g *RateGate) Name() string {
	return g.name
}

// Slots returns the slot count
func (g *RateGate) Slots() int {
	return int(g.slots)
}
