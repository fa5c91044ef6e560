// Package market_hours answers market calendar questions through the broker.
package market_hours

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
)

// CalendarSource is the calendar part of the broker
type CalendarSource interface {
	GetMarketOpen(ctx context.Context, day time.Time) (time.Time, error)
	GetMarketClose(ctx context.Context, day time.Time) (time.Time, error)
	GetLastMarketDay(ctx context.Context, before time.Time) (time.Time, error)
	GetMarketDays(ctx context.Context, from, to time.Time) ([]domain.MarketSession, error)
}

// Status describes the market on one day
type Status struct {
	Day         time.Time `json:"day"`
	IsMarketDay bool      `json:"is_market_day"`
	Open        time.Time `json:"open,omitempty"`
	Close       time.Time `json:"close,omitempty"`
	IsOpen      bool      `json:"is_open"`
}

// Calendar wraps the broker calendar
type Calendar struct {
	source CalendarSource
	now    func() time.Time
	log    zerolog.Logger
}

// NewCalendar creates a new market calendar
func NewCalendar(source CalendarSource, log zerolog.Logger) *Calendar {
	return &Calendar{
		source: source,
		now:    time.Now,
		log:    log.With().Str("service", "market_calendar").Logger(),
	}
}

// SetClock replaces the wall clock
func (c *Calendar) SetClock(now func() time.Time) {
	c.now = now
}

// Now returns the calendar's current time
func (c *Calendar) Now() time.Time {
	return c.now()
}

// Today returns the current day at UTC midnight
func (c *Calendar) Today() time.Time {
	return domain.TruncateDay(c.now())
}

// IsMarketDay reports whether the market trades on day
func (c *Calendar) IsMarketDay(ctx context.Context, day time.Time) (bool, error) {
	day = domain.TruncateDay(day)
	sessions, err := c.source.GetMarketDays(ctx, day, day)
	if err != nil {
		return false, fmt.Errorf("failed to get market days: %w", err)
	}
	for _, s := range sessions {
		if domain.TruncateDay(s.Day).Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

// PreviousMarketDay returns the last market day strictly before day
func (c *Calendar) PreviousMarketDay(ctx context.Context, day time.Time) (time.Time, error) {
	prev, err := c.source.GetLastMarketDay(ctx, domain.TruncateDay(day))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last market day: %w", err)
	}
	return domain.TruncateDay(prev), nil
}

// Status returns today's market status
func (c *Calendar) Status(ctx context.Context) (*Status, error) {
	now := c.now()
	today := domain.TruncateDay(now)

	marketDay, err := c.IsMarketDay(ctx, today)
	if err != nil {
		return nil, err
	}
	status := &Status{Day: today, IsMarketDay: marketDay}
	if !marketDay {
		return status, nil
	}

	if status.Open, err = c.source.GetMarketOpen(ctx, today); err != nil {
		return nil, fmt.Errorf("failed to get market open: %w", err)
	}
	if status.Close, err = c.source.GetMarketClose(ctx, today); err != nil {
		return nil, fmt.Errorf("failed to get market close: %w", err)
	}
	status.IsOpen = !now.Before(status.Open) && now.Before(status.Close)
	return status, nil
}
