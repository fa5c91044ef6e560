package work

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchWidth is the number of concurrent tasks per batch
const DefaultBatchWidth = 10

// BatchOptions configures RunBatches
type BatchOptions struct {
	Width   int           // Concurrent tasks per batch
	Stagger time.Duration // Delay before the first batch
}

// Report summarizes a batch run
type Report struct {
	Total     int
	Succeeded int
	Failed    map[string]error
	Skipped   int // Not started because the context was cancelled
}

// FailedSymbols returns the failed symbols in sorted order
func (r *Report) FailedSymbols() []string {
	symbols := make([]string, 0, len(r.Failed))
	for s := range r.Failed {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// TaskFunc processes one symbol
type TaskFunc func(ctx context.Context, symbol string) error

// RunBatches runs fn for every symbol in sequential batches of opts.Width.
// The returned error is non-nil only when ctx was cancelled.
func RunBatches(ctx context.Context, symbols []string, opts BatchOptions, fn TaskFunc) (*Report, error) {
	width := opts.Width
	if width <= 0 {
		width = DefaultBatchWidth
	}

	report := &Report{
		Total:  len(symbols),
		Failed: make(map[string]error),
	}
	if len(symbols) == 0 {
		return report, nil
	}

	if opts.Stagger > 0 {
		timer := time.NewTimer(opts.Stagger)
		select {
		case <-ctx.Done():
			timer.Stop()
			report.Skipped = len(symbols)
			return report, ctx.Err()
		case <-timer.C:
		}
	}

	var mu sync.Mutex
	for start := 0; start < len(symbols); start += width {
		if err := ctx.Err(); err != nil {
			report.Skipped += len(symbols) - start
			return report, err
		}

		end := start + width
		if end > len(symbols) {
			end = len(symbols)
		}

		var g errgroup.Group
		for _, symbol := range symbols[start:end] {
			symbol := symbol
			g.Go(func() error {
				if ctx.Err() != nil {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					return nil
				}

				err := fn(ctx, symbol)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failed[symbol] = err
				} else {
					report.Succeeded++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return report, ctx.Err()
}
