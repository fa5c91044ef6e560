package work

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func symbols(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("S%02d", i)
	}
	return out
}

func TestRunBatches_ProcessesEverySymbol(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)

	report, err := RunBatches(context.Background(), symbols(25), BatchOptions{Width: 10}, func(ctx context.Context, s string) error {
		mu.Lock()
		seen[s]++
		mu.Unlock()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 25, report.Total)
	assert.Equal(t, 25, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Len(t, seen, 25)
	for s, n := range seen {
		assert.Equal(t, 1, n, s)
	}
}

func TestRunBatches_CapsConcurrencyAtWidth(t *testing.T) {
	var running, peak int32

	_, err := RunBatches(context.Background(), symbols(30), BatchOptions{Width: 4}, func(ctx context.Context, s string) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestRunBatches_IsolatesFailures(t *testing.T) {
	report, err := RunBatches(context.Background(), symbols(12), BatchOptions{Width: 5}, func(ctx context.Context, s string) error {
		if s == "S03" || s == "S10" {
			return errors.New("broker unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 10, report.Succeeded)
	assert.Equal(t, []string{"S03", "S10"}, report.FailedSymbols())
}

func TestRunBatches_StopsAtBatchBoundaryOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started int32

	report, err := RunBatches(ctx, symbols(30), BatchOptions{Width: 10}, func(ctx context.Context, s string) error {
		if atomic.AddInt32(&started, 1) == 1 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	started32 := atomic.LoadInt32(&started)
	assert.LessOrEqual(t, started32, int32(10), "later batches never start")
	assert.Equal(t, 30, report.Skipped+int(started32))
	assert.Equal(t, int(started32), report.Succeeded)
}

func TestRunBatches_StaggerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	report, err := RunBatches(ctx, symbols(3), BatchOptions{Stagger: time.Hour}, func(ctx context.Context, s string) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, 3, report.Skipped)
}

func TestRunBatches_Empty(t *testing.T) {
	report, err := RunBatches(context.Background(), nil, BatchOptions{}, func(ctx context.Context, s string) error {
		t.Fatal("must not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
}
