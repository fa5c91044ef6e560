package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/modules/cleanup"
	"github.com/aristath/meridian/internal/modules/trading"
	testingpkg "github.com/aristath/meridian/internal/testing"
	"github.com/aristath/meridian/internal/work"
)

type stubTrading struct {
	cycle   *trading.CycleReport
	pending *trading.ExecutionReport
	err     error
}

func (s *stubTrading) RunCycle(ctx context.Context) (*trading.CycleReport, error) {
	return s.cycle, s.err
}

func (s *stubTrading) ExecutePending(ctx context.Context) (*trading.ExecutionReport, error) {
	return s.pending, s.err
}

type tradeCounter struct {
	orders map[string]int
	bought float64
	sold   float64
}

func (c *tradeCounter) ObserveOrders(stage string, n int) {
	if c.orders == nil {
		c.orders = make(map[string]int)
	}
	c.orders[stage] += n
}

func (c *tradeCounter) ObserveTraded(bought, sold float64) {
	c.bought += bought
	c.sold += sold
}

func TestTradingCycleJob_ReportsOrderFlow(t *testing.T) {
	counter := &tradeCounter{}
	job := NewTradingCycleJob(&stubTrading{cycle: &trading.CycleReport{
		Reconciled: 2,
		Decided:    3,
		Execution:  &trading.ExecutionReport{Submitted: 2, Skipped: 1, Bought: 900, Sold: 300},
	}}, counter)

	assert.Equal(t, JobTradingCycle, job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, map[string]int{"reconciled": 2, "decided": 3, "submitted": 2, "skipped": 1}, counter.orders)
	assert.Equal(t, 900.0, counter.bought)
	assert.Equal(t, 300.0, counter.sold)
}

func TestTradingCycleJob_SkippedDayReportsNothing(t *testing.T) {
	counter := &tradeCounter{}
	job := NewTradingCycleJob(&stubTrading{cycle: &trading.CycleReport{Skipped: true}}, counter)

	require.NoError(t, job.Run(context.Background()))
	assert.Nil(t, counter.orders)
}

func TestExecuteOrdersJob(t *testing.T) {
	job := NewExecuteOrdersJob(&stubTrading{err: errors.New("broker down")}, nil)
	assert.Error(t, job.Run(context.Background()))

	counter := &tradeCounter{}
	job = NewExecuteOrdersJob(&stubTrading{pending: &trading.ExecutionReport{Submitted: 1, Bought: 100}}, counter)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, counter.orders["submitted"])
}

type stubBatch struct {
	report *work.Report
	err    error
}

func (s stubBatch) CollectAll(ctx context.Context) (*work.Report, error)  { return s.report, s.err }
func (s stubBatch) GenerateAll(ctx context.Context) (*work.Report, error) { return s.report, s.err }

func TestBatchJobs_SymbolFailuresDoNotFailTheJob(t *testing.T) {
	report := &work.Report{Total: 3, Succeeded: 2, Failed: map[string]error{"MSFT": errors.New("timeout")}}

	require.NoError(t, NewCollectBarsJob(stubBatch{report: report}).Run(context.Background()))
	require.NoError(t, NewGenerateMetricsJob(stubBatch{report: report}).Run(context.Background()))

	cancelled := stubBatch{err: context.Canceled}
	assert.ErrorIs(t, NewCollectBarsJob(cancelled).Run(context.Background()), context.Canceled)
}

type stubCleanup struct{ runs int }

func (s *stubCleanup) Run(ctx context.Context) (*cleanup.Result, error) {
	s.runs++
	return &cleanup.Result{}, nil
}

type stubBackup struct{ err error }

func (s stubBackup) Run(ctx context.Context) (string, error) { return "backups/x.db.gz", s.err }

func TestMaintenanceJobs(t *testing.T) {
	c := &stubCleanup{}
	require.NoError(t, NewCleanupJob(c).Run(context.Background()))
	assert.Equal(t, 1, c.runs)

	require.NoError(t, NewBackupJob(stubBackup{}).Run(context.Background()))
	assert.Error(t, NewBackupJob(stubBackup{err: errors.New("denied")}).Run(context.Background()))
}

func TestCheckDatabaseJob(t *testing.T) {
	db := testingpkg.NewTestDBFromFile(t)
	job := NewCheckDatabaseJob(db)

	assert.Equal(t, JobCheckDatabase, job.Name())
	require.NoError(t, job.Run(context.Background()))
}

type stubScoring struct {
	refreshed, scored int
}

func (s *stubScoring) RefreshBaselines(ctx context.Context) (bool, error) {
	s.refreshed++
	return true, nil
}

func (s *stubScoring) Run(ctx context.Context) error {
	s.scored++
	return nil
}

func TestScoringJobs(t *testing.T) {
	s := &stubScoring{}
	require.NoError(t, NewBaselinesJob(s).Run(context.Background()))
	require.NoError(t, NewScoringJob(s).Run(context.Background()))
	assert.Equal(t, 1, s.refreshed)
	assert.Equal(t, 1, s.scored)
}
