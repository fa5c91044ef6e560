package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/scheduler"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:           t.TempDir(),
		Port:              8080,
		AccountID:         "paper",
		PaperStartingCash: 50_000,
		Strategy:          config.DefaultStrategy(),
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.FileExists(t, filepath.Join(cfg.DataDir, "meridian.db"))
	assert.NotNil(t, container.TradingService)
	assert.NotNil(t, container.ScoringService)
	assert.NotNil(t, container.CleanupService)
	assert.Nil(t, container.BackupService, "no bucket configured")

	assert.Equal(t, []string{
		scheduler.JobBaselines,
		scheduler.JobCheckDatabase,
		scheduler.JobCleanup,
		scheduler.JobCollectBars,
		scheduler.JobExecuteOrders,
		scheduler.JobGenerateMetrics,
		scheduler.JobScoring,
		scheduler.JobTradingCycle,
	}, container.Scheduler.Jobs())

	account, err := container.Session.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "paper", account.ID)
	assert.Equal(t, 50_000.0, account.Cash)

	require.NoError(t, container.Scheduler.RunNow(context.Background(), scheduler.JobCleanup))
	require.NoError(t, container.Scheduler.RunNow(context.Background(), scheduler.JobCheckDatabase))
}

func TestWire_SeedsPaperBrokerFromStoredBars(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := Wire(ctx, cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	_, err = first.BarRepo.Insert(ctx, testingpkg.NewBarSeries("KO", testingpkg.FixtureStart, 5, testingpkg.Rising(60, 1)))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Wire(ctx, cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	trade, err := second.Paper.GetLastTrade(ctx, "KO")
	require.NoError(t, err)
	assert.Positive(t, trade.Price)
}

func TestWire_InvalidDataDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataDir = "/dev/null/meridian"

	container, err := Wire(context.Background(), cfg, nil, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
}
