package portfolio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/meridian/internal/clients/paper"
	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name             string
		equity, cash     float64
		wantCash, wantEq float64
	}{
		{"percent reserve", 100_000, 20_000, 15_000, 95_000},
		{"minimum reserve", 10_000, 3_000, 2_000, 9_000},
		{"cash below reserve", 100_000, 4_000, 0, 95_000},
		{"empty account", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Apply(&domain.BrokerAccount{ID: "x", Equity: tt.equity, Cash: tt.cash}, 1000, 0.05)
			assert.InDelta(t, tt.wantCash, a.TradableCash, 1e-9)
			assert.InDelta(t, tt.wantEq, a.TradeableEquity, 1e-9)
			assert.Equal(t, tt.equity, a.Equity)
		})
	}
}

func TestService_Snapshot(t *testing.T) {
	broker := paper.NewBroker("acct", 50_000)
	broker.SetPrice("AAPL", 100)
	broker.SetPosition("AAPL", 500, 80)

	svc := NewService(broker, broker, config.DefaultStrategy(), zerolog.Nop())
	a, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acct", a.ID)
	assert.InDelta(t, 100_000, a.Equity, 1e-9)
	assert.InDelta(t, 45_000, a.TradableCash, 1e-9)
	assert.InDelta(t, 95_000, a.TradeableEquity, 1e-9)

	positions, err := svc.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.InDelta(t, 25.0, positions[0].UnrealizedPLPerc, 1e-9)
}

type countingAccounts struct {
	calls atomic.Int32
	err   error
}

func (c *countingAccounts) GetAccount(ctx context.Context) (*domain.BrokerAccount, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &domain.BrokerAccount{ID: "acct", Equity: 10}, nil
}

func TestSession_ConcurrentCallersShareBootstrap(t *testing.T) {
	accounts := &countingAccounts{}
	s := NewSession(accounts, nil, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.Account(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "acct", a.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), accounts.calls.Load())
}

func TestSession_FailureTriggersShutdown(t *testing.T) {
	faulty := testingpkg.NewFaultyBroker(paper.NewBroker("acct", 0))
	faulty.Fail("account", "", errors.New("unauthorized"))

	var reason error
	s := NewSession(faulty, func(err error) { reason = err }, zerolog.Nop())

	_, err := s.Account(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSessionUnavailable)
	require.Error(t, reason)
	assert.ErrorIs(t, reason, domain.ErrSessionUnavailable)

	_, err = s.Account(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionUnavailable, "no retry")
	assert.Equal(t, 1, faulty.Calls("account", ""))
}
