package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/work"
)

// Session bootstraps the broker account once. Every caller awaits the same
// bootstrap; a failed bootstrap invokes the shutdown callback.
type Session struct {
	accounts AccountSource
	shutdown func(error)
	log      zerolog.Logger

	mu     sync.Mutex
	future *work.Future[*domain.BrokerAccount]
}

// NewSession creates a session. shutdown is called once if the bootstrap fails.
func NewSession(accounts AccountSource, shutdown func(error), log zerolog.Logger) *Session {
	return &Session{
		accounts: accounts,
		shutdown: shutdown,
		log:      log.With().Str("component", "broker_session").Logger(),
	}
}

// Start begins the bootstrap if it has not started yet
func (s *Session) Start(ctx context.Context) *work.Future[*domain.BrokerAccount] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.future != nil {
		return s.future
	}

	s.future = work.Go(func() (*domain.BrokerAccount, error) {
		account, err := s.accounts.GetAccount(ctx)
		if err != nil {
			err = fmt.Errorf("%w: %v", domain.ErrSessionUnavailable, err)
			s.log.Error().Err(err).Msg("Broker session bootstrap failed, shutting down")
			if s.shutdown != nil {
				s.shutdown(err)
			}
			return nil, err
		}
		s.log.Info().Str("account", account.ID).Float64("equity", account.Equity).Msg("Broker session ready")
		return account, nil
	})
	return s.future
}

// Account awaits the bootstrap and returns the account it saw
func (s *Session) Account(ctx context.Context) (*domain.BrokerAccount, error) {
	return s.Start(ctx).Await(ctx)
}
