// Package portfolio provides the account view the strategy trades against.
package portfolio

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/domain"
)

// AccountSource returns the raw broker account
type AccountSource interface {
	GetAccount(ctx context.Context) (*domain.BrokerAccount, error)
}

// PositionSource returns the broker holdings
type PositionSource interface {
	GetPositions(ctx context.Context) ([]domain.Position, error)
}

// Service applies the cash reserve to broker balances
type Service struct {
	accounts  AccountSource
	positions PositionSource
	strategy  *config.Strategy
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(accounts AccountSource, positions PositionSource, strategy *config.Strategy, log zerolog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		positions: positions,
		strategy:  strategy,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// Reserve is the cash kept out of trading for the given equity
func Reserve(equity, cashMinimum, cashPercent float64) float64 {
	return math.Max(cashMinimum, cashPercent*equity)
}

// Snapshot returns the account with the cash reserve applied
func (s *Service) Snapshot(ctx context.Context) (*domain.Account, error) {
	raw, err := s.accounts.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return Apply(raw, s.strategy.CashMinimum, s.strategy.CashPercent), nil
}

// Positions returns the current holdings
func (s *Service) Positions(ctx context.Context) ([]domain.Position, error) {
	positions, err := s.positions.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	return positions, nil
}

// Apply derives the tradable balances of a broker account
func Apply(raw *domain.BrokerAccount, cashMinimum, cashPercent float64) *domain.Account {
	reserve := Reserve(raw.Equity, cashMinimum, cashPercent)
	return &domain.Account{
		ID:              raw.ID,
		Equity:          raw.Equity,
		LastEquity:      raw.LastEquity,
		BuyingPower:     raw.BuyingPower,
		TradableCash:    math.Max(raw.Cash-reserve, 0),
		TradeableEquity: math.Max(raw.Equity-reserve, 0),
	}
}
