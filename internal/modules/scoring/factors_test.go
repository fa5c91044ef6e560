package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/meridian/internal/domain"
	testingpkg "github.com/aristath/meridian/internal/testing"
)

func TestEligible(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *domain.Fundamentals)
		want   bool
	}{
		{"healthy", func(f *domain.Fundamentals) {}, true},
		{"debt equity covers missing current ratio", func(f *domain.Fundamentals) { f.CurrentRatio = 0 }, true},
		{"no liquidity measure", func(f *domain.Fundamentals) { f.CurrentRatio = 0; f.DebtEquityRatio = 3 }, false},
		{"net debt over half the cap", func(f *domain.Fundamentals) { f.Debt = 12_000_000_000 }, false},
		{"loss making", func(f *domain.Fundamentals) { f.Earnings = -1 }, false},
		{"no dividend", func(f *domain.Fundamentals) { f.DividendYield = 0 }, false},
		{"negative eps", func(f *domain.Fundamentals) { f.EPS = -0.5 }, false},
		{"negative ev earnings", func(f *domain.Fundamentals) { f.EVEarnings = -3 }, false},
		{"expensive", func(f *domain.Fundamentals) { f.EVEarnings = 30 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testingpkg.HealthyFundamentals()
			tt.modify(&f)
			assert.Equal(t, tt.want, Eligible(f, 30))
		})
	}
}

func TestBankFactors_RewardCheaperAndSteadier(t *testing.T) {
	factors := BankFactors()
	byName := make(map[string]Factor[domain.BankTicker], len(factors))
	total := 0.0
	for _, f := range factors {
		byName[f.Name] = f
		total += f.Weight
	}
	assert.Equal(t, MaxScore, total)

	cheap := domain.BankTicker{Fundamentals: testingpkg.HealthyFundamentals()}
	expensive := cheap
	expensive.Fundamentals.EVEarnings = 25
	assert.Greater(t, byName["ev_earnings"].Value(cheap), byName["ev_earnings"].Value(expensive))

	steady := domain.BankTicker{PriceChangeAvg: 10, BetaAvg: 1}
	volatile := domain.BankTicker{PriceChangeAvg: 10, BetaAvg: 2.5}
	assert.Greater(t, byName["price_change"].Value(steady), byName["price_change"].Value(volatile))

	generous := domain.BankTicker{Fundamentals: domain.Fundamentals{DividendYield: 0.4}}
	assert.Equal(t, 0.1, byName["dividend"].Value(generous))
}

func TestActiveFactors_WeightsSumToMax(t *testing.T) {
	total := 0.0
	for _, f := range ActiveFactors() {
		total += f.Weight
	}
	assert.Equal(t, MaxScore, total)
}
