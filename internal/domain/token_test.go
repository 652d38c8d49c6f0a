package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken_WithSecurity(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	holders := int64(42)
	pair := &PairCandidate{
		PairAddress:   "pair1",
		ChainID:       "solana",
		PairCreatedAt: now.Add(-time.Hour).UnixMilli(),
		BaseToken:     BaseToken{Address: "X", Symbol: "XTK"},
	}

	tok := NewToken(pair, Enrichment{
		Security: &SecurityReport{
			IsHoneypot: false,
			BuyTax:     decimal.NewFromFloat(1.0),
			SellTax:    decimal.NewFromFloat(1.0),
		},
		HolderCount: &holders,
	}, now)

	assert.Equal(t, "X", tok.Address)
	assert.Equal(t, "pair1", tok.PairAddress)
	assert.Equal(t, "solana", tok.Chain)
	assert.Equal(t, "XTK", tok.Symbol)
	assert.Equal(t, StatusMonitoring, tok.Status)
	require.NotNil(t, tok.IsHoneypot)
	assert.False(t, *tok.IsHoneypot)
	require.NotNil(t, tok.BuyTax)
	assert.True(t, tok.BuyTax.Equal(decimal.NewFromInt(1)))
	require.NotNil(t, tok.InitialHolderCount)
	assert.Equal(t, int64(42), *tok.InitialHolderCount)
	assert.Nil(t, tok.DeathAt)
	assert.Nil(t, tok.DeathReason)
}

func TestNewToken_WithoutEnrichment(t *testing.T) {
	now := time.Now()
	pair := &PairCandidate{PairAddress: "p", ChainID: "solana", BaseToken: BaseToken{Address: "A"}}

	tok := NewToken(pair, Enrichment{}, now)

	assert.Nil(t, tok.IsHoneypot)
	assert.Nil(t, tok.BuyTax)
	assert.Nil(t, tok.SellTax)
	assert.Nil(t, tok.InitialHolderCount)
}

func TestToken_Lifespan(t *testing.T) {
	discovered := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := &Token{DiscoveredAt: discovered, Status: StatusMonitoring}

	assert.Equal(t, 2*time.Hour, tok.Lifespan(discovered.Add(2*time.Hour)))

	deathAt := discovered.Add(30 * time.Minute)
	reason := DeathLowVolume
	tok.Status = StatusDead
	tok.DeathAt = &deathAt
	tok.DeathReason = &reason

	assert.True(t, tok.IsDead())
	assert.Equal(t, 30*time.Minute, tok.Lifespan(discovered.Add(10*time.Hour)))
}

func TestPairCandidate_Age(t *testing.T) {
	now := time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC)
	p := &PairCandidate{PairCreatedAt: now.Add(-90 * time.Minute).UnixMilli()}

	assert.Equal(t, 90*time.Minute, p.Age(now))
}

func TestStatusAndReasonValidity(t *testing.T) {
	assert.True(t, StatusMonitoring.IsValid())
	assert.True(t, StatusDead.IsValid())
	assert.False(t, TokenStatus("alive").IsValid())
	assert.True(t, DeathLiquidityCollapse.IsValid())
	assert.True(t, DeathLowVolume.IsValid())
	assert.False(t, DeathReason("rugged").IsValid())
}
