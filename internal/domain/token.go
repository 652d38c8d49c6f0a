package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenStatus is the lifecycle state of a monitored token.
type TokenStatus string

const (
	StatusMonitoring TokenStatus = "monitoring"
	StatusDead       TokenStatus = "dead"
)

// String returns the string representation of TokenStatus.
func (s TokenStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s TokenStatus) IsValid() bool {
	return s == StatusMonitoring || s == StatusDead
}

// DeathReason explains why a token left monitoring.
type DeathReason string

const (
	DeathLiquidityCollapse DeathReason = "liquidity_collapse"
	DeathLowVolume         DeathReason = "low_volume"
)

// String returns the string representation of DeathReason.
func (r DeathReason) String() string {
	return string(r)
}

// IsValid checks if the reason is a valid value.
func (r DeathReason) IsValid() bool {
	return r == DeathLiquidityCollapse || r == DeathLowVolume
}

// Token is one discovered on-chain asset under lifecycle monitoring.
// Corresponds to tokens table in PostgreSQL.
type Token struct {
	ID           int64  // BIGSERIAL primary key, assigned on insert
	Address      string // base asset address, unique
	PairAddress  string // pool the token was discovered through
	Chain        string // chain tag, e.g. "solana"
	Symbol       string
	DiscoveredAt time.Time

	// Enrichment snapshot taken at discovery. nil means the oracle had no answer.
	InitialHolderCount *int64
	IsHoneypot         *bool
	BuyTax             *decimal.Decimal
	SellTax            *decimal.Decimal

	Status      TokenStatus
	DeathAt     *time.Time   // set together with Status=dead
	DeathReason *DeathReason // set together with Status=dead
}

// IsDead reports whether the token reached its terminal state.
func (t *Token) IsDead() bool {
	return t.Status == StatusDead
}

// Lifespan returns how long the token lived. For tokens still monitored
// it returns the age relative to now.
func (t *Token) Lifespan(now time.Time) time.Duration {
	if t.DeathAt != nil {
		return t.DeathAt.Sub(t.DiscoveredAt)
	}
	return now.Sub(t.DiscoveredAt)
}

// Enrichment is the metadata gathered for a token at discovery time.
type Enrichment struct {
	Security    *SecurityReport // nil when the security oracle was unavailable
	HolderCount *int64          // nil when the holder oracle was unavailable
}

// NewToken builds a monitoring token from a discovered pair and its enrichment.
func NewToken(p *PairCandidate, e Enrichment, discoveredAt time.Time) *Token {
	t := &Token{
		Address:            p.BaseToken.Address,
		PairAddress:        p.PairAddress,
		Chain:              p.ChainID,
		Symbol:             p.BaseToken.Symbol,
		DiscoveredAt:       discoveredAt,
		InitialHolderCount: e.HolderCount,
		Status:             StatusMonitoring,
	}
	if e.Security != nil {
		honeypot := e.Security.IsHoneypot
		buyTax := e.Security.BuyTax
		sellTax := e.Security.SellTax
		t.IsHoneypot = &honeypot
		t.BuyTax = &buyTax
		t.SellTax = &sellTax
	}
	return t
}
