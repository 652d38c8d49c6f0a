package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseToken identifies the asset side of a pair.
type BaseToken struct {
	Address string
	Symbol  string
}

// PairCandidate is one entry of the pair-discovery feed.
type PairCandidate struct {
	PairAddress   string
	ChainID       string
	PairCreatedAt int64 // Unix timestamp in milliseconds
	BaseToken     BaseToken
}

// CreatedAt returns the pair creation time.
func (p *PairCandidate) CreatedAt() time.Time {
	return time.UnixMilli(p.PairCreatedAt)
}

// Age returns how old the pair is relative to now.
func (p *PairCandidate) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt())
}

// SecurityReport is the security oracle verdict for a contract.
type SecurityReport struct {
	IsHoneypot bool
	BuyTax     decimal.Decimal
	SellTax    decimal.Decimal
}

// MarketSnapshot is the current market state of a pair.
type MarketSnapshot struct {
	PairAddress  string
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
	VolumeH1     decimal.Decimal
	BuysH1       int64
	SellsH1      int64
}
