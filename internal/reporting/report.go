package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"token-lifecycle-monitor/internal/domain"
)

// Report is the lifecycle report over every token known to the monitor.
type Report struct {
	GeneratedAt time.Time

	Summary Summary

	// Tokens sorted by token ID.
	Tokens []TokenRow
}

// Summary aggregates the token population.
type Summary struct {
	TotalTokens      int
	MonitoringTokens int
	DeadTokens       int
	TotalSamples     int

	// DeathReasons counts dead tokens per reason.
	DeathReasons map[domain.DeathReason]int

	// MedianLifespan is the median lifespan of dead tokens; zero if none died.
	MedianLifespan time.Duration
}

// TokenRow is one line of the lifecycle report.
type TokenRow struct {
	TokenID      int64
	Address      string
	Symbol       string
	Chain        string
	PairAddress  string
	Status       domain.TokenStatus
	DiscoveredAt time.Time
	DeathAt      *time.Time
	DeathReason  *domain.DeathReason

	// Lifespan is death_at - discovered_at, or the age at GeneratedAt while alive.
	Lifespan time.Duration

	// Enrichment at discovery; nil when the oracle had no answer.
	InitialHolderCount *int64
	IsHoneypot         *bool
	BuyTax             *decimal.Decimal
	SellTax            *decimal.Decimal

	SampleCount int
	// PeakLiquidityUSD is the highest sampled liquidity; nil without samples.
	PeakLiquidityUSD *decimal.Decimal
	// LastLiquidityUSD is the most recent sampled liquidity; nil without samples.
	LastLiquidityUSD *decimal.Decimal
}
