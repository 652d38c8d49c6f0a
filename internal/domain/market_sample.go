package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSample is one point of a token's market time series.
// Corresponds to market_data table in PostgreSQL. Append-only.
type MarketSample struct {
	ID           int64 // BIGSERIAL primary key
	TokenID      int64 // FK to tokens
	Timestamp    time.Time
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
	VolumeH1     decimal.Decimal
	BuysH1       int64
	SellsH1      int64
}

// NewMarketSample records a snapshot for the given token at ts.
func NewMarketSample(tokenID int64, s *MarketSnapshot, ts time.Time) *MarketSample {
	return &MarketSample{
		TokenID:      tokenID,
		Timestamp:    ts,
		PriceUSD:     s.PriceUSD,
		LiquidityUSD: s.LiquidityUSD,
		VolumeH1:     s.VolumeH1,
		BuysH1:       s.BuysH1,
		SellsH1:      s.SellsH1,
	}
}
