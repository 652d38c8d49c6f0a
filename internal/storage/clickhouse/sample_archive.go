package clickhouse

import (
	"context"
	"fmt"
	"time"

	"token-lifecycle-monitor/internal/domain"
)

// ArchivedSample is one row of the market_samples analytics table.
type ArchivedSample struct {
	TokenAddress string
	Chain        string
	Symbol       string
	Timestamp    time.Time
	PriceUSD     float64
	LiquidityUSD float64
	VolumeH1     float64
	BuysH1       int64
	SellsH1      int64
}

// SampleArchive appends committed market samples to ClickHouse for analytics.
// It is not authoritative: Postgres remains the source of truth.
type SampleArchive struct {
	conn *Conn
}

// NewSampleArchive creates a new SampleArchive.
func NewSampleArchive(conn *Conn) *SampleArchive {
	return &SampleArchive{conn: conn}
}

// Archive appends one sample row for the given token.
func (a *SampleArchive) Archive(ctx context.Context, token *domain.Token, sample *domain.MarketSample) error {
	if token == nil || sample == nil {
		return fmt.Errorf("archive sample: nil token or sample")
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO market_samples (
			token_address, chain, symbol, timestamp,
			price_usd, liquidity_usd, volume_h1, buys_h1, sells_h1
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		token.Address, token.Chain, token.Symbol, sample.Timestamp.UTC(),
		sample.PriceUSD.InexactFloat64(),
		sample.LiquidityUSD.InexactFloat64(),
		sample.VolumeH1.InexactFloat64(),
		uint64(max(sample.BuysH1, 0)),
		uint64(max(sample.SellsH1, 0)),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTokenAddress retrieves archived rows for a token, ordered by timestamp ASC.
func (a *SampleArchive) GetByTokenAddress(ctx context.Context, address string) ([]*ArchivedSample, error) {
	query := `
		SELECT token_address, chain, symbol, timestamp,
		       price_usd, liquidity_usd, volume_h1, buys_h1, sells_h1
		FROM market_samples
		WHERE token_address = ?
		ORDER BY timestamp ASC
	`

	rows, err := a.conn.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query by token address: %w", err)
	}
	defer rows.Close()

	return scanArchivedSamples(rows)
}

func scanArchivedSamples(rows chRows) ([]*ArchivedSample, error) {
	var out []*ArchivedSample

	for rows.Next() {
		var s ArchivedSample
		var buys, sells uint64

		err := rows.Scan(
			&s.TokenAddress, &s.Chain, &s.Symbol, &s.Timestamp,
			&s.PriceUSD, &s.LiquidityUSD, &s.VolumeH1, &buys, &sells,
		)
		if err != nil {
			return nil, fmt.Errorf("scan market sample row: %w", err)
		}
		s.BuysH1 = int64(buys)
		s.SellsH1 = int64(sells)
		out = append(out, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market sample rows: %w", err)
	}
	return out, nil
}
