package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

// MarketSampleStore implements storage.MarketSampleStore using PostgreSQL.
type MarketSampleStore struct {
	db querier
}

// NewMarketSampleStore creates a new MarketSampleStore.
func NewMarketSampleStore(pool *Pool) *MarketSampleStore {
	return &MarketSampleStore{db: pool}
}

// Compile-time interface check.
var _ storage.MarketSampleStore = (*MarketSampleStore)(nil)

// Insert appends a sample and sets its ID.
func (s *MarketSampleStore) Insert(ctx context.Context, m *domain.MarketSample) error {
	if m == nil || m.TokenID == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO market_data (
			token_id, timestamp, price_usd, liquidity_usd, volume_h1, buys_h1, sells_h1
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		m.TokenID,
		m.Timestamp,
		m.PriceUSD,
		m.LiquidityUSD,
		m.VolumeH1,
		m.BuysH1,
		m.SellsH1,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert market sample: %w", err)
	}
	return nil
}

// GetByTokenID retrieves all samples for a token, ordered by timestamp ASC.
func (s *MarketSampleStore) GetByTokenID(ctx context.Context, tokenID int64) ([]*domain.MarketSample, error) {
	query := `
		SELECT id, token_id, timestamp, price_usd, liquidity_usd, volume_h1, buys_h1, sells_h1
		FROM market_data
		WHERE token_id = $1
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.db.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get market samples by token: %w", err)
	}
	defer rows.Close()

	return scanMarketSamples(rows)
}

// scanMarketSamples scans multiple rows into a slice of MarketSample.
func scanMarketSamples(rows pgx.Rows) ([]*domain.MarketSample, error) {
	var samples []*domain.MarketSample

	for rows.Next() {
		var m domain.MarketSample

		err := rows.Scan(
			&m.ID,
			&m.TokenID,
			&m.Timestamp,
			&m.PriceUSD,
			&m.LiquidityUSD,
			&m.VolumeH1,
			&m.BuysH1,
			&m.SellsH1,
		)
		if err != nil {
			return nil, fmt.Errorf("scan market sample row: %w", err)
		}
		samples = append(samples, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market sample rows: %w", err)
	}

	return samples, nil
}
