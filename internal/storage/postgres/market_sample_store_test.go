package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
	"token-lifecycle-monitor/internal/storage/postgres"
)

func TestMarketSampleStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	tokens := postgres.NewTokenStore(pool)
	samples := postgres.NewMarketSampleStore(pool)
	ctx := context.Background()

	tok := newTestToken("addr-samples", time.Now().UTC())
	require.NoError(t, tokens.Insert(ctx, tok))

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	later := &domain.MarketSample{
		TokenID:      tok.ID,
		Timestamp:    base.Add(15 * time.Minute),
		PriceUSD:     decimal.RequireFromString("0.00001234"),
		LiquidityUSD: decimal.NewFromInt(1800),
		VolumeH1:     decimal.NewFromInt(5000),
		BuysH1:       7,
		SellsH1:      3,
	}
	earlier := &domain.MarketSample{
		TokenID:      tok.ID,
		Timestamp:    base,
		PriceUSD:     decimal.RequireFromString("0.00002"),
		LiquidityUSD: decimal.NewFromInt(9000),
		VolumeH1:     decimal.NewFromInt(12000),
	}
	require.NoError(t, samples.Insert(ctx, later))
	require.NoError(t, samples.Insert(ctx, earlier))
	assert.NotZero(t, later.ID)

	got, err := samples.GetByTokenID(ctx, tok.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, base.Equal(got[0].Timestamp))
	assert.True(t, got[1].PriceUSD.Equal(decimal.RequireFromString("0.00001234")))
	assert.True(t, got[1].LiquidityUSD.Equal(decimal.NewFromInt(1800)))
	assert.Equal(t, int64(7), got[1].BuysH1)
	assert.Equal(t, int64(3), got[1].SellsH1)
}

func TestMarketSampleStore_UnknownToken(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	samples := postgres.NewMarketSampleStore(pool)

	err := samples.Insert(context.Background(), &domain.MarketSample{TokenID: 4242, Timestamp: time.Now()})
	assert.Error(t, err)

	err = samples.Insert(context.Background(), &domain.MarketSample{Timestamp: time.Now()})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTransactor_CommitAndRollback(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	tokens := postgres.NewTokenStore(pool)
	samples := postgres.NewMarketSampleStore(pool)
	tx := postgres.NewTransactor(pool)
	ctx := context.Background()

	tok := newTestToken("addr-tx", time.Now().UTC())
	require.NoError(t, tokens.Insert(ctx, tok))

	// Rolled back: neither sample nor death persists.
	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(ctx context.Context, ts storage.TokenStore, ms storage.MarketSampleStore) error {
		if err := ms.Insert(ctx, &domain.MarketSample{TokenID: tok.ID, Timestamp: time.Now().UTC()}); err != nil {
			return err
		}
		if err := ts.MarkDead(ctx, tok.ID, time.Now().UTC(), domain.DeathLowVolume); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := samples.GetByTokenID(ctx, tok.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
	stored, err := tokens.GetByAddress(ctx, "addr-tx")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMonitoring, stored.Status)

	// Committed.
	err = tx.RunInTx(ctx, func(ctx context.Context, ts storage.TokenStore, ms storage.MarketSampleStore) error {
		if err := ms.Insert(ctx, &domain.MarketSample{TokenID: tok.ID, Timestamp: time.Now().UTC()}); err != nil {
			return err
		}
		return ts.MarkDead(ctx, tok.ID, time.Now().UTC(), domain.DeathLiquidityCollapse)
	})
	require.NoError(t, err)

	got, err = samples.GetByTokenID(ctx, tok.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	stored, err = tokens.GetByAddress(ctx, "addr-tx")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDead, stored.Status)
}
