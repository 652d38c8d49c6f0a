package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage/clickhouse"
	"token-lifecycle-monitor/internal/storage/migrations"
)

// setupTestDB creates a ClickHouse container, applies migrations and returns a connection.
func setupTestDB(t *testing.T) (*clickhouse.Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/lifecycle", host, port.Port())

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

func TestSampleArchive_ArchiveAndRead(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	archive := clickhouse.NewSampleArchive(conn)
	ctx := context.Background()

	tok := &domain.Token{ID: 1, Address: "addr-1", Chain: "solana", Symbol: "TST"}
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		err := archive.Archive(ctx, tok, &domain.MarketSample{
			TokenID:      1,
			Timestamp:    ts.Add(time.Duration(i) * 15 * time.Minute),
			PriceUSD:     decimal.RequireFromString("0.5"),
			LiquidityUSD: decimal.NewFromInt(int64(2500 - i*1000)),
			VolumeH1:     decimal.NewFromInt(4000),
			BuysH1:       int64(10 + i),
			SellsH1:      5,
		})
		require.NoError(t, err)
	}

	got, err := archive.GetByTokenAddress(ctx, "addr-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "solana", got[0].Chain)
	assert.Equal(t, "TST", got[0].Symbol)
	assert.True(t, ts.Equal(got[0].Timestamp))
	assert.Equal(t, 2500.0, got[0].LiquidityUSD)
	assert.Equal(t, 1500.0, got[1].LiquidityUSD)
	assert.Equal(t, int64(11), got[1].BuysH1)
}

func TestSampleArchive_NilInput(t *testing.T) {
	archive := clickhouse.NewSampleArchive(nil)
	err := archive.Archive(context.Background(), nil, nil)
	assert.Error(t, err)
}
