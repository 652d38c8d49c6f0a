package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/config"
	"token-lifecycle-monitor/internal/lifecycle"
	"token-lifecycle-monitor/internal/ratelimit"
	"token-lifecycle-monitor/internal/solana"
	"token-lifecycle-monitor/internal/storage"
	chstore "token-lifecycle-monitor/internal/storage/clickhouse"
	"token-lifecycle-monitor/internal/storage/memory"
	"token-lifecycle-monitor/internal/storage/migrations"
	pgstore "token-lifecycle-monitor/internal/storage/postgres"
	"token-lifecycle-monitor/internal/upstream/dexscreener"
	"token-lifecycle-monitor/internal/upstream/goplus"
	"token-lifecycle-monitor/internal/upstream/helius"
)

// stores bundles the persistence gateway.
type stores struct {
	tokens  storage.TokenStore
	samples storage.MarketSampleStore
	tx      storage.Transactor
	close   func()
}

// openStores connects to PostgreSQL, optionally applying migrations, or
// builds in-memory stores.
func openStores(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (*stores, error) {
	if cfg.UseMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		tokens := memory.NewTokenStore()
		samples := memory.NewMarketSampleStore()
		return &stores{
			tokens:  tokens,
			samples: samples,
			tx:      memory.NewTransactor(tokens, samples),
			close:   func() {},
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("postgres schema ready", zap.Strings("applied", applied))
	}

	return &stores{
		tokens:  pgstore.NewTokenStore(pool),
		samples: pgstore.NewMarketSampleStore(pool),
		tx:      pgstore.NewTransactor(pool),
		close:   pool.Close,
	}, nil
}

// openArchive prepares the optional ClickHouse sample archive. It returns a
// nil archiver when no DSN is configured.
func openArchive(ctx context.Context, cfg *config.Config, logger *zap.Logger) (lifecycle.SampleArchiver, func(), error) {
	if cfg.ClickHouseDSN == "" {
		return nil, func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	logger.Info("clickhouse sample archive enabled")

	return chstore.NewSampleArchive(conn), func() { _ = conn.Close() }, nil
}

// stages builds the discovery and sampling stages around one shared pacer,
// so every outbound call honours the same cadence.
func stages(cfg *config.Config, st *stores, archive lifecycle.SampleArchiver, logger *zap.Logger) (*lifecycle.Discoverer, *lifecycle.Sampler) {
	pacer := ratelimit.NewPacer(cfg.CallPacing)

	dex := dexscreener.NewClient(
		dexscreener.WithBaseURL(cfg.DexScreenerBaseURL),
		dexscreener.WithQuery(cfg.DiscoveryQuery),
		dexscreener.WithFeedTimeout(cfg.FeedTimeout),
		dexscreener.WithSnapshotTimeout(cfg.SnapshotTimeout),
	)
	security := goplus.NewClient(cfg.GoPlusAPIKey,
		goplus.WithBaseURL(cfg.GoPlusBaseURL),
		goplus.WithChainID(cfg.GoPlusChainID),
		goplus.WithTimeout(cfg.OracleTimeout),
	)
	holders := helius.NewHolderOracle(solana.NewHTTPClient(cfg.RPCURL), cfg.HolderTimeout)

	discoverer := lifecycle.NewDiscoverer(dex, security, holders, st.tokens, pacer, lifecycle.DiscovererOptions{
		TargetChain: cfg.TargetChain,
		MaxPairAge:  cfg.MaxPairAge,
		Logger:      logger,
	})
	sampler := lifecycle.NewSampler(st.tokens, st.tx, dex, pacer, lifecycle.SamplerOptions{
		Thresholds: lifecycle.Thresholds{
			Liquidity: cfg.LiquidityDeathThresholdUSD,
			Volume:    cfg.VolumeDeathThresholdUSD,
		},
		Archive: archive,
		Logger:  logger,
	})
	return discoverer, sampler
}
