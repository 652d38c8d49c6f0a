package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/observability"
	"token-lifecycle-monitor/internal/storage"
	"token-lifecycle-monitor/internal/upstream"
)

// SamplingReport summarizes one sampling pass.
type SamplingReport struct {
	Monitored   int
	Sampled     int
	Unavailable int
	Died        map[domain.DeathReason]int
	Failures    int
}

// SamplerOptions configures a Sampler.
type SamplerOptions struct {
	Thresholds Thresholds
	// Archive optionally receives every committed sample. Failures are logged only.
	Archive SampleArchiver
	Logger  *zap.Logger
	Now     func() time.Time
}

// Sampler records market samples for monitored tokens and retires dead ones.
type Sampler struct {
	tokens    storage.TokenStore
	tx        storage.Transactor
	snapshots SnapshotSource
	pacer     Pacer

	thresholds Thresholds
	archive    SampleArchiver
	logger     *zap.Logger
	now        func() time.Time
}

// NewSampler creates a Sampler. Zero thresholds default to DefaultThresholds.
func NewSampler(tokens storage.TokenStore, tx storage.Transactor, snapshots SnapshotSource, pacer Pacer, opts SamplerOptions) *Sampler {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = defaultNow
	}
	return &Sampler{
		tokens:     tokens,
		tx:         tx,
		snapshots:  snapshots,
		pacer:      pacer,
		thresholds: opts.Thresholds,
		archive:    opts.Archive,
		logger:     opts.Logger.Named("sampling"),
		now:        opts.Now,
	}
}

// Run performs one sampling pass over every monitored token. Per-token
// failures are logged and counted; only a failure to list tokens, a
// configuration fault or cancellation is returned as an error.
func (s *Sampler) Run(ctx context.Context) (*SamplingReport, error) {
	if !s.thresholds.Valid() {
		return nil, fmt.Errorf("%w: death thresholds must be positive", ErrConfig)
	}

	start := time.Now()
	defer func() { observability.RecordStage("sampling", time.Since(start)) }()

	logger := stageLogger(ctx, s.logger)
	report := &SamplingReport{Died: make(map[domain.DeathReason]int)}

	tokens, err := s.tokens.ListMonitoring(ctx)
	if err != nil {
		return report, fmt.Errorf("list monitoring tokens: %w", err)
	}
	report.Monitored = len(tokens)
	observability.SetMonitoringTokens(len(tokens))

	if len(tokens) == 0 {
		logger.Info("no tokens to monitor")
		return report, nil
	}

	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := s.sampleToken(ctx, logger, token)
		switch {
		case err != nil && ctx.Err() != nil:
			return report, ctx.Err()
		case err != nil:
			report.Failures++
			observability.RecordUnitFailure("sampling")
			logger.Error("token sampling failed",
				zap.Int64("token_id", token.ID),
				zap.String("symbol", token.Symbol),
				zap.Error(err),
			)
		case res.unavailable:
			report.Unavailable++
			observability.RecordSnapshotUnavailable()
		default:
			report.Sampled++
			observability.RecordSample()
			if res.died {
				report.Died[res.reason]++
				observability.RecordDeath(string(res.reason))
			}
		}
	}

	logger.Info("sampling pass complete",
		zap.Int("monitored", report.Monitored),
		zap.Int("sampled", report.Sampled),
		zap.Int("unavailable", report.Unavailable),
		zap.Int("died", report.TotalDied()),
		zap.Int("failures", report.Failures),
	)
	return report, nil
}

// TotalDied returns the number of tokens retired across all reasons.
func (r *SamplingReport) TotalDied() int {
	n := 0
	for _, v := range r.Died {
		n += v
	}
	return n
}

type sampleResult struct {
	unavailable bool
	died        bool
	reason      domain.DeathReason
}

func (s *Sampler) sampleToken(ctx context.Context, logger *zap.Logger, token *domain.Token) (res sampleResult, err error) {
	defer recoverUnit(&err)

	if err := s.pacer.Wait(ctx); err != nil {
		return res, err
	}

	snap, err := s.snapshots.PairSnapshot(ctx, token.Chain, token.PairAddress)
	s.pacer.Done()
	if err != nil {
		fields := []zap.Field{zap.Int64("token_id", token.ID), zap.String("pair", token.PairAddress), zap.Error(err)}
		if errors.Is(err, upstream.ErrUnauthorized) {
			logger.Error("snapshot source rejected request", fields...)
		} else {
			logger.Warn("snapshot unavailable", fields...)
		}
		res.unavailable = true
		return res, nil
	}
	if snap == nil {
		logger.Debug("no snapshot for pair", zap.Int64("token_id", token.ID), zap.String("pair", token.PairAddress))
		res.unavailable = true
		return res, nil
	}

	now := s.now()
	sample := domain.NewMarketSample(token.ID, snap, now)
	reason, dead := Classify(snap.LiquidityUSD, snap.VolumeH1, s.thresholds)

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tokens storage.TokenStore, samples storage.MarketSampleStore) error {
		if err := samples.Insert(ctx, sample); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
		if dead {
			if err := tokens.MarkDead(ctx, token.ID, now, reason); err != nil {
				return fmt.Errorf("mark dead: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	logger.Debug("sample recorded",
		zap.Int64("token_id", token.ID),
		zap.String("symbol", token.Symbol),
		zap.String("price_usd", snap.PriceUSD.String()),
		zap.String("liquidity_usd", snap.LiquidityUSD.String()),
		zap.String("volume_h1", snap.VolumeH1.String()),
	)
	if dead {
		res.died = true
		res.reason = reason
		logger.Info("token retired",
			zap.Int64("token_id", token.ID),
			zap.String("symbol", token.Symbol),
			zap.String("reason", string(reason)),
			zap.Duration("lifespan", now.Sub(token.DiscoveredAt)),
		)
	}

	s.archiveSample(ctx, logger, token, sample)
	return res, nil
}

func (s *Sampler) archiveSample(ctx context.Context, logger *zap.Logger, token *domain.Token, sample *domain.MarketSample) {
	if s.archive == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("sample archive panicked", zap.Any("panic", r))
		}
	}()
	if err := s.archive.Archive(ctx, token, sample); err != nil {
		logger.Warn("sample archive failed", zap.Int64("token_id", token.ID), zap.Error(err))
	}
}
