package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/observability"
	"token-lifecycle-monitor/internal/solana"
	"token-lifecycle-monitor/internal/storage"
	"token-lifecycle-monitor/internal/upstream"
)

// DefaultMaxPairAge is the oldest pair discovery will consider.
const DefaultMaxPairAge = 4 * time.Hour

// ChainSolana is the chain tag whose addresses are validated as base58 keys.
const ChainSolana = "solana"

// SkipReason explains why a candidate pair was not inserted.
type SkipReason string

const (
	SkipWrongChain     SkipReason = "wrong_chain"
	SkipTooOld         SkipReason = "too_old"
	SkipInvalidAddress SkipReason = "invalid_address"
	SkipKnown          SkipReason = "known"
)

// DiscoveryReport summarizes one discovery pass.
type DiscoveryReport struct {
	Fetched  int
	Skipped  map[SkipReason]int
	Inserted int
	Races    int // inserts that lost to a concurrent insert of the same address
	Failures int
}

// DiscovererOptions configures a Discoverer.
type DiscovererOptions struct {
	TargetChain string
	MaxPairAge  time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

// Discoverer turns feed candidates into monitored tokens.
type Discoverer struct {
	feed     PairFeed
	security SecurityOracle
	holders  HolderOracle
	tokens   storage.TokenStore
	pacer    Pacer

	targetChain string
	maxPairAge  time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewDiscoverer creates a Discoverer. MaxPairAge defaults to DefaultMaxPairAge.
func NewDiscoverer(feed PairFeed, security SecurityOracle, holders HolderOracle, tokens storage.TokenStore, pacer Pacer, opts DiscovererOptions) *Discoverer {
	if opts.MaxPairAge == 0 {
		opts.MaxPairAge = DefaultMaxPairAge
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = defaultNow
	}
	return &Discoverer{
		feed:        feed,
		security:    security,
		holders:     holders,
		tokens:      tokens,
		pacer:       pacer,
		targetChain: opts.TargetChain,
		maxPairAge:  opts.MaxPairAge,
		logger:      opts.Logger.Named("discovery"),
		now:         opts.Now,
	}
}

// Run performs one discovery pass. Per-candidate failures are logged and
// counted; only a feed failure, a configuration fault or cancellation is
// returned as an error.
func (d *Discoverer) Run(ctx context.Context) (*DiscoveryReport, error) {
	if d.targetChain == "" || d.maxPairAge < 0 {
		return nil, fmt.Errorf("%w: discovery needs a target chain and a non-negative max pair age", ErrConfig)
	}

	start := time.Now()
	defer func() { observability.RecordStage("discovery", time.Since(start)) }()

	logger := stageLogger(ctx, d.logger)
	report := &DiscoveryReport{Skipped: make(map[SkipReason]int)}

	candidates, err := d.feed.LatestPairs(ctx)
	if err != nil {
		logger.Error("discovery feed unavailable", zap.Error(err))
		return report, fmt.Errorf("fetch candidate pairs: %w", err)
	}
	report.Fetched = len(candidates)
	observability.RecordCandidatesFetched(len(candidates))

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c := &candidates[i]
		inserted, skip, err := d.processCandidate(ctx, logger, c)
		switch {
		case err != nil && ctx.Err() != nil:
			return report, ctx.Err()
		case errors.Is(err, storage.ErrDuplicateKey):
			report.Races++
			observability.RecordDiscoveryRace()
			logger.Debug("token inserted concurrently", zap.String("address", c.BaseToken.Address))
		case err != nil:
			report.Failures++
			observability.RecordUnitFailure("discovery")
			logger.Error("candidate failed",
				zap.String("address", c.BaseToken.Address),
				zap.String("pair", c.PairAddress),
				zap.Error(err),
			)
		case skip != "":
			report.Skipped[skip]++
			observability.RecordCandidateSkipped(string(skip))
		case inserted:
			report.Inserted++
			observability.RecordTokenDiscovered()
		}
	}

	logger.Info("discovery pass complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.TotalSkipped()),
		zap.Int("races", report.Races),
		zap.Int("failures", report.Failures),
	)
	return report, nil
}

// TotalSkipped returns the number of skipped candidates across all reasons.
func (r *DiscoveryReport) TotalSkipped() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

func (d *Discoverer) processCandidate(ctx context.Context, logger *zap.Logger, c *domain.PairCandidate) (inserted bool, skip SkipReason, err error) {
	defer recoverUnit(&err)

	if reason := d.filter(c); reason != "" {
		logger.Debug("candidate skipped",
			zap.String("reason", string(reason)),
			zap.String("pair", c.PairAddress),
			zap.String("chain", c.ChainID),
		)
		return false, reason, nil
	}

	address := c.BaseToken.Address
	exists, err := d.tokens.Exists(ctx, address)
	if err != nil {
		return false, "", fmt.Errorf("check known token: %w", err)
	}
	if exists {
		return false, SkipKnown, nil
	}

	enrichment, err := d.enrich(ctx, logger, address)
	if err != nil {
		return false, "", err
	}

	token := domain.NewToken(c, enrichment, d.now())
	if err := d.tokens.Insert(ctx, token); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return false, "", err
		}
		return false, "", fmt.Errorf("insert token: %w", err)
	}

	logger.Info("token discovered",
		zap.String("address", token.Address),
		zap.String("symbol", token.Symbol),
		zap.String("pair", token.PairAddress),
		zap.Int64("token_id", token.ID),
	)
	return true, "", nil
}

// filter applies the chain, age and address rules.
func (d *Discoverer) filter(c *domain.PairCandidate) SkipReason {
	if c.ChainID != d.targetChain {
		return SkipWrongChain
	}
	if c.Age(d.now()) > d.maxPairAge {
		return SkipTooOld
	}
	if c.BaseToken.Address == "" {
		return SkipInvalidAddress
	}
	if d.targetChain == ChainSolana && solana.ValidateAddress(c.BaseToken.Address) != nil {
		return SkipInvalidAddress
	}
	return ""
}

// enrich queries both oracles. Oracle failures degrade the corresponding
// fields to nil; only pacing cancellation is returned.
func (d *Discoverer) enrich(ctx context.Context, logger *zap.Logger, address string) (domain.Enrichment, error) {
	var e domain.Enrichment

	if err := d.pacer.Wait(ctx); err != nil {
		return e, err
	}
	report, err := d.security.TokenSecurity(ctx, address)
	d.pacer.Done()
	logOracle(logger, "security", address, report == nil, err)
	if err == nil {
		e.Security = report
	}

	if err := d.pacer.Wait(ctx); err != nil {
		return e, err
	}
	count, err := d.holders.HolderCount(ctx, address)
	d.pacer.Done()
	logOracle(logger, "holders", address, count == nil, err)
	if err == nil {
		e.HolderCount = count
	}

	return e, nil
}

func logOracle(logger *zap.Logger, oracle, address string, missing bool, err error) {
	fields := []zap.Field{zap.String("oracle", oracle), zap.String("address", address)}
	switch {
	case errors.Is(err, upstream.ErrUnauthorized):
		observability.RecordEnrichment(oracle, "unauthorized")
		logger.Error("oracle rejected credentials, storing null enrichment", append(fields, zap.Error(err))...)
	case err != nil:
		observability.RecordEnrichment(oracle, "unavailable")
		logger.Warn("oracle unavailable, storing null enrichment", append(fields, zap.Error(err))...)
	case missing:
		observability.RecordEnrichment(oracle, "missing")
		logger.Warn("oracle has no data, storing null enrichment", fields...)
	default:
		observability.RecordEnrichment(oracle, "ok")
	}
}
