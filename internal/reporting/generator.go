package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

// Generator produces lifecycle reports from stored data.
type Generator struct {
	tokens  storage.TokenStore
	samples storage.MarketSampleStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(tokens storage.TokenStore, samples storage.MarketSampleStore) *Generator {
	return &Generator{
		tokens:  tokens,
		samples: samples,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the lifecycle report. It only reads.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	tokens, err := g.tokens.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	now := g.now()
	r := &Report{
		GeneratedAt: now,
		Summary:     Summary{DeathReasons: make(map[domain.DeathReason]int)},
		Tokens:      make([]TokenRow, 0, len(tokens)),
	}

	var deadLifespans []time.Duration
	for _, t := range tokens {
		samples, err := g.samples.GetByTokenID(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("load samples for token %d: %w", t.ID, err)
		}

		row := buildRow(t, samples, now)
		r.Tokens = append(r.Tokens, row)

		r.Summary.TotalTokens++
		r.Summary.TotalSamples += len(samples)
		if t.IsDead() {
			r.Summary.DeadTokens++
			if t.DeathReason != nil {
				r.Summary.DeathReasons[*t.DeathReason]++
			}
			deadLifespans = append(deadLifespans, row.Lifespan)
		} else {
			r.Summary.MonitoringTokens++
		}
	}

	sort.Slice(r.Tokens, func(i, j int) bool {
		return r.Tokens[i].TokenID < r.Tokens[j].TokenID
	})
	r.Summary.MedianLifespan = median(deadLifespans)

	return r, nil
}

func buildRow(t *domain.Token, samples []*domain.MarketSample, now time.Time) TokenRow {
	row := TokenRow{
		TokenID:            t.ID,
		Address:            t.Address,
		Symbol:             t.Symbol,
		Chain:              t.Chain,
		PairAddress:        t.PairAddress,
		Status:             t.Status,
		DiscoveredAt:       t.DiscoveredAt,
		DeathAt:            t.DeathAt,
		DeathReason:        t.DeathReason,
		Lifespan:           t.Lifespan(now),
		InitialHolderCount: t.InitialHolderCount,
		IsHoneypot:         t.IsHoneypot,
		BuyTax:             t.BuyTax,
		SellTax:            t.SellTax,
		SampleCount:        len(samples),
	}

	for _, s := range samples {
		if row.PeakLiquidityUSD == nil || s.LiquidityUSD.GreaterThan(*row.PeakLiquidityUSD) {
			peak := s.LiquidityUSD
			row.PeakLiquidityUSD = &peak
		}
	}
	if n := len(samples); n > 0 {
		last := samples[n-1].LiquidityUSD
		row.LastLiquidityUSD = &last
	}

	return row
}

// median returns the median of ds, averaging the middle pair for even counts.
func median(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(ds))
	copy(sorted, ds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
