package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage/memory"
)

var reportNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	tokens  *memory.TokenStore
	samples *memory.MarketSampleStore
}

func newFixture() *fixture {
	return &fixture{tokens: memory.NewTokenStore(), samples: memory.NewMarketSampleStore()}
}

func (f *fixture) addToken(t *testing.T, address, symbol string, discoveredAt time.Time, e domain.Enrichment) *domain.Token {
	t.Helper()
	p := &domain.PairCandidate{
		PairAddress: "pair-" + address,
		ChainID:     "solana",
		BaseToken:   domain.BaseToken{Address: address, Symbol: symbol},
	}
	tok := domain.NewToken(p, e, discoveredAt)
	require.NoError(t, f.tokens.Insert(context.Background(), tok))
	return tok
}

func (f *fixture) addSample(t *testing.T, tokenID int64, ts time.Time, liquidity int64) {
	t.Helper()
	require.NoError(t, f.samples.Insert(context.Background(), &domain.MarketSample{
		TokenID:      tokenID,
		Timestamp:    ts,
		PriceUSD:     decimal.RequireFromString("0.01"),
		LiquidityUSD: decimal.NewFromInt(liquidity),
		VolumeH1:     decimal.NewFromInt(100),
	}))
}

func (f *fixture) kill(t *testing.T, tokenID int64, at time.Time, reason domain.DeathReason) {
	t.Helper()
	require.NoError(t, f.tokens.MarkDead(context.Background(), tokenID, at, reason))
}

// seed creates two dead tokens (2h and 4h lifespans) and one live token.
func seed(t *testing.T) *fixture {
	f := newFixture()
	start := reportNow.Add(-6 * time.Hour)

	holders := int64(42)
	a := f.addToken(t, "AAA", "ALPHA", start, domain.Enrichment{
		Security:    &domain.SecurityReport{IsHoneypot: true, BuyTax: decimal.RequireFromString("0.1"), SellTax: decimal.RequireFromString("0.2")},
		HolderCount: &holders,
	})
	f.addSample(t, a.ID, start.Add(15*time.Minute), 9000)
	f.addSample(t, a.ID, start.Add(30*time.Minute), 12000)
	f.addSample(t, a.ID, start.Add(2*time.Hour), 1500)
	f.kill(t, a.ID, start.Add(2*time.Hour), domain.DeathLiquidityCollapse)

	b := f.addToken(t, "BBB", "BE|TA", start, domain.Enrichment{})
	f.addSample(t, b.ID, start.Add(4*time.Hour), 5000)
	f.kill(t, b.ID, start.Add(4*time.Hour), domain.DeathLowVolume)

	f.addToken(t, "CCC", "GAMMA", reportNow.Add(-30*time.Minute), domain.Enrichment{})
	return f
}

func TestGenerator_Generate(t *testing.T) {
	f := seed(t)

	r, err := NewGenerator(f.tokens, f.samples).WithClock(func() time.Time { return reportNow }).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reportNow, r.GeneratedAt)
	assert.Equal(t, 3, r.Summary.TotalTokens)
	assert.Equal(t, 2, r.Summary.DeadTokens)
	assert.Equal(t, 1, r.Summary.MonitoringTokens)
	assert.Equal(t, 4, r.Summary.TotalSamples)
	assert.Equal(t, 1, r.Summary.DeathReasons[domain.DeathLiquidityCollapse])
	assert.Equal(t, 1, r.Summary.DeathReasons[domain.DeathLowVolume])
	assert.Equal(t, 3*time.Hour, r.Summary.MedianLifespan)

	require.Len(t, r.Tokens, 3)

	alpha := r.Tokens[0]
	assert.Equal(t, "ALPHA", alpha.Symbol)
	assert.Equal(t, 2*time.Hour, alpha.Lifespan)
	assert.Equal(t, 3, alpha.SampleCount)
	require.NotNil(t, alpha.PeakLiquidityUSD)
	assert.True(t, alpha.PeakLiquidityUSD.Equal(decimal.NewFromInt(12000)))
	require.NotNil(t, alpha.LastLiquidityUSD)
	assert.True(t, alpha.LastLiquidityUSD.Equal(decimal.NewFromInt(1500)))

	gamma := r.Tokens[2]
	assert.Equal(t, domain.StatusMonitoring, gamma.Status)
	assert.Equal(t, 30*time.Minute, gamma.Lifespan)
	assert.Zero(t, gamma.SampleCount)
	assert.Nil(t, gamma.PeakLiquidityUSD)
}

func TestGenerator_Empty(t *testing.T) {
	f := newFixture()

	r, err := NewGenerator(f.tokens, f.samples).Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, r.Summary.TotalTokens)
	assert.Zero(t, r.Summary.MedianLifespan)
	assert.Empty(t, r.Tokens)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, time.Duration(0), median(nil))
	assert.Equal(t, 5*time.Second, median([]time.Duration{5 * time.Second}))
	assert.Equal(t, 2*time.Second, median([]time.Duration{3 * time.Second, time.Second, 2 * time.Second}))
	assert.Equal(t, 15*time.Second, median([]time.Duration{20 * time.Second, 10 * time.Second}))
}

func TestRenderCSV(t *testing.T) {
	f := seed(t)
	r, err := NewGenerator(f.tokens, f.samples).WithClock(func() time.Time { return reportNow }).Generate(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderCSV(&buf, r))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])

	alpha := records[1]
	assert.Equal(t, "AAA", alpha[1])
	assert.Equal(t, "dead", alpha[5])
	assert.Equal(t, "liquidity_collapse", alpha[8])
	assert.Equal(t, "7200", alpha[9])
	assert.Equal(t, "42", alpha[10])
	assert.Equal(t, "true", alpha[11])
	assert.Equal(t, "12000", alpha[15])

	beta := records[2]
	assert.Equal(t, "BE|TA", beta[2])
	assert.Equal(t, "", beta[10], "unknown holder count renders empty")
	assert.Equal(t, "", beta[11])

	gamma := records[3]
	assert.Equal(t, "monitoring", gamma[5])
	assert.Equal(t, "", gamma[7])
	assert.Equal(t, "", gamma[8])
	assert.Equal(t, "0", gamma[14])
}

func TestRenderMarkdown(t *testing.T) {
	f := seed(t)
	r, err := NewGenerator(f.tokens, f.samples).WithClock(func() time.Time { return reportNow }).Generate(context.Background())
	require.NoError(t, err)

	md := RenderMarkdown(r)
	assert.Contains(t, md, "# Token Lifecycle Report")
	assert.Contains(t, md, "| Total Tokens | 3 |")
	assert.Contains(t, md, "| Dead | 2 |")
	assert.Contains(t, md, "| Median Lifespan | 3h0m0s |")
	assert.Contains(t, md, "| liquidity_collapse | 1 | 50.0% |")
	assert.Contains(t, md, "| low_volume | 1 | 50.0% |")
	assert.Contains(t, md, "BE\\|TA")
	assert.Contains(t, md, "| GAMMA | `CCC` | monitoring | - | 30m0s |")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: reportNow, Summary: Summary{DeathReasons: map[domain.DeathReason]int{}}})
	assert.Contains(t, md, "| Median Lifespan | n/a |")
	assert.Contains(t, md, "No tokens have died yet.")
	assert.Contains(t, md, "No tokens discovered.")
}
