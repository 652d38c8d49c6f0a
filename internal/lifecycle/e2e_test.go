package lifecycle_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/lifecycle"
	"token-lifecycle-monitor/internal/ratelimit"
	"token-lifecycle-monitor/internal/solana"
	"token-lifecycle-monitor/internal/storage/memory"
	"token-lifecycle-monitor/internal/upstream/dexscreener"
	"token-lifecycle-monitor/internal/upstream/goplus"
	"token-lifecycle-monitor/internal/upstream/helius"
)

const (
	e2eToken = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	e2ePair  = "Hs97TCZeuYiJxooo3U73qEHXg3dKpRL4uYKYRryEK9CF"
)

// fakeDexScreener serves one fresh pair on the search feed and a snapshot
// whose liquidity can be changed between cycles.
func fakeDexScreener(t *testing.T, createdAt time.Time, liquidity *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/latest/dex/search":
			fmt.Fprintf(w, `{"pairs":[{"chainId":"solana","pairAddress":%q,"pairCreatedAt":%d,"baseToken":{"address":%q,"symbol":"BONK"}}]}`,
				e2ePair, createdAt.UnixMilli(), e2eToken)
		case r.URL.Path == "/latest/dex/pairs/solana/"+e2ePair:
			fmt.Fprintf(w, `{"pair":{"chainId":"solana","pairAddress":%q,"priceUsd":"0.00002","liquidity":{"usd":%d},"volume":{"h1":5000},"txns":{"h1":{"buys":12,"sells":9}}}}`,
				e2ePair, liquidity.Load())
		default:
			http.NotFound(w, r)
		}
	}))
}

func fakeGoPlus(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, e2eToken, r.URL.Query().Get("contract_addresses"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"code":1,"message":"OK","result":{%q:{"is_honeypot":"0","buy_tax":"1.0","sell_tax":"1.0"}}}`,
			strings.ToLower(e2eToken))
	}))
}

func fakeHelius(t *testing.T) *httptest.Server {
	t.Helper()

	// 42 funded owners, one of them holding a second account, plus one empty account.
	accounts := make([]map[string]interface{}, 0, 44)
	for i := 0; i < 42; i++ {
		accounts = append(accounts, map[string]interface{}{
			"address": fmt.Sprintf("acct%02d", i), "mint": e2eToken, "owner": fmt.Sprintf("owner%02d", i),
			"amount": 1000 + i, "delegated_amount": 0, "frozen": false,
		})
	}
	accounts = append(accounts,
		map[string]interface{}{"address": "acct42", "mint": e2eToken, "owner": "owner00", "amount": 7, "delegated_amount": 0, "frozen": false},
		map[string]interface{}{"address": "acct43", "mint": e2eToken, "owner": "owner99", "amount": 0, "delegated_amount": 0, "frozen": false},
	)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     interface{} `json:"id"`
			Method string      `json:"method"`
			Params struct {
				Mint  string `json:"mint"`
				Page  int    `json:"page"`
				Limit int    `json:"limit"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getTokenAccounts", req.Method)
		assert.Equal(t, e2eToken, req.Params.Mint)
		assert.Equal(t, 1, req.Params.Page)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"total":          len(accounts),
				"limit":          req.Params.Limit,
				"page":           req.Params.Page,
				"token_accounts": accounts,
			},
		})
	}))
}

func TestCycle_DiscoverThenRetire(t *testing.T) {
	var liquidity atomic.Int64
	liquidity.Store(25000)

	dex := fakeDexScreener(t, time.Now().Add(-time.Hour), &liquidity)
	defer dex.Close()
	gp := fakeGoPlus(t)
	defer gp.Close()
	rpc := fakeHelius(t)
	defer rpc.Close()

	logger := zaptest.NewLogger(t)
	pacer := ratelimit.NewPacer(0)
	tokens := memory.NewTokenStore()
	samples := memory.NewMarketSampleStore()

	feed := dexscreener.NewClient(dexscreener.WithBaseURL(dex.URL), dexscreener.WithHTTPClient(dex.Client()))
	security := goplus.NewClient("test-key", goplus.WithBaseURL(gp.URL), goplus.WithHTTPClient(gp.Client()))
	holders := helius.NewHolderOracle(
		solana.NewHTTPClient(rpc.URL, solana.WithHTTPClient(rpc.Client()), solana.WithMaxRetries(0)),
		time.Second,
	)

	discoverer := lifecycle.NewDiscoverer(feed, security, holders, tokens, pacer, lifecycle.DiscovererOptions{
		TargetChain: lifecycle.ChainSolana,
		Logger:      logger,
	})
	sampler := lifecycle.NewSampler(tokens, memory.NewTransactor(tokens, samples), feed, pacer, lifecycle.SamplerOptions{
		Logger: logger,
	})
	scheduler := lifecycle.NewScheduler(discoverer, sampler, lifecycle.SchedulerOptions{Logger: logger})

	ctx := context.Background()

	// Cycle 1: discovery inserts the enriched token, sampling records a healthy reading.
	res := scheduler.RunCycle(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, lifecycle.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.Discovery.Inserted)
	assert.Equal(t, 1, res.Sampling.Sampled)

	tok, err := tokens.GetByAddress(ctx, e2eToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMonitoring, tok.Status)
	assert.Equal(t, "BONK", tok.Symbol)
	require.NotNil(t, tok.InitialHolderCount)
	assert.Equal(t, int64(42), *tok.InitialHolderCount)
	require.NotNil(t, tok.IsHoneypot)
	assert.False(t, *tok.IsHoneypot)
	require.NotNil(t, tok.BuyTax)
	assert.True(t, tok.BuyTax.Equal(decimal.RequireFromString("1.0")))

	// Cycle 2: the feed repeats the pair and liquidity collapses.
	liquidity.Store(1800)

	res = scheduler.RunCycle(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.Discovery.Inserted)
	assert.Equal(t, 1, res.Discovery.Skipped[lifecycle.SkipKnown])
	assert.Equal(t, 1, res.Sampling.Died[domain.DeathLiquidityCollapse])

	tok, err = tokens.GetByAddress(ctx, e2eToken)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDead, tok.Status)
	require.NotNil(t, tok.DeathReason)
	assert.Equal(t, domain.DeathLiquidityCollapse, *tok.DeathReason)

	history, err := samples.GetByTokenID(ctx, tok.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].LiquidityUSD.Equal(decimal.NewFromInt(1800)))
	assert.Equal(t, int64(12), history[1].BuysH1)

	// Cycle 3: nothing left to monitor.
	res = scheduler.RunCycle(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.Sampling.Monitored)
	assert.Equal(t, 3, scheduler.Status().Cycles)
}
