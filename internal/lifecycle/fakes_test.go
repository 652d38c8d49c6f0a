package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

// Valid 32-byte base58 keys.
const (
	addrA = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	addrB = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	addrC = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	addrD = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func candidate(address, chain string, age time.Duration) domain.PairCandidate {
	return domain.PairCandidate{
		PairAddress:   "pair-" + address[:6],
		ChainID:       chain,
		PairCreatedAt: testNow.Add(-age).UnixMilli(),
		BaseToken:     domain.BaseToken{Address: address, Symbol: "SYM" + address[:2]},
	}
}

type fakeFeed struct {
	pairs []domain.PairCandidate
	err   error
	calls int
}

func (f *fakeFeed) LatestPairs(context.Context) ([]domain.PairCandidate, error) {
	f.calls++
	return f.pairs, f.err
}

type fakeSecurity struct {
	reports map[string]*domain.SecurityReport
	err     error
	panics  bool
	calls   []string
}

func (f *fakeSecurity) TokenSecurity(_ context.Context, address string) (*domain.SecurityReport, error) {
	f.calls = append(f.calls, address)
	if f.panics {
		panic("security oracle exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.reports[address], nil
}

type fakeHolders struct {
	counts map[string]int64
	err    error
	calls  []string
}

func (f *fakeHolders) HolderCount(_ context.Context, address string) (*int64, error) {
	f.calls = append(f.calls, address)
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.counts[address]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

type fakeSnapshots struct {
	snaps map[string]*domain.MarketSnapshot
	errs  map[string]error
	calls []string
}

func (f *fakeSnapshots) PairSnapshot(_ context.Context, chain, pair string) (*domain.MarketSnapshot, error) {
	f.calls = append(f.calls, chain+"/"+pair)
	if err := f.errs[pair]; err != nil {
		return nil, err
	}
	return f.snaps[pair], nil
}

func snapshot(pair string, liquidity, volume int64) *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		PairAddress:  pair,
		PriceUSD:     decimal.RequireFromString("0.0001"),
		LiquidityUSD: decimal.NewFromInt(liquidity),
		VolumeH1:     decimal.NewFromInt(volume),
		BuysH1:       10,
		SellsH1:      5,
	}
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
	dones int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *countingPacer) Done() {
	p.mu.Lock()
	p.dones++
	p.mu.Unlock()
}

func (p *countingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

func (p *countingPacer) doneCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dones
}

type fakeArchive struct {
	err     error
	samples []*domain.MarketSample
}

func (f *fakeArchive) Archive(_ context.Context, _ *domain.Token, s *domain.MarketSample) error {
	f.samples = append(f.samples, s)
	return f.err
}

// racingTokenStore reports every address as unknown but rejects inserts as
// duplicates, emulating a concurrent writer.
type racingTokenStore struct {
	storage.TokenStore
}

func (racingTokenStore) Exists(context.Context, string) (bool, error) { return false, nil }

func (racingTokenStore) Insert(context.Context, *domain.Token) error {
	return storage.ErrDuplicateKey
}

// failingInsertStore fails inserts for one address.
type failingInsertStore struct {
	storage.TokenStore
	address string
}

func (s failingInsertStore) Insert(ctx context.Context, t *domain.Token) error {
	if t.Address == s.address {
		return errors.New("connection reset")
	}
	return s.TokenStore.Insert(ctx, t)
}

// failingTransactor runs fn against the wrapped transactor and then fails
// the unit for one token ID, forcing a rollback.
type failingTransactor struct {
	storage.Transactor
	tokenID int64
}

func (f failingTransactor) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	return f.Transactor.RunInTx(ctx, func(ctx context.Context, tokens storage.TokenStore, samples storage.MarketSampleStore) error {
		var touched bool
		spy := &spySampleStore{MarketSampleStore: samples, onInsert: func(s *domain.MarketSample) {
			touched = s.TokenID == f.tokenID
		}}
		if err := fn(ctx, tokens, spy); err != nil {
			return err
		}
		if touched {
			return errors.New("commit failed")
		}
		return nil
	})
}

type spySampleStore struct {
	storage.MarketSampleStore
	onInsert func(*domain.MarketSample)
}

func (s *spySampleStore) Insert(ctx context.Context, m *domain.MarketSample) error {
	s.onInsert(m)
	return s.MarketSampleStore.Insert(ctx, m)
}
