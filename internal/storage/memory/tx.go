package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

// Transactor implements storage.Transactor over the in-memory stores.
// Writes made inside a unit of work are staged and applied only when
// the unit returns nil.
type Transactor struct {
	mu      sync.Mutex // serializes units of work
	tokens  *TokenStore
	samples *MarketSampleStore
}

// NewTransactor creates a Transactor bound to the given stores.
func NewTransactor(tokens *TokenStore, samples *MarketSampleStore) *Transactor {
	return &Transactor{tokens: tokens, samples: samples}
}

// Verify interface compliance at compile time.
var _ storage.Transactor = (*Transactor)(nil)

// RunInTx runs fn against staged stores and commits on success.
func (tr *Transactor) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tt := &txTokenStore{base: tr.tokens}
	ts := &txSampleStore{base: tr.samples}

	if err := fn(ctx, tt, ts); err != nil {
		return err
	}

	return tr.commit(tt, ts)
}

func (tr *Transactor) commit(tt *txTokenStore, ts *txSampleStore) error {
	tr.tokens.mu.Lock()
	defer tr.tokens.mu.Unlock()
	tr.samples.mu.Lock()
	defer tr.samples.mu.Unlock()

	// Validate everything before applying anything.
	for _, t := range tt.inserts {
		if _, exists := tr.tokens.byAddress[t.Address]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, d := range tt.deaths {
		if _, ok := tr.tokens.byID[d.tokenID]; !ok && tt.pendingByID(d.tokenID) == nil {
			return storage.ErrNotFound
		}
	}

	for _, t := range tt.inserts {
		tr.tokens.insertLocked(t)
	}
	for _, d := range tt.deaths {
		if err := tr.tokens.markDeadLocked(d.tokenID, d.at, d.reason); err != nil {
			return err
		}
	}
	for _, s := range ts.inserts {
		tr.samples.appendLocked(s)
	}
	return nil
}

type deathMark struct {
	tokenID int64
	at      time.Time
	reason  domain.DeathReason
}

// txTokenStore stages token writes and overlays them on reads.
type txTokenStore struct {
	base    *TokenStore
	inserts []*domain.Token
	deaths  []deathMark
}

func (s *txTokenStore) Exists(ctx context.Context, address string) (bool, error) {
	for _, t := range s.inserts {
		if t.Address == address {
			return true, nil
		}
	}
	return s.base.Exists(ctx, address)
}

func (s *txTokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if err := validateToken(t); err != nil {
		return err
	}
	exists, err := s.Exists(ctx, t.Address)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	t.ID = s.base.reserveID()
	s.inserts = append(s.inserts, copyToken(t))
	return nil
}

func (s *txTokenStore) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	for _, t := range s.inserts {
		if t.Address == address {
			return s.overlay(copyToken(t)), nil
		}
	}
	t, err := s.base.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.overlay(t), nil
}

func (s *txTokenStore) ListMonitoring(ctx context.Context) ([]*domain.Token, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var result []*domain.Token
	for _, t := range all {
		if t.Status == domain.StatusMonitoring {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *txTokenStore) ListAll(ctx context.Context) ([]*domain.Token, error) {
	base, err := s.base.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Token, 0, len(base)+len(s.inserts))
	for _, t := range base {
		result = append(result, s.overlay(t))
	}
	for _, t := range s.inserts {
		result = append(result, s.overlay(copyToken(t)))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *txTokenStore) MarkDead(ctx context.Context, tokenID int64, deathAt time.Time, reason domain.DeathReason) error {
	if !reason.IsValid() {
		return storage.ErrInvalidInput
	}
	if s.pendingByID(tokenID) == nil {
		s.base.mu.RLock()
		_, ok := s.base.byID[tokenID]
		s.base.mu.RUnlock()
		if !ok {
			return storage.ErrNotFound
		}
	}

	s.deaths = append(s.deaths, deathMark{tokenID: tokenID, at: deathAt, reason: reason})
	return nil
}

func (s *txTokenStore) CountByStatus(ctx context.Context) (map[domain.TokenStatus]int, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.TokenStatus]int)
	for _, t := range all {
		counts[t.Status]++
	}
	return counts, nil
}

func (s *txTokenStore) pendingByID(id int64) *domain.Token {
	for _, t := range s.inserts {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// overlay applies the first staged death for t, matching MarkDead's no-op-if-dead rule.
func (s *txTokenStore) overlay(t *domain.Token) *domain.Token {
	if t.Status == domain.StatusDead {
		return t
	}
	for _, d := range s.deaths {
		if d.tokenID == t.ID {
			at := d.at
			r := d.reason
			t.Status = domain.StatusDead
			t.DeathAt = &at
			t.DeathReason = &r
			return t
		}
	}
	return t
}

// txSampleStore stages sample appends.
type txSampleStore struct {
	base    *MarketSampleStore
	inserts []*domain.MarketSample
}

func (s *txSampleStore) Insert(_ context.Context, sample *domain.MarketSample) error {
	if sample == nil || sample.TokenID == 0 {
		return storage.ErrInvalidInput
	}

	sample.ID = s.base.reserveID()
	sampleCopy := *sample
	s.inserts = append(s.inserts, &sampleCopy)
	return nil
}

func (s *txSampleStore) GetByTokenID(ctx context.Context, tokenID int64) ([]*domain.MarketSample, error) {
	result, err := s.base.GetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	for _, sample := range s.inserts {
		if sample.TokenID == tokenID {
			sampleCopy := *sample
			result = append(result, &sampleCopy)
		}
	}

	sortSamples(result)
	return result, nil
}
