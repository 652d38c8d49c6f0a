package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu        sync.RWMutex
	nextID    int64
	byID      map[int64]*domain.Token
	byAddress map[string]int64
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byID:      make(map[int64]*domain.Token),
		byAddress: make(map[string]int64),
	}
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)

// Exists reports whether a token with the given address is already known.
func (s *TokenStore) Exists(_ context.Context, address string) (bool, error) {
	if address == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byAddress[address]
	return ok, nil
}

// Insert adds a new token and sets its ID. Returns ErrDuplicateKey if address exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if err := validateToken(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[t.Address]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	t.ID = s.nextID
	s.insertLocked(t)
	return nil
}

// GetByAddress retrieves a token by address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyToken(s.byID[id]), nil
}

// ListMonitoring retrieves all tokens with status monitoring, ordered by ID ASC.
func (s *TokenStore) ListMonitoring(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(func(t *domain.Token) bool { return t.Status == domain.StatusMonitoring }), nil
}

// ListAll retrieves every token, ordered by ID ASC.
func (s *TokenStore) ListAll(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listLocked(func(*domain.Token) bool { return true }), nil
}

// MarkDead transitions a monitoring token to dead. No-op if the token is already dead.
func (s *TokenStore) MarkDead(_ context.Context, tokenID int64, deathAt time.Time, reason domain.DeathReason) error {
	if !reason.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markDeadLocked(tokenID, deathAt, reason)
}

// CountByStatus returns the number of tokens per status.
func (s *TokenStore) CountByStatus(_ context.Context) (map[domain.TokenStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.TokenStatus]int)
	for _, t := range s.byID {
		counts[t.Status]++
	}
	return counts, nil
}

// reserveID hands out an ID without storing anything, like a database sequence.
func (s *TokenStore) reserveID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	return s.nextID
}

func (s *TokenStore) insertLocked(t *domain.Token) {
	s.byID[t.ID] = copyToken(t)
	s.byAddress[t.Address] = t.ID
}

func (s *TokenStore) markDeadLocked(tokenID int64, deathAt time.Time, reason domain.DeathReason) error {
	t, ok := s.byID[tokenID]
	if !ok {
		return storage.ErrNotFound
	}
	if t.Status == domain.StatusDead {
		return nil
	}

	at := deathAt
	r := reason
	t.Status = domain.StatusDead
	t.DeathAt = &at
	t.DeathReason = &r
	return nil
}

func (s *TokenStore) listLocked(keep func(*domain.Token) bool) []*domain.Token {
	var result []*domain.Token
	for _, t := range s.byID {
		if keep(t) {
			result = append(result, copyToken(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

func validateToken(t *domain.Token) error {
	if t == nil || t.Address == "" || !t.Status.IsValid() {
		return storage.ErrInvalidInput
	}
	if (t.Status == domain.StatusDead) != (t.DeathAt != nil && t.DeathReason != nil) {
		return storage.ErrInvalidInput
	}
	return nil
}

// copyToken returns a deep copy so callers cannot mutate stored state.
func copyToken(t *domain.Token) *domain.Token {
	c := *t
	if t.InitialHolderCount != nil {
		v := *t.InitialHolderCount
		c.InitialHolderCount = &v
	}
	if t.IsHoneypot != nil {
		v := *t.IsHoneypot
		c.IsHoneypot = &v
	}
	if t.BuyTax != nil {
		v := *t.BuyTax
		c.BuyTax = &v
	}
	if t.SellTax != nil {
		v := *t.SellTax
		c.SellTax = &v
	}
	if t.DeathAt != nil {
		v := *t.DeathAt
		c.DeathAt = &v
	}
	if t.DeathReason != nil {
		v := *t.DeathReason
		c.DeathReason = &v
	}
	return &c
}
