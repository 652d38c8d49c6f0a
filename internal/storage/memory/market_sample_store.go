package memory

import (
	"context"
	"sort"
	"sync"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

// MarketSampleStore is an in-memory implementation of storage.MarketSampleStore.
type MarketSampleStore struct {
	mu      sync.RWMutex
	nextID  int64
	byToken map[int64][]*domain.MarketSample
}

// NewMarketSampleStore creates a new in-memory market sample store.
func NewMarketSampleStore() *MarketSampleStore {
	return &MarketSampleStore{
		byToken: make(map[int64][]*domain.MarketSample),
	}
}

// Verify interface compliance at compile time.
var _ storage.MarketSampleStore = (*MarketSampleStore)(nil)

// Insert appends a sample and sets its ID.
func (s *MarketSampleStore) Insert(_ context.Context, sample *domain.MarketSample) error {
	if sample == nil || sample.TokenID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sample.ID = s.nextID
	s.appendLocked(sample)
	return nil
}

// GetByTokenID retrieves all samples for a token, ordered by timestamp ASC.
func (s *MarketSampleStore) GetByTokenID(_ context.Context, tokenID int64) ([]*domain.MarketSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MarketSample, 0, len(s.byToken[tokenID]))
	for _, sample := range s.byToken[tokenID] {
		sampleCopy := *sample
		result = append(result, &sampleCopy)
	}

	sortSamples(result)
	return result, nil
}

func (s *MarketSampleStore) reserveID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	return s.nextID
}

func (s *MarketSampleStore) appendLocked(sample *domain.MarketSample) {
	sampleCopy := *sample
	s.byToken[sample.TokenID] = append(s.byToken[sample.TokenID], &sampleCopy)
}

func sortSamples(samples []*domain.MarketSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Timestamp.Equal(samples[j].Timestamp) {
			return samples[i].ID < samples[j].ID
		}
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
}
