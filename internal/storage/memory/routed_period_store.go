package memory

import (
	"context"
	"sort"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// RoutedPeriodStore is an in-memory implementation of storage.RoutedPeriodStore.
type RoutedPeriodStore struct {
	mu   sync.RWMutex
	data map[int]*domain.RoutingRecord
}

// NewRoutedPeriodStore creates a new in-memory routed-period store.
func NewRoutedPeriodStore() *RoutedPeriodStore {
	return &RoutedPeriodStore{
		data: make(map[int]*domain.RoutingRecord),
	}
}

// Insert adds a routing record. Returns ErrDuplicateKey if the period was
// already routed.
func (s *RoutedPeriodStore) Insert(_ context.Context, r *domain.RoutingRecord) error {
	if r == nil || r.Period < domain.FirstPeriod {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Period]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[r.Period] = &recordCopy
	return nil
}

// Get retrieves the record for a period. Returns ErrNotFound if the period
// has not been routed.
func (s *RoutedPeriodStore) Get(_ context.Context, period int) (*domain.RoutingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[period]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// List retrieves all routing records ordered by period ASC.
func (s *RoutedPeriodStore) List(_ context.Context) ([]*domain.RoutingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RoutingRecord, 0, len(s.data))
	for _, r := range s.data {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Period < result[j].Period
	})

	return result, nil
}

// remove drops a record; the journal uses it to undo a failed commit.
func (s *RoutedPeriodStore) remove(period int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, period)
}

// Verify interface compliance at compile time.
var _ storage.RoutedPeriodStore = (*RoutedPeriodStore)(nil)
