package memory

import (
	"context"
	"sort"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data []*domain.DistributionEvent
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Insert appends one event.
func (s *EventStore) Insert(_ context.Context, e *domain.DistributionEvent) error {
	if e == nil || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.data = append(s.data, &eventCopy)
	return nil
}

// GetByTimeRange retrieves events within [start, end] ms (inclusive) ordered
// by time ASC.
func (s *EventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.DistributionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DistributionEvent
	for _, e := range s.data {
		if e.AtMs >= start && e.AtMs <= end {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AtMs < result[j].AtMs
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
