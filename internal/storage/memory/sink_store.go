package memory

import (
	"context"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// SinkStore is an in-memory implementation of storage.SinkStore.
type SinkStore struct {
	mu    sync.RWMutex
	sinks *domain.ChannelSinks
}

// NewSinkStore creates a new in-memory sink store.
func NewSinkStore() *SinkStore {
	return &SinkStore{}
}

// Get returns the configured sinks. Returns ErrNotFound before the first Set.
func (s *SinkStore) Get(_ context.Context) (*domain.ChannelSinks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sinks == nil {
		return nil, storage.ErrNotFound
	}
	sinksCopy := *s.sinks
	return &sinksCopy, nil
}

// Set replaces the sink configuration.
func (s *SinkStore) Set(_ context.Context, sinks *domain.ChannelSinks) error {
	if sinks == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sinksCopy := *sinks
	s.sinks = &sinksCopy
	return nil
}

// Verify interface compliance at compile time.
var _ storage.SinkStore = (*SinkStore)(nil)
