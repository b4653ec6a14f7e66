package memory

import (
	"context"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// StakeStore is an in-memory implementation of storage.StakeStore.
type StakeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StakePosition // keyed by owner
}

// NewStakeStore creates a new in-memory stake store.
func NewStakeStore() *StakeStore {
	return &StakeStore{
		data: make(map[string]*domain.StakePosition),
	}
}

// Get retrieves a position. Returns ErrNotFound if the owner has no stake.
func (s *StakeStore) Get(_ context.Context, owner string) (*domain.StakePosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[owner]
	if !exists {
		return nil, storage.ErrNotFound
	}

	positionCopy := *p
	return &positionCopy, nil
}

// Put creates or replaces a position.
func (s *StakeStore) Put(_ context.Context, p *domain.StakePosition) error {
	if p == nil || p.Owner == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	positionCopy := *p
	s.data[p.Owner] = &positionCopy
	return nil
}

// Delete removes a position. Removing a missing position is not an error.
func (s *StakeStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, owner)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.StakeStore = (*StakeStore)(nil)
