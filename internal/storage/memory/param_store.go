package memory

import (
	"context"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// ParamStore is an in-memory implementation of storage.ParamStore.
type ParamStore struct {
	mu      sync.RWMutex
	lpSplit *domain.LPSplit
}

// NewParamStore creates a new in-memory param store.
func NewParamStore() *ParamStore {
	return &ParamStore{}
}

// GetLPSplit returns the LP secondary split. Returns ErrNotFound before the
// first Set.
func (s *ParamStore) GetLPSplit(_ context.Context) (*domain.LPSplit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lpSplit == nil {
		return nil, storage.ErrNotFound
	}
	splitCopy := *s.lpSplit
	return &splitCopy, nil
}

// SetLPSplit replaces the LP secondary split.
func (s *ParamStore) SetLPSplit(_ context.Context, split *domain.LPSplit) error {
	if split == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	splitCopy := *split
	s.lpSplit = &splitCopy
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ParamStore = (*ParamStore)(nil)
