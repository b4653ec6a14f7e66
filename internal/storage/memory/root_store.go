package memory

import (
	"context"
	"fmt"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// RootStore is an in-memory implementation of storage.RootStore.
type RootStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RootRecord // keyed by period|token
}

// NewRootStore creates a new in-memory root store.
func NewRootStore() *RootStore {
	return &RootStore{
		data: make(map[string]*domain.RootRecord),
	}
}

func rootKey(period int, token string) string {
	return fmt.Sprintf("%d|%s", period, token)
}

// Upsert creates or replaces the root for (period, token).
func (s *RootStore) Upsert(_ context.Context, r *domain.RootRecord) error {
	if r == nil || r.Token == "" || r.Root == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *r
	s.data[rootKey(r.Period, r.Token)] = &recordCopy
	return nil
}

// Get retrieves the root for (period, token).
func (s *RootStore) Get(_ context.Context, period int, token string) (*domain.RootRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[rootKey(period, token)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// IncrementClaims bumps the settled-claim counter for (period, token).
func (s *RootStore) IncrementClaims(_ context.Context, period int, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[rootKey(period, token)]
	if !exists {
		return storage.ErrNotFound
	}

	r.Claims++
	return nil
}

// Verify interface compliance at compile time.
var _ storage.RootStore = (*RootStore)(nil)
