package memory

import (
	"context"
	"sort"
	"sync"

	"emission-engine/internal/storage"
)

// RoutingRoleStore is an in-memory implementation of storage.RoutingRoleStore.
type RoutingRoleStore struct {
	mu   sync.RWMutex
	data map[string]int64 // account -> granted_at_ms
}

// NewRoutingRoleStore creates a new in-memory routing-role store.
func NewRoutingRoleStore() *RoutingRoleStore {
	return &RoutingRoleStore{
		data: make(map[string]int64),
	}
}

// Grant adds an account. Granting twice is not an error.
func (s *RoutingRoleStore) Grant(_ context.Context, account string, atMs int64) error {
	if account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[account]; !exists {
		s.data[account] = atMs
	}
	return nil
}

// Revoke removes an account. Revoking a missing grant is not an error.
func (s *RoutingRoleStore) Revoke(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, account)
	return nil
}

// Has reports whether the account holds the role.
func (s *RoutingRoleStore) Has(_ context.Context, account string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[account]
	return ok, nil
}

// List retrieves all role holders ordered by account ASC.
func (s *RoutingRoleStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.data))
	for account := range s.data {
		result = append(result, account)
	}
	sort.Strings(result)
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.RoutingRoleStore = (*RoutingRoleStore)(nil)
