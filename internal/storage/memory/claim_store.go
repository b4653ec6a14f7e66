package memory

import (
	"context"
	"sort"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// ClaimStore is an in-memory implementation of storage.ClaimStore.
type ClaimStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClaimRecord // keyed by leaf hash
}

// NewClaimStore creates a new in-memory claim store.
func NewClaimStore() *ClaimStore {
	return &ClaimStore{
		data: make(map[string]*domain.ClaimRecord),
	}
}

// Insert adds a claim record. Returns ErrDuplicateKey if the leaf was
// already claimed.
func (s *ClaimStore) Insert(_ context.Context, c *domain.ClaimRecord) error {
	if c == nil || c.LeafHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.LeafHash]; exists {
		return storage.ErrDuplicateKey
	}

	claimCopy := *c
	s.data[c.LeafHash] = &claimCopy
	return nil
}

// Get retrieves a claim by leaf hash.
func (s *ClaimStore) Get(_ context.Context, leafHash string) (*domain.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[leafHash]
	if !exists {
		return nil, storage.ErrNotFound
	}

	claimCopy := *c
	return &claimCopy, nil
}

// GetByPeriodToken retrieves all claims for (period, token) ordered by claim
// time ASC.
func (s *ClaimStore) GetByPeriodToken(_ context.Context, period int, token string) ([]*domain.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimRecord
	for _, c := range s.data {
		if c.Period == period && c.Token == token {
			claimCopy := *c
			result = append(result, &claimCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ClaimedAtMs < result[j].ClaimedAtMs
	})

	return result, nil
}

// Delete removes a claim record. Removing a missing leaf is not an error.
func (s *ClaimStore) Delete(_ context.Context, leafHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, leafHash)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ClaimStore = (*ClaimStore)(nil)
