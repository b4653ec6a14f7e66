package memory

import (
	"context"
	"sort"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// LockStore is an in-memory implementation of storage.LockStore.
type LockStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.VoteEscrowLock
}

// NewLockStore creates a new in-memory lock store.
func NewLockStore() *LockStore {
	return &LockStore{
		nextID: 1,
		data:   make(map[int64]*domain.VoteEscrowLock),
	}
}

// Insert adds a lock and assigns its ID.
func (s *LockStore) Insert(_ context.Context, l *domain.VoteEscrowLock) error {
	if l == nil || l.Owner == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = s.nextID
	s.nextID++

	lockCopy := *l
	s.data[l.ID] = &lockCopy
	return nil
}

// Get retrieves a lock by ID. Returns ErrNotFound if not exists.
func (s *LockStore) Get(_ context.Context, id int64) (*domain.VoteEscrowLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	lockCopy := *l
	return &lockCopy, nil
}

// GetByOwner retrieves all locks of an owner ordered by ID ASC.
func (s *LockStore) GetByOwner(_ context.Context, owner string) ([]*domain.VoteEscrowLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VoteEscrowLock
	for _, l := range s.data {
		if l.Owner == owner {
			lockCopy := *l
			result = append(result, &lockCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Update replaces a lock. Returns ErrNotFound if not exists.
func (s *LockStore) Update(_ context.Context, l *domain.VoteEscrowLock) error {
	if l == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.ID]; !exists {
		return storage.ErrNotFound
	}

	lockCopy := *l
	s.data[l.ID] = &lockCopy
	return nil
}

// Delete removes a lock. Returns ErrNotFound if not exists.
func (s *LockStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}

	delete(s.data, id)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.LockStore = (*LockStore)(nil)
