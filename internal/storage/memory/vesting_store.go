package memory

import (
	"context"
	"sort"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// VestingStore is an in-memory implementation of storage.VestingStore.
type VestingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.VestingSchedule // keyed by beneficiary
}

// NewVestingStore creates a new in-memory vesting store.
func NewVestingStore() *VestingStore {
	return &VestingStore{
		data: make(map[string]*domain.VestingSchedule),
	}
}

// Get retrieves a schedule. Returns ErrNotFound if the beneficiary has no
// schedule.
func (s *VestingStore) Get(_ context.Context, beneficiary string) (*domain.VestingSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, exists := s.data[beneficiary]
	if !exists {
		return nil, storage.ErrNotFound
	}

	schedCopy := *sched
	return &schedCopy, nil
}

// Put creates or replaces a schedule.
func (s *VestingStore) Put(_ context.Context, sched *domain.VestingSchedule) error {
	if sched == nil || sched.Beneficiary == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	schedCopy := *sched
	s.data[sched.Beneficiary] = &schedCopy
	return nil
}

// Delete removes a schedule. Removing a missing schedule is not an error.
func (s *VestingStore) Delete(_ context.Context, beneficiary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, beneficiary)
	return nil
}

// List retrieves all schedules ordered by beneficiary ASC.
func (s *VestingStore) List(_ context.Context) ([]*domain.VestingSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.VestingSchedule, 0, len(s.data))
	for _, sched := range s.data {
		schedCopy := *sched
		result = append(result, &schedCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Beneficiary < result[j].Beneficiary
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.VestingStore = (*VestingStore)(nil)
