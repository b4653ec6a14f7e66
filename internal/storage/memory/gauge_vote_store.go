package memory

import (
	"context"
	"sort"
	"sync"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// GaugeVoteStore is an in-memory implementation of storage.GaugeVoteStore.
type GaugeVoteStore struct {
	mu   sync.RWMutex
	data map[int]map[string]*domain.GaugeVote // period -> voter -> vote
}

// NewGaugeVoteStore creates a new in-memory gauge vote store.
func NewGaugeVoteStore() *GaugeVoteStore {
	return &GaugeVoteStore{
		data: make(map[int]map[string]*domain.GaugeVote),
	}
}

// Upsert stores a voter's allocation for a period, replacing any previous
// allocation by the same voter for that period.
func (s *GaugeVoteStore) Upsert(_ context.Context, v *domain.GaugeVote) error {
	if v == nil || v.Voter == "" || v.Period < domain.FirstPeriod {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	periodVotes, ok := s.data[v.Period]
	if !ok {
		periodVotes = make(map[string]*domain.GaugeVote)
		s.data[v.Period] = periodVotes
	}
	periodVotes[v.Voter] = copyVote(v)
	return nil
}

// Get retrieves one voter's allocation for a period.
func (s *GaugeVoteStore) Get(_ context.Context, period int, voter string) (*domain.GaugeVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[period][voter]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyVote(v), nil
}

// GetByPeriod retrieves all votes for a period ordered by voter ASC.
func (s *GaugeVoteStore) GetByPeriod(_ context.Context, period int) ([]*domain.GaugeVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.GaugeVote
	for _, v := range s.data[period] {
		result = append(result, copyVote(v))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Voter < result[j].Voter
	})

	return result, nil
}

func copyVote(v *domain.GaugeVote) *domain.GaugeVote {
	voteCopy := *v
	voteCopy.Allocations = make([]domain.GaugeAllocation, len(v.Allocations))
	copy(voteCopy.Allocations, v.Allocations)
	return &voteCopy
}

// Verify interface compliance at compile time.
var _ storage.GaugeVoteStore = (*GaugeVoteStore)(nil)
