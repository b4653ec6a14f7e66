package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// GaugeVoteStore implements storage.GaugeVoteStore using PostgreSQL.
// Allocations are stored as a JSONB document per (period, voter).
type GaugeVoteStore struct {
	pool *Pool
}

// NewGaugeVoteStore creates a new GaugeVoteStore.
func NewGaugeVoteStore(pool *Pool) *GaugeVoteStore {
	return &GaugeVoteStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GaugeVoteStore = (*GaugeVoteStore)(nil)

type allocationDoc struct {
	PoolID    string `json:"pool_id"`
	WeightBps int64  `json:"weight_bps"`
}

// Upsert stores a voter's allocation for a period, replacing any previous
// allocation by the same voter for that period.
func (s *GaugeVoteStore) Upsert(ctx context.Context, v *domain.GaugeVote) error {
	if v == nil || v.Voter == "" || v.Period < domain.FirstPeriod {
		return storage.ErrInvalidInput
	}

	docs := make([]allocationDoc, len(v.Allocations))
	for i, a := range v.Allocations {
		docs[i] = allocationDoc{PoolID: a.PoolID, WeightBps: a.WeightBps}
	}
	encoded, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode allocations: %w", err)
	}

	query := `
		INSERT INTO gauge_votes (period, voter, power, allocations, cast_at_ms)
		VALUES ($1, $2, $3::numeric, $4, $5)
		ON CONFLICT (period, voter)
		DO UPDATE SET power = $3::numeric, allocations = $4, cast_at_ms = $5
	`

	_, err = s.pool.Exec(ctx, query, v.Period, v.Voter, v.Power.String(), encoded, v.CastAtMs)
	if err != nil {
		return fmt.Errorf("upsert gauge vote: %w", err)
	}
	return nil
}

// Get retrieves one voter's allocation for a period.
func (s *GaugeVoteStore) Get(ctx context.Context, period int, voter string) (*domain.GaugeVote, error) {
	query := `
		SELECT period, voter, power::text, allocations, cast_at_ms
		FROM gauge_votes
		WHERE period = $1 AND voter = $2
	`

	v, err := scanGaugeVote(s.pool.QueryRow(ctx, query, period, voter))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get gauge vote: %w", err)
	}
	return v, nil
}

// GetByPeriod retrieves all votes for a period ordered by voter ASC.
func (s *GaugeVoteStore) GetByPeriod(ctx context.Context, period int) ([]*domain.GaugeVote, error) {
	query := `
		SELECT period, voter, power::text, allocations, cast_at_ms
		FROM gauge_votes
		WHERE period = $1
		ORDER BY voter ASC
	`

	rows, err := s.pool.Query(ctx, query, period)
	if err != nil {
		return nil, fmt.Errorf("get votes by period: %w", err)
	}
	defer rows.Close()

	var result []*domain.GaugeVote
	for rows.Next() {
		v, err := scanGaugeVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gauge vote: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func scanGaugeVote(row pgx.Row) (*domain.GaugeVote, error) {
	var (
		v       domain.GaugeVote
		power   string
		encoded []byte
	)
	if err := row.Scan(&v.Period, &v.Voter, &power, &encoded, &v.CastAtMs); err != nil {
		return nil, err
	}

	parsed, err := parseAmount(power)
	if err != nil {
		return nil, err
	}
	v.Power = parsed

	var docs []allocationDoc
	if err := json.Unmarshal(encoded, &docs); err != nil {
		return nil, fmt.Errorf("decode allocations: %w", err)
	}
	v.Allocations = make([]domain.GaugeAllocation, len(docs))
	for i, d := range docs {
		v.Allocations[i] = domain.GaugeAllocation{PoolID: d.PoolID, WeightBps: d.WeightBps}
	}
	return &v, nil
}
