package postgres

import (
	"context"
	"fmt"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// RootStore implements storage.RootStore using PostgreSQL.
type RootStore struct {
	pool *Pool
}

// NewRootStore creates a new RootStore.
func NewRootStore(pool *Pool) *RootStore {
	return &RootStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RootStore = (*RootStore)(nil)

// Upsert creates or replaces the root for (period, token). The claim
// counter restarts at zero for a replaced root.
func (s *RootStore) Upsert(ctx context.Context, r *domain.RootRecord) error {
	if r == nil || r.Token == "" || r.Root == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO merkle_roots (period, token, root, claims, updated_at_ms)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (period, token)
		DO UPDATE SET root = $3, claims = 0, updated_at_ms = $4
	`

	if _, err := s.pool.Exec(ctx, query, r.Period, r.Token, r.Root, r.UpdatedAtMs); err != nil {
		return fmt.Errorf("upsert root: %w", err)
	}
	return nil
}

// Get retrieves the root for (period, token).
func (s *RootStore) Get(ctx context.Context, period int, token string) (*domain.RootRecord, error) {
	query := `
		SELECT period, token, root, claims, updated_at_ms
		FROM merkle_roots
		WHERE period = $1 AND token = $2
	`

	var r domain.RootRecord
	err := s.pool.QueryRow(ctx, query, period, token).Scan(&r.Period, &r.Token, &r.Root, &r.Claims, &r.UpdatedAtMs)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get root: %w", err)
	}
	return &r, nil
}

// IncrementClaims bumps the settled-claim counter for (period, token).
func (s *RootStore) IncrementClaims(ctx context.Context, period int, token string) error {
	query := `
		UPDATE merkle_roots SET claims = claims + 1
		WHERE period = $1 AND token = $2
	`

	tag, err := s.pool.Exec(ctx, query, period, token)
	if err != nil {
		return fmt.Errorf("increment claims: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
