package postgres

import (
	"context"
	"fmt"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// StakeStore implements storage.StakeStore using PostgreSQL.
type StakeStore struct {
	pool *Pool
}

// NewStakeStore creates a new StakeStore.
func NewStakeStore(pool *Pool) *StakeStore {
	return &StakeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StakeStore = (*StakeStore)(nil)

// Get retrieves a position. Returns ErrNotFound if the owner has no stake.
func (s *StakeStore) Get(ctx context.Context, owner string) (*domain.StakePosition, error) {
	query := `SELECT owner, amount::text, start_ms FROM stake_positions WHERE owner = $1`

	var (
		p      domain.StakePosition
		amount string
	)
	err := s.pool.QueryRow(ctx, query, owner).Scan(&p.Owner, &amount, &p.StartMs)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stake position: %w", err)
	}

	p.Amount, err = parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Put creates or replaces a position.
func (s *StakeStore) Put(ctx context.Context, p *domain.StakePosition) error {
	if p == nil || p.Owner == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO stake_positions (owner, amount, start_ms)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (owner)
		DO UPDATE SET amount = $2::numeric, start_ms = $3
	`

	if _, err := s.pool.Exec(ctx, query, p.Owner, p.Amount.String(), p.StartMs); err != nil {
		return fmt.Errorf("put stake position: %w", err)
	}
	return nil
}

// Delete removes a position. Removing a missing position is not an error.
func (s *StakeStore) Delete(ctx context.Context, owner string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM stake_positions WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("delete stake position: %w", err)
	}
	return nil
}
