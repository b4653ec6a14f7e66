package postgres

import (
	"context"
	"fmt"

	"emission-engine/internal/storage"
)

// RoutingRoleStore implements storage.RoutingRoleStore using PostgreSQL.
type RoutingRoleStore struct {
	pool *Pool
}

// NewRoutingRoleStore creates a new RoutingRoleStore.
func NewRoutingRoleStore(pool *Pool) *RoutingRoleStore {
	return &RoutingRoleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RoutingRoleStore = (*RoutingRoleStore)(nil)

// Grant adds an account. Granting twice is not an error.
func (s *RoutingRoleStore) Grant(ctx context.Context, account string, atMs int64) error {
	if account == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO routing_roles (account, granted_at_ms)
		VALUES ($1, $2)
		ON CONFLICT (account) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, account, atMs); err != nil {
		return fmt.Errorf("grant routing role: %w", err)
	}
	return nil
}

// Revoke removes an account. Revoking a missing grant is not an error.
func (s *RoutingRoleStore) Revoke(ctx context.Context, account string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM routing_roles WHERE account = $1`, account)
	if err != nil {
		return fmt.Errorf("revoke routing role: %w", err)
	}
	return nil
}

// Has reports whether the account holds the role.
func (s *RoutingRoleStore) Has(ctx context.Context, account string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM routing_roles WHERE account = $1)`, account,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check routing role: %w", err)
	}
	return exists, nil
}

// List retrieves all role holders ordered by account ASC.
func (s *RoutingRoleStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT account FROM routing_roles ORDER BY account ASC`)
	if err != nil {
		return nil, fmt.Errorf("list routing roles: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, fmt.Errorf("scan routing role: %w", err)
		}
		result = append(result, account)
	}
	return result, rows.Err()
}
