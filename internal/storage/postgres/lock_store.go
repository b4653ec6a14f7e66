package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// LockStore implements storage.LockStore using PostgreSQL.
type LockStore struct {
	pool *Pool
}

// NewLockStore creates a new LockStore.
func NewLockStore(pool *Pool) *LockStore {
	return &LockStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LockStore = (*LockStore)(nil)

// Insert adds a lock and assigns its ID.
func (s *LockStore) Insert(ctx context.Context, l *domain.VoteEscrowLock) error {
	if l == nil || l.Owner == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO escrow_locks (owner, amount, lock_end_ms, created_at_ms)
		VALUES ($1, $2::numeric, $3, $4)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query, l.Owner, l.Amount.String(), l.LockEndMs, l.CreatedAtMs).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert lock: %w", err)
	}
	return nil
}

// Get retrieves a lock by ID. Returns ErrNotFound if not exists.
func (s *LockStore) Get(ctx context.Context, id int64) (*domain.VoteEscrowLock, error) {
	query := `
		SELECT id, owner, amount::text, lock_end_ms, created_at_ms
		FROM escrow_locks
		WHERE id = $1
	`

	l, err := scanLock(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get lock: %w", err)
	}
	return l, nil
}

// GetByOwner retrieves all locks of an owner ordered by ID ASC.
func (s *LockStore) GetByOwner(ctx context.Context, owner string) ([]*domain.VoteEscrowLock, error) {
	query := `
		SELECT id, owner, amount::text, lock_end_ms, created_at_ms
		FROM escrow_locks
		WHERE owner = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("get locks by owner: %w", err)
	}
	defer rows.Close()

	var result []*domain.VoteEscrowLock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lock: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// Update replaces a lock. Returns ErrNotFound if not exists.
func (s *LockStore) Update(ctx context.Context, l *domain.VoteEscrowLock) error {
	if l == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE escrow_locks
		SET amount = $2::numeric, lock_end_ms = $3
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, l.ID, l.Amount.String(), l.LockEndMs)
	if err != nil {
		return fmt.Errorf("update lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a lock. Returns ErrNotFound if not exists.
func (s *LockStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM escrow_locks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanLock(row pgx.Row) (*domain.VoteEscrowLock, error) {
	var (
		l      domain.VoteEscrowLock
		amount string
	)
	if err := row.Scan(&l.ID, &l.Owner, &amount, &l.LockEndMs, &l.CreatedAtMs); err != nil {
		return nil, err
	}

	parsed, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	l.Amount = parsed
	return &l, nil
}
