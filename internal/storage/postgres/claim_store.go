package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// ClaimStore implements storage.ClaimStore using PostgreSQL.
type ClaimStore struct {
	pool *Pool
}

// NewClaimStore creates a new ClaimStore.
func NewClaimStore(pool *Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClaimStore = (*ClaimStore)(nil)

// Insert adds a claim record. Returns ErrDuplicateKey if the leaf was
// already claimed.
func (s *ClaimStore) Insert(ctx context.Context, c *domain.ClaimRecord) error {
	if c == nil || c.LeafHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO claimed_leaves (leaf_hash, period, token, beneficiary, amount, boosted, claimed_at_ms)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		c.LeafHash,
		c.Period,
		c.Token,
		c.Beneficiary,
		c.Amount.String(),
		c.Boosted.String(),
		c.ClaimedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// Get retrieves a claim by leaf hash.
func (s *ClaimStore) Get(ctx context.Context, leafHash string) (*domain.ClaimRecord, error) {
	query := `
		SELECT leaf_hash, period, token, beneficiary, amount::text, boosted::text, claimed_at_ms
		FROM claimed_leaves
		WHERE leaf_hash = $1
	`

	c, err := scanClaim(s.pool.QueryRow(ctx, query, leafHash))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

// GetByPeriodToken retrieves all claims for (period, token) ordered by claim
// time ASC.
func (s *ClaimStore) GetByPeriodToken(ctx context.Context, period int, token string) ([]*domain.ClaimRecord, error) {
	query := `
		SELECT leaf_hash, period, token, beneficiary, amount::text, boosted::text, claimed_at_ms
		FROM claimed_leaves
		WHERE period = $1 AND token = $2
		ORDER BY claimed_at_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, period, token)
	if err != nil {
		return nil, fmt.Errorf("get claims by period: %w", err)
	}
	defer rows.Close()

	var result []*domain.ClaimRecord
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Delete removes a claim record. Removing a missing leaf is not an error.
func (s *ClaimStore) Delete(ctx context.Context, leafHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM claimed_leaves WHERE leaf_hash = $1`, leafHash)
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	return nil
}

func scanClaim(row pgx.Row) (*domain.ClaimRecord, error) {
	var (
		c               domain.ClaimRecord
		amount, boosted string
	)
	err := row.Scan(&c.LeafHash, &c.Period, &c.Token, &c.Beneficiary, &amount, &boosted, &c.ClaimedAtMs)
	if err != nil {
		return nil, err
	}

	if c.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	if c.Boosted, err = parseAmount(boosted); err != nil {
		return nil, err
	}
	return &c, nil
}
