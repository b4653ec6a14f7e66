package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// VestingStore implements storage.VestingStore using PostgreSQL.
type VestingStore struct {
	pool *Pool
}

// NewVestingStore creates a new VestingStore.
func NewVestingStore(pool *Pool) *VestingStore {
	return &VestingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VestingStore = (*VestingStore)(nil)

// Get retrieves a schedule. Returns ErrNotFound if the beneficiary has no
// schedule.
func (s *VestingStore) Get(ctx context.Context, beneficiary string) (*domain.VestingSchedule, error) {
	query := `
		SELECT beneficiary, total::text, claimed::text, start_ms
		FROM vesting_schedules
		WHERE beneficiary = $1
	`

	sched, err := scanSchedule(s.pool.QueryRow(ctx, query, beneficiary))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get vesting schedule: %w", err)
	}
	return sched, nil
}

// Put creates or replaces a schedule.
func (s *VestingStore) Put(ctx context.Context, sched *domain.VestingSchedule) error {
	if sched == nil || sched.Beneficiary == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vesting_schedules (beneficiary, total, claimed, start_ms)
		VALUES ($1, $2::numeric, $3::numeric, $4)
		ON CONFLICT (beneficiary)
		DO UPDATE SET total = $2::numeric, claimed = $3::numeric, start_ms = $4
	`

	_, err := s.pool.Exec(ctx, query, sched.Beneficiary, sched.Total.String(), sched.Claimed.String(), sched.StartMs)
	if err != nil {
		return fmt.Errorf("put vesting schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule. Removing a missing schedule is not an error.
func (s *VestingStore) Delete(ctx context.Context, beneficiary string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM vesting_schedules WHERE beneficiary = $1`, beneficiary); err != nil {
		return fmt.Errorf("delete vesting schedule: %w", err)
	}
	return nil
}

// List retrieves all schedules ordered by beneficiary ASC.
func (s *VestingStore) List(ctx context.Context) ([]*domain.VestingSchedule, error) {
	query := `
		SELECT beneficiary, total::text, claimed::text, start_ms
		FROM vesting_schedules
		ORDER BY beneficiary ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vesting schedules: %w", err)
	}
	defer rows.Close()

	var result []*domain.VestingSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vesting schedule: %w", err)
		}
		result = append(result, sched)
	}
	return result, rows.Err()
}

func scanSchedule(row pgx.Row) (*domain.VestingSchedule, error) {
	var (
		sched          domain.VestingSchedule
		total, claimed string
	)
	err := row.Scan(&sched.Beneficiary, &total, &claimed, &sched.StartMs)
	if err != nil {
		return nil, err
	}

	if sched.Total, err = parseAmount(total); err != nil {
		return nil, err
	}
	if sched.Claimed, err = parseAmount(claimed); err != nil {
		return nil, err
	}
	return &sched, nil
}
