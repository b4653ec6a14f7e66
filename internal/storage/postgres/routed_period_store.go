package postgres

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	"github.com/jackc/pgx/v5"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// RoutedPeriodStore implements storage.RoutedPeriodStore using PostgreSQL.
type RoutedPeriodStore struct {
	pool *Pool
}

// NewRoutedPeriodStore creates a new RoutedPeriodStore.
func NewRoutedPeriodStore(pool *Pool) *RoutedPeriodStore {
	return &RoutedPeriodStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RoutedPeriodStore = (*RoutedPeriodStore)(nil)

// Insert adds a routing record. Returns ErrDuplicateKey if the period was
// already routed.
func (s *RoutedPeriodStore) Insert(ctx context.Context, r *domain.RoutingRecord) error {
	if r == nil || r.Period < domain.FirstPeriod {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO routed_periods (period, total, debt, lp_pairs, stability_pool, eco, routed_at_ms)
		VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.Period,
		r.Total.String(),
		r.Debt.String(),
		r.LPPairs.String(),
		r.StabilityPool.String(),
		r.Eco.String(),
		r.RoutedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert routed period: %w", err)
	}
	return nil
}

// Get retrieves the record for a period. Returns ErrNotFound if the period
// has not been routed.
func (s *RoutedPeriodStore) Get(ctx context.Context, period int) (*domain.RoutingRecord, error) {
	query := `
		SELECT period, total::text, debt::text, lp_pairs::text, stability_pool::text, eco::text, routed_at_ms
		FROM routed_periods
		WHERE period = $1
	`

	r, err := scanRoutingRecord(s.pool.QueryRow(ctx, query, period))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get routed period: %w", err)
	}
	return r, nil
}

// List retrieves all routing records ordered by period ASC.
func (s *RoutedPeriodStore) List(ctx context.Context) ([]*domain.RoutingRecord, error) {
	query := `
		SELECT period, total::text, debt::text, lp_pairs::text, stability_pool::text, eco::text, routed_at_ms
		FROM routed_periods
		ORDER BY period ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list routed periods: %w", err)
	}
	defer rows.Close()

	var result []*domain.RoutingRecord
	for rows.Next() {
		r, err := scanRoutingRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routed period: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRoutingRecord(row pgx.Row) (*domain.RoutingRecord, error) {
	var (
		r                                        domain.RoutingRecord
		total, debt, lpPairs, stabilityPool, eco string
	)
	err := row.Scan(&r.Period, &total, &debt, &lpPairs, &stabilityPool, &eco, &r.RoutedAtMs)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		raw string
		dst *math.Int
	}{
		{total, &r.Total}, {debt, &r.Debt}, {lpPairs, &r.LPPairs},
		{stabilityPool, &r.StabilityPool}, {eco, &r.Eco},
	} {
		v, err := parseAmount(pair.raw)
		if err != nil {
			return nil, err
		}
		*pair.dst = v
	}
	return &r, nil
}
