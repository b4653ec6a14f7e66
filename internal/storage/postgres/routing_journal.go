package postgres

import (
	"context"
	"fmt"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// RoutingJournal implements storage.RoutingJournal using PostgreSQL. The
// routed-period insert and all sink transfers run in one transaction, so a
// failing leg rolls the routed marker back with it.
type RoutingJournal struct {
	pool *Pool
}

// NewRoutingJournal creates a new RoutingJournal.
func NewRoutingJournal(pool *Pool) *RoutingJournal {
	return &RoutingJournal{pool: pool}
}

// Compile-time interface check.
var _ storage.RoutingJournal = (*RoutingJournal)(nil)

// Commit marks the period routed and applies the transfers. Either both
// happen or neither.
func (j *RoutingJournal) Commit(ctx context.Context, r *domain.RoutingRecord, transfers []domain.Transfer) error {
	if r == nil || r.Period < domain.FirstPeriod {
		return storage.ErrInvalidInput
	}
	for _, t := range transfers {
		if t.From == "" || t.To == "" || t.Token == "" || t.Amount.IsNil() || t.Amount.IsNegative() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin routing commit: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO routed_periods (period, total, debt, lp_pairs, stability_pool, eco, routed_at_ms)
		VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7)
	`,
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

	if err := applyTransfers(ctx, tx, transfers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit routing: %w", err)
	}
	return nil
}
