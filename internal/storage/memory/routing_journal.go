package memory

import (
	"context"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// RoutingJournal is an in-memory implementation of storage.RoutingJournal.
// It composes the routed-period and account stores; the record insert is the
// gate, and a failed transfer batch removes the record again so nothing
// partial survives.
type RoutingJournal struct {
	routed   *RoutedPeriodStore
	accounts *AccountStore
}

// NewRoutingJournal creates a journal over the given stores.
func NewRoutingJournal(routed *RoutedPeriodStore, accounts *AccountStore) *RoutingJournal {
	return &RoutingJournal{routed: routed, accounts: accounts}
}

// Commit marks the period routed and applies the transfers. Either both
// happen or neither.
func (j *RoutingJournal) Commit(ctx context.Context, r *domain.RoutingRecord, transfers []domain.Transfer) error {
	if err := j.routed.Insert(ctx, r); err != nil {
		return err
	}
	if err := j.accounts.TransferBatch(ctx, transfers); err != nil {
		j.routed.remove(r.Period)
		return err
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.RoutingJournal = (*RoutingJournal)(nil)
