package storage

import (
	"context"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
)

// AccountStore provides access to token balances keyed (account, token).
type AccountStore interface {
	// Balance returns the balance, zero if the account has no row.
	Balance(ctx context.Context, account, token string) (math.Int, error)

	// Credit adds amount to an account balance, creating the row if absent.
	Credit(ctx context.Context, account, token string, amount math.Int) error

	// TransferBatch applies all transfers atomically. Returns
	// ErrInsufficientFunds and leaves every balance unchanged if any debit
	// would overdraw its account.
	TransferBatch(ctx context.Context, transfers []domain.Transfer) error
}

// RoutedPeriodStore provides access to routed_periods storage.
type RoutedPeriodStore interface {
	// Insert adds a routing record. Returns ErrDuplicateKey if the period
	// was already routed.
	Insert(ctx context.Context, r *domain.RoutingRecord) error

	// Get retrieves the record for a period. Returns ErrNotFound if the
	// period has not been routed.
	Get(ctx context.Context, period int) (*domain.RoutingRecord, error)

	// List retrieves all routing records ordered by period ASC.
	List(ctx context.Context) ([]*domain.RoutingRecord, error)
}

// RoutingJournal commits a routing record together with its sink transfers
// as one atomic unit: either the period is marked routed and every transfer
// applied, or nothing is. Returns ErrDuplicateKey if the period was already
// routed and ErrInsufficientFunds if any debit would overdraw.
type RoutingJournal interface {
	Commit(ctx context.Context, r *domain.RoutingRecord, transfers []domain.Transfer) error
}

// RoutingRoleStore holds the accounts granted the routing role.
type RoutingRoleStore interface {
	// Grant adds an account. Granting twice is not an error.
	Grant(ctx context.Context, account string, atMs int64) error

	// Revoke removes an account. Revoking a missing grant is not an error.
	Revoke(ctx context.Context, account string) error

	// Has reports whether the account holds the role.
	Has(ctx context.Context, account string) (bool, error)

	// List retrieves all role holders ordered by account ASC.
	List(ctx context.Context) ([]string, error)
}

// SinkStore holds the governance-configured channel sinks.
type SinkStore interface {
	// Get returns the configured sinks. Returns ErrNotFound before the
	// first Set.
	Get(ctx context.Context) (*domain.ChannelSinks, error)

	// Set replaces the sink configuration.
	Set(ctx context.Context, sinks *domain.ChannelSinks) error
}

// ParamStore holds governance-adjustable scheduler parameters.
type ParamStore interface {
	// GetLPSplit returns the LP secondary split. Returns ErrNotFound
	// before the first Set.
	GetLPSplit(ctx context.Context) (*domain.LPSplit, error)

	// SetLPSplit replaces the LP secondary split.
	SetLPSplit(ctx context.Context, split *domain.LPSplit) error
}

// GaugeVoteStore provides access to gauge_votes storage.
type GaugeVoteStore interface {
	// Upsert stores a voter's allocation for a period, replacing any
	// previous allocation by the same voter for that period.
	Upsert(ctx context.Context, v *domain.GaugeVote) error

	// Get retrieves one voter's allocation for a period. Returns
	// ErrNotFound if the voter has not voted in that period.
	Get(ctx context.Context, period int, voter string) (*domain.GaugeVote, error)

	// GetByPeriod retrieves all votes for a period ordered by voter ASC.
	GetByPeriod(ctx context.Context, period int) ([]*domain.GaugeVote, error)
}

// StakeStore provides access to stake_positions storage.
type StakeStore interface {
	// Get retrieves a position. Returns ErrNotFound if the owner has no stake.
	Get(ctx context.Context, owner string) (*domain.StakePosition, error)

	// Put creates or replaces a position.
	Put(ctx context.Context, p *domain.StakePosition) error

	// Delete removes a position. Removing a missing position is not an error.
	Delete(ctx context.Context, owner string) error
}

// LockStore provides access to escrow_locks storage.
type LockStore interface {
	// Insert adds a lock and assigns its ID.
	Insert(ctx context.Context, l *domain.VoteEscrowLock) error

	// Get retrieves a lock by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id int64) (*domain.VoteEscrowLock, error)

	// GetByOwner retrieves all locks of an owner ordered by ID ASC.
	GetByOwner(ctx context.Context, owner string) ([]*domain.VoteEscrowLock, error)

	// Update replaces a lock. Returns ErrNotFound if not exists.
	Update(ctx context.Context, l *domain.VoteEscrowLock) error

	// Delete removes a lock. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id int64) error
}

// RootStore provides access to merkle_roots storage.
type RootStore interface {
	// Upsert creates or replaces the root for (period, token).
	Upsert(ctx context.Context, r *domain.RootRecord) error

	// Get retrieves the root for (period, token). Returns ErrNotFound if
	// no root has been published.
	Get(ctx context.Context, period int, token string) (*domain.RootRecord, error)

	// IncrementClaims bumps the settled-claim counter for (period, token).
	IncrementClaims(ctx context.Context, period int, token string) error
}

// ClaimStore provides access to claimed_leaves storage.
type ClaimStore interface {
	// Insert adds a claim record. Returns ErrDuplicateKey if the leaf was
	// already claimed.
	Insert(ctx context.Context, c *domain.ClaimRecord) error

	// Get retrieves a claim by leaf hash. Returns ErrNotFound if the leaf
	// has not been claimed.
	Get(ctx context.Context, leafHash string) (*domain.ClaimRecord, error)

	// GetByPeriodToken retrieves all claims for (period, token) ordered by
	// claim time ASC.
	GetByPeriodToken(ctx context.Context, period int, token string) ([]*domain.ClaimRecord, error)

	// Delete removes a claim record. Removing a missing leaf is not an
	// error. Used to release the leaf when settlement fails downstream of
	// the insert.
	Delete(ctx context.Context, leafHash string) error
}

// VestingStore provides access to vesting_schedules storage.
type VestingStore interface {
	// Get retrieves a schedule. Returns ErrNotFound if the beneficiary has
	// no schedule.
	Get(ctx context.Context, beneficiary string) (*domain.VestingSchedule, error)

	// Put creates or replaces a schedule.
	Put(ctx context.Context, s *domain.VestingSchedule) error

	// Delete removes a schedule. Removing a missing schedule is not an error.
	Delete(ctx context.Context, beneficiary string) error

	// List retrieves all schedules ordered by beneficiary ASC.
	List(ctx context.Context) ([]*domain.VestingSchedule, error)
}

// EventStore records the distribution analytics trail.
type EventStore interface {
	// Insert appends one event.
	Insert(ctx context.Context, e *domain.DistributionEvent) error

	// GetByTimeRange retrieves events within [start, end] ms (inclusive)
	// ordered by time ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DistributionEvent, error)
}
