// Package engine is the facade the API layer calls. One mutex serializes
// every mutating operation, preserving the all-or-nothing transaction model
// the distribution invariants assume: two concurrent routes or claims behave
// exactly as if run one after the other.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/aggregator"
	"emission-engine/internal/domain"
	"emission-engine/internal/emission"
	"emission-engine/internal/escrow"
	"emission-engine/internal/events"
	"emission-engine/internal/gauge"
	"emission-engine/internal/ledger"
	"emission-engine/internal/observability"
	"emission-engine/internal/router"
	"emission-engine/internal/settlement"
	"emission-engine/internal/staking"
	"emission-engine/internal/storage"
	"emission-engine/internal/vesting"
)

// ErrUnauthorized is returned when a caller lacks the governance authority
// required by an operation.
var ErrUnauthorized = errors.New("caller not authorized")

// Engine wires the distribution components behind one lock.
type Engine struct {
	mu sync.Mutex

	scheduler  *emission.Scheduler
	router     *router.Router
	gauge      *gauge.Controller
	staking    *staking.BoostStaking
	settlement *settlement.Settlement
	vesting    *vesting.Ledger
	lockBook   *escrow.LockBook
	ledger     *ledger.Ledger
	aggregator *aggregator.Aggregator
	hub        *events.Hub
	roles      storage.RoutingRoleStore

	governance string
	logger     *log.Logger
	nowMs      func() int64
}

// Options for creating an Engine.
type Options struct {
	Scheduler  *emission.Scheduler
	Router     *router.Router
	Gauge      *gauge.Controller
	Staking    *staking.BoostStaking
	Settlement *settlement.Settlement
	Vesting    *vesting.Ledger
	LockBook   *escrow.LockBook
	Ledger     *ledger.Ledger
	Aggregator *aggregator.Aggregator
	Hub        *events.Hub
	Roles      storage.RoutingRoleStore

	// Governance is the authority account for privileged operations.
	Governance string
	Logger     *log.Logger

	// NowMs overrides the clock, for tests.
	NowMs func() int64
}

// New creates an Engine.
func New(opts Options) *Engine {
	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[engine] ", log.LstdFlags)
	}
	return &Engine{
		scheduler:  opts.Scheduler,
		router:     opts.Router,
		gauge:      opts.Gauge,
		staking:    opts.Staking,
		settlement: opts.Settlement,
		vesting:    opts.Vesting,
		lockBook:   opts.LockBook,
		ledger:     opts.Ledger,
		aggregator: opts.Aggregator,
		hub:        opts.Hub,
		roles:      opts.Roles,
		governance: opts.Governance,
		logger:     logger,
		nowMs:      nowMs,
	}
}

func (e *Engine) requireGovernance(caller string) error {
	if caller != e.governance {
		return ErrUnauthorized
	}
	return nil
}

// requireRouting admits governance and routing-role holders.
func (e *Engine) requireRouting(ctx context.Context, caller string) error {
	if caller == e.governance {
		return nil
	}
	ok, err := e.roles.Has(ctx, caller)
	if err != nil {
		return fmt.Errorf("check routing role: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, kind string, period int, token, account, amount string) {
	if e.hub == nil {
		return
	}
	e.hub.Publish(ctx, domain.DistributionEvent{
		Kind:    kind,
		Period:  period,
		Token:   token,
		Account: account,
		Amount:  amount,
		AtMs:    e.nowMs(),
	})
}

// --- schedule and routing ---

// Budget returns the derived channel budget of a period. Read-only.
func (e *Engine) Budget(ctx context.Context, period int) (*domain.PeriodBudget, error) {
	return e.scheduler.Budget(ctx, period)
}

// CurrentPeriod returns the period whose epoch window contains now.
func (e *Engine) CurrentPeriod() int {
	period := e.gauge.CurrentPeriod()
	observability.UpdateCurrentPeriod(period)
	return period
}

// RoutePeriod routes one period's budget to the channel sinks. The caller
// must be governance or hold the routing role.
func (e *Engine) RoutePeriod(ctx context.Context, caller string, period int) (*domain.RoutingRecord, error) {
	if err := e.requireRouting(ctx, caller); err != nil {
		return nil, err
	}
	return e.routePeriod(ctx, period)
}

// routePeriod is the unauthenticated core; the engine's own schedule sweep
// uses it directly.
func (e *Engine) routePeriod(ctx context.Context, period int) (*domain.RoutingRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.router.Route(ctx, period)
	if err != nil {
		observability.RecordRoutingError(reasonOf(err))
		return nil, err
	}
	observability.RecordPeriodRouted()
	e.publish(ctx, domain.EventPeriodRouted, period, domain.TokenEmission, "", record.Total.String())
	return record, nil
}

// RouteDue routes every unrouted period whose epoch window has closed.
// Returns the records routed this call.
func (e *Engine) RouteDue(ctx context.Context) ([]*domain.RoutingRecord, error) {
	current := e.CurrentPeriod()
	last := current - 1
	if last > domain.LastPeriod {
		last = domain.LastPeriod
	}

	var routed []*domain.RoutingRecord
	for period := domain.FirstPeriod; period <= last; period++ {
		record, err := e.routePeriod(ctx, period)
		if errors.Is(err, router.ErrAlreadyRouted) {
			continue
		}
		if err != nil {
			return routed, fmt.Errorf("route period %d: %w", period, err)
		}
		routed = append(routed, record)
	}
	return routed, nil
}

// RoutingHistory returns all routing records ordered by period.
func (e *Engine) RoutingHistory(ctx context.Context) ([]*domain.RoutingRecord, error) {
	return e.router.History(ctx)
}

// GrantRoutingRole lets an account trigger period routing. Governance only.
func (e *Engine) GrantRoutingRole(ctx context.Context, caller, account string) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.Grant(ctx, account, e.nowMs())
}

// RevokeRoutingRole withdraws the routing role. Governance only.
func (e *Engine) RevokeRoutingRole(ctx context.Context, caller, account string) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.Revoke(ctx, account)
}

// RoutingRoles returns the accounts holding the routing role. Read-only.
func (e *Engine) RoutingRoles(ctx context.Context) ([]string, error) {
	return e.roles.List(ctx)
}

// SetSinks replaces the channel sinks. Governance only.
func (e *Engine) SetSinks(ctx context.Context, caller string, sinks *domain.ChannelSinks) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.SetSinks(ctx, sinks)
}

// SetLPSplit replaces the LP secondary split. Governance only.
func (e *Engine) SetLPSplit(ctx context.Context, caller string, pairsBps, poolBps int64) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.SetLPSplit(ctx, pairsBps, poolBps)
}

// FundRouter moves emission tokens from the treasury into the router
// account. Governance only.
func (e *Engine) FundRouter(ctx context.Context, caller string, amount math.Int) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Transfer(ctx, domain.TokenEmission, domain.AccountTreasury, domain.AccountRouter, amount)
}

// Mint credits new emission supply to the treasury. Governance only.
func (e *Engine) Mint(ctx context.Context, caller, token string, amount math.Int) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Mint(ctx, token, amount)
}

// Balance reads an account balance. Read-only.
func (e *Engine) Balance(ctx context.Context, account, token string) (math.Int, error) {
	return e.ledger.Balance(ctx, account, token)
}

// --- gauge ---

// Vote casts the caller's weight for one pool in the current period.
func (e *Engine) Vote(ctx context.Context, voter, poolID string, weightBps int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.gauge.Vote(ctx, e.gauge.CurrentPeriod(), voter, poolID, weightBps); err != nil {
		return err
	}
	observability.RecordVoteCast()
	return nil
}

// PoolWeights returns the absolute pool powers of a period. Read-only.
func (e *Engine) PoolWeights(ctx context.Context, period int) ([]domain.PoolWeight, error) {
	return e.gauge.PoolWeights(ctx, period)
}

// RelativeWeight returns a pool's share of a period in bps. Read-only.
func (e *Engine) RelativeWeight(ctx context.Context, period int, poolID string) (int64, error) {
	return e.gauge.RelativeWeight(ctx, period, poolID)
}

// --- staking ---

// Stake escrows governance tokens for boost.
func (e *Engine) Stake(ctx context.Context, owner string, amount math.Int) (*domain.StakePosition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.Stake(ctx, owner, amount)
}

// Unstake releases staked governance tokens after the minimum lock.
func (e *Engine) Unstake(ctx context.Context, owner string, amount math.Int) (*domain.StakePosition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staking.Unstake(ctx, owner, amount)
}

// Multiplier returns the owner's boost multiplier in bps. Read-only.
func (e *Engine) Multiplier(ctx context.Context, owner string) (int64, error) {
	return e.staking.Multiplier(ctx, owner)
}

// --- vote escrow ---

// Lock escrows governance tokens for voting power until lockEndMs.
func (e *Engine) Lock(ctx context.Context, owner string, amount math.Int, lockEndMs int64) (*domain.VoteEscrowLock, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockBook.Lock(ctx, owner, amount, lockEndMs)
}

// ExtendLock raises a lock's amount or end.
func (e *Engine) ExtendLock(ctx context.Context, owner string, id int64, addAmount math.Int, newEndMs int64) (*domain.VoteEscrowLock, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockBook.Extend(ctx, owner, id, addAmount, newEndMs)
}

// WithdrawLock destroys an expired lock.
func (e *Engine) WithdrawLock(ctx context.Context, owner string, id int64) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockBook.Withdraw(ctx, owner, id)
}

// VotingPower returns the owner's live escrow power. Read-only.
func (e *Engine) VotingPower(ctx context.Context, owner string) (math.Int, error) {
	return e.lockBook.VotingPowerAt(ctx, owner, e.nowMs())
}

// --- settlement ---

// UpdateRoot publishes the claim root for (period, token). Governance only.
func (e *Engine) UpdateRoot(ctx context.Context, caller string, period int, token, root string) error {
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.settlement.UpdateRoot(ctx, period, token, root); err != nil {
		return err
	}
	observability.RecordRootPublished()
	e.publish(ctx, domain.EventRootPublished, period, token, "", "")
	return nil
}

// Claim settles one reward leaf into vesting.
func (e *Engine) Claim(ctx context.Context, period int, token, beneficiary string, amount math.Int, proof [][32]byte) (*domain.ClaimRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	claim, err := e.settlement.Claim(ctx, period, token, beneficiary, amount, proof)
	if err != nil {
		observability.RecordClaimError(reasonOf(err))
		return nil, err
	}
	observability.RecordClaimSettled()
	e.publish(ctx, domain.EventClaimSettled, period, token, beneficiary, claim.Boosted.String())
	return claim, nil
}

// BuildDistribution aggregates a closed period into a claim tree.
func (e *Engine) BuildDistribution(ctx context.Context, period int) (*aggregator.Distribution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aggregator.BuildDistribution(ctx, period)
}

// --- vesting ---

// Claimable returns the amount the beneficiary can release now. Read-only.
func (e *Engine) Claimable(ctx context.Context, beneficiary string) (math.Int, error) {
	return e.vesting.Claimable(ctx, beneficiary, e.nowMs())
}

// ClaimVested releases everything vested so far.
func (e *Engine) ClaimVested(ctx context.Context, beneficiary string) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	released, err := e.vesting.Claim(ctx, beneficiary)
	if err != nil {
		return math.Int{}, err
	}
	observability.RecordVestReleased()
	e.publish(ctx, domain.EventVestReleased, 0, domain.TokenEmission, beneficiary, released.String())
	return released, nil
}

// EarlyExit releases the vested portion and forfeits the rest.
func (e *Engine) EarlyExit(ctx context.Context, beneficiary string) (released, forfeited math.Int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	released, forfeited, err = e.vesting.EarlyExit(ctx, beneficiary)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	observability.RecordEarlyExit()
	e.publish(ctx, domain.EventEarlyExit, 0, domain.TokenEmission, beneficiary, forfeited.String())
	return released, forfeited, nil
}

// reasonOf maps known failures to a stable metrics label.
func reasonOf(err error) string {
	switch {
	case errors.Is(err, router.ErrAlreadyRouted):
		return "already_routed"
	case errors.Is(err, router.ErrSinkNotConfigured):
		return "sinks_not_configured"
	case errors.Is(err, router.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, settlement.ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, settlement.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, settlement.ErrRootNotSet):
		return "root_not_set"
	case errors.Is(err, emission.ErrInvalidPeriod):
		return "invalid_period"
	default:
		return "other"
	}
}
