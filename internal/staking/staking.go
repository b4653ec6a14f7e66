// Package staking implements boost staking: governance tokens locked in the
// staking escrow raise the owner's claim multiplier up to 1.5x.
package staking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// Multiplier bounds in basis points.
const (
	BaseMultiplierBps = 10000
	MaxMultiplierBps  = 15000
)

// DefaultMinLockMs is the minimum time between a stake and an unstake.
// The gap makes a same-transaction stake, boosted claim, unstake loop
// impossible.
const DefaultMinLockMs int64 = 7 * 24 * 60 * 60 * 1000

// BoostStaking errors.
var (
	// ErrInsufficientStake is returned when unstaking more than held.
	ErrInsufficientStake = errors.New("unstake exceeds staked amount")

	// ErrLockNotExpired is returned when unstaking before the minimum
	// lock has elapsed.
	ErrLockNotExpired = errors.New("stake lock not expired")
)

// BoostStaking manages stake positions and the claim multiplier.
type BoostStaking struct {
	stakes   storage.StakeStore
	accounts storage.AccountStore

	// capAmount is the stake at which the multiplier saturates.
	capAmount math.Int
	minLockMs int64
	nowMs     func() int64
}

// Options for creating a BoostStaking.
type Options struct {
	Stakes   storage.StakeStore
	Accounts storage.AccountStore

	// CapAmount is the stake reaching the 1.5x ceiling. Required.
	CapAmount math.Int

	// MinLockMs overrides the minimum lock, 0 for the default.
	MinLockMs int64

	// NowMs overrides the clock, for tests.
	NowMs func() int64
}

// New creates a BoostStaking.
func New(opts Options) *BoostStaking {
	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	minLock := opts.MinLockMs
	if minLock == 0 {
		minLock = DefaultMinLockMs
	}
	return &BoostStaking{
		stakes:    opts.Stakes,
		accounts:  opts.Accounts,
		capAmount: opts.CapAmount,
		minLockMs: minLock,
		nowMs:     nowMs,
	}
}

// Stake moves amount of the governance token into the staking escrow.
// Any top-up resets the minimum-lock clock for the whole position.
func (b *BoostStaking) Stake(ctx context.Context, owner string, amount math.Int) (*domain.StakePosition, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, storage.ErrInvalidInput
	}

	err := b.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: domain.TokenGov, From: owner, To: domain.AccountStakingEscrow, Amount: amount},
	})
	if err != nil {
		return nil, fmt.Errorf("escrow stake: %w", err)
	}

	position, err := b.stakes.Get(ctx, owner)
	if errors.Is(err, storage.ErrNotFound) {
		position = &domain.StakePosition{Owner: owner, Amount: math.ZeroInt()}
	} else if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}

	position.Amount = position.Amount.Add(amount)
	position.StartMs = b.nowMs()
	if err := b.stakes.Put(ctx, position); err != nil {
		return nil, fmt.Errorf("store position: %w", err)
	}
	return position, nil
}

// Unstake returns amount of the governance token to the owner. Requires the
// minimum lock to have elapsed since the last top-up.
func (b *BoostStaking) Unstake(ctx context.Context, owner string, amount math.Int) (*domain.StakePosition, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, storage.ErrInvalidInput
	}

	position, err := b.stakes.Get(ctx, owner)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInsufficientStake
	}
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}
	if amount.GT(position.Amount) {
		return nil, ErrInsufficientStake
	}
	if b.nowMs() < position.StartMs+b.minLockMs {
		return nil, ErrLockNotExpired
	}

	err = b.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: domain.TokenGov, From: domain.AccountStakingEscrow, To: owner, Amount: amount},
	})
	if err != nil {
		return nil, fmt.Errorf("release stake: %w", err)
	}

	position.Amount = position.Amount.Sub(amount)
	if position.Amount.IsZero() {
		if err := b.stakes.Delete(ctx, owner); err != nil {
			return nil, fmt.Errorf("delete position: %w", err)
		}
		return position, nil
	}
	if err := b.stakes.Put(ctx, position); err != nil {
		return nil, fmt.Errorf("store position: %w", err)
	}
	return position, nil
}

// Multiplier returns the owner's claim multiplier in bps, read from the
// position as stored right now. Linear from 10000 at zero stake to 15000 at
// the cap, clamped above it.
func (b *BoostStaking) Multiplier(ctx context.Context, owner string) (int64, error) {
	position, err := b.stakes.Get(ctx, owner)
	if errors.Is(err, storage.ErrNotFound) {
		return BaseMultiplierBps, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load position: %w", err)
	}

	if position.Amount.GTE(b.capAmount) {
		return MaxMultiplierBps, nil
	}
	bonus := position.Amount.MulRaw(MaxMultiplierBps - BaseMultiplierBps).Quo(b.capAmount)
	return BaseMultiplierBps + bonus.Int64(), nil
}

// Position returns the owner's stored position, or storage.ErrNotFound.
func (b *BoostStaking) Position(ctx context.Context, owner string) (*domain.StakePosition, error) {
	return b.stakes.Get(ctx, owner)
}
