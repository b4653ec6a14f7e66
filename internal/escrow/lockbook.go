// Package escrow provides the vote-escrow collaborator consumed by the
// gauge controller. The engine only depends on the PowerSource interface;
// LockBook is the reference implementation over the lock store.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// MaxLockMs is the maximum lock duration. A lock of MaxLockMs counts its
// full amount as voting power and decays linearly to zero at expiry.
const MaxLockMs int64 = 4 * 365 * 24 * 60 * 60 * 1000

// LockBook errors.
var (
	// ErrLockNotExpired is returned when withdrawing before lock end.
	ErrLockNotExpired = errors.New("lock not expired")

	// ErrInvalidLockEnd is returned for lock ends in the past or beyond
	// the maximum lock duration.
	ErrInvalidLockEnd = errors.New("invalid lock end")

	// ErrNotLockOwner is returned when acting on another owner's lock.
	ErrNotLockOwner = errors.New("not the lock owner")
)

// PowerSource exposes vote-escrow voting power to the gauge controller.
type PowerSource interface {
	// VotingPowerAt returns the owner's total voting power at the given
	// wall-clock instant.
	VotingPowerAt(ctx context.Context, owner string, atMs int64) (math.Int, error)
}

// LockBook manages vote-escrow locks backed by the lock store and the token
// ledger.
type LockBook struct {
	locks    storage.LockStore
	accounts storage.AccountStore
	nowMs    func() int64
}

// NewLockBook creates a LockBook. nowMs may be nil to use the wall clock.
func NewLockBook(locks storage.LockStore, accounts storage.AccountStore, nowMs func() int64) *LockBook {
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	return &LockBook{locks: locks, accounts: accounts, nowMs: nowMs}
}

// Lock escrows amount of the governance token until lockEndMs.
func (b *LockBook) Lock(ctx context.Context, owner string, amount math.Int, lockEndMs int64) (*domain.VoteEscrowLock, error) {
	now := b.nowMs()
	if lockEndMs <= now || lockEndMs-now > MaxLockMs {
		return nil, ErrInvalidLockEnd
	}
	if amount.IsNil() || !amount.IsPositive() {
		return nil, storage.ErrInvalidInput
	}

	err := b.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: domain.TokenGov, From: owner, To: domain.AccountVoteEscrow, Amount: amount},
	})
	if err != nil {
		return nil, fmt.Errorf("escrow lock amount: %w", err)
	}

	lock := &domain.VoteEscrowLock{
		Owner:       owner,
		Amount:      amount,
		LockEndMs:   lockEndMs,
		CreatedAtMs: now,
	}
	if err := b.locks.Insert(ctx, lock); err != nil {
		return nil, fmt.Errorf("store lock: %w", err)
	}
	return lock, nil
}

// Extend increases a lock's amount, its end, or both. The end may only move
// forward.
func (b *LockBook) Extend(ctx context.Context, owner string, id int64, addAmount math.Int, newEndMs int64) (*domain.VoteEscrowLock, error) {
	lock, err := b.locks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lock.Owner != owner {
		return nil, ErrNotLockOwner
	}

	now := b.nowMs()
	if newEndMs != 0 {
		if newEndMs < lock.LockEndMs || newEndMs-now > MaxLockMs {
			return nil, ErrInvalidLockEnd
		}
		lock.LockEndMs = newEndMs
	}

	if !addAmount.IsNil() && addAmount.IsPositive() {
		err := b.accounts.TransferBatch(ctx, []domain.Transfer{
			{Token: domain.TokenGov, From: owner, To: domain.AccountVoteEscrow, Amount: addAmount},
		})
		if err != nil {
			return nil, fmt.Errorf("escrow additional amount: %w", err)
		}
		lock.Amount = lock.Amount.Add(addAmount)
	}

	if err := b.locks.Update(ctx, lock); err != nil {
		return nil, fmt.Errorf("update lock: %w", err)
	}
	return lock, nil
}

// Withdraw destroys an expired lock and returns its tokens to the owner.
func (b *LockBook) Withdraw(ctx context.Context, owner string, id int64) (math.Int, error) {
	lock, err := b.locks.Get(ctx, id)
	if err != nil {
		return math.Int{}, err
	}
	if lock.Owner != owner {
		return math.Int{}, ErrNotLockOwner
	}
	if b.nowMs() < lock.LockEndMs {
		return math.Int{}, ErrLockNotExpired
	}

	err = b.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: domain.TokenGov, From: domain.AccountVoteEscrow, To: owner, Amount: lock.Amount},
	})
	if err != nil {
		return math.Int{}, fmt.Errorf("release lock amount: %w", err)
	}
	if err := b.locks.Delete(ctx, id); err != nil {
		return math.Int{}, fmt.Errorf("delete lock: %w", err)
	}
	return lock.Amount, nil
}

// VotingPowerAt returns the owner's aggregate decayed power:
// power = amount * (lockEnd - at) / MaxLock per live lock.
func (b *LockBook) VotingPowerAt(ctx context.Context, owner string, atMs int64) (math.Int, error) {
	locks, err := b.locks.GetByOwner(ctx, owner)
	if err != nil {
		return math.Int{}, fmt.Errorf("load locks: %w", err)
	}

	power := math.ZeroInt()
	for _, lock := range locks {
		if atMs >= lock.LockEndMs {
			continue
		}
		power = power.Add(lock.Amount.MulRaw(lock.LockEndMs - atMs).QuoRaw(MaxLockMs))
	}
	return power, nil
}

// Verify interface compliance at compile time.
var _ PowerSource = (*LockBook)(nil)
