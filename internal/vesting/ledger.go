// Package vesting implements the linear vesting ledger settled claims are
// handed to. Rewards release over a fixed duration; an early exit pays the
// vested portion and forfeits the rest.
package vesting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// DurationMs is the full vesting duration.
const DurationMs int64 = 365 * 24 * 60 * 60 * 1000

// Ledger errors.
var (
	// ErrNothingToVest is returned for non-positive vest amounts.
	ErrNothingToVest = errors.New("nothing to vest")

	// ErrNothingClaimable is returned when no vested amount is releasable.
	ErrNothingClaimable = errors.New("nothing claimable")

	// ErrNoSchedule is returned when the beneficiary has no vesting
	// schedule.
	ErrNoSchedule = errors.New("no vesting schedule")
)

// Ledger manages vesting schedules over the vesting pool account.
type Ledger struct {
	schedules storage.VestingStore
	accounts  storage.AccountStore
	nowMs     func() int64
}

// NewLedger creates a Ledger. nowMs may be nil to use the wall clock.
func NewLedger(schedules storage.VestingStore, accounts storage.AccountStore, nowMs func() int64) *Ledger {
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	return &Ledger{schedules: schedules, accounts: accounts, nowMs: nowMs}
}

// VestFor adds amount to the beneficiary's schedule and funds the vesting
// pool from the treasury. Only the settlement path may call this; the engine
// enforces that restriction. A later contribution keeps the earliest start,
// so merged schedules never vest slower than their oldest deposit.
func (l *Ledger) VestFor(ctx context.Context, beneficiary string, amount math.Int) (*domain.VestingSchedule, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, ErrNothingToVest
	}

	err := l.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: domain.TokenEmission, From: domain.AccountTreasury, To: domain.AccountVestingPool, Amount: amount},
	})
	if err != nil {
		return nil, fmt.Errorf("fund vesting pool: %w", err)
	}

	now := l.nowMs()
	schedule, err := l.schedules.Get(ctx, beneficiary)
	if errors.Is(err, storage.ErrNotFound) {
		schedule = &domain.VestingSchedule{
			Beneficiary: beneficiary,
			Total:       math.ZeroInt(),
			Claimed:     math.ZeroInt(),
			StartMs:     now,
		}
	} else if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	schedule.Total = schedule.Total.Add(amount)
	if err := l.schedules.Put(ctx, schedule); err != nil {
		return nil, fmt.Errorf("store schedule: %w", err)
	}
	return schedule, nil
}

// Claimable returns the amount releasable at time atMs, monotone in atMs.
func (l *Ledger) Claimable(ctx context.Context, beneficiary string, atMs int64) (math.Int, error) {
	schedule, err := l.schedules.Get(ctx, beneficiary)
	if errors.Is(err, storage.ErrNotFound) {
		return math.ZeroInt(), nil
	}
	if err != nil {
		return math.Int{}, fmt.Errorf("load schedule: %w", err)
	}
	return vestedAt(schedule, atMs).Sub(schedule.Claimed), nil
}

// Claim releases everything vested so far to the beneficiary.
func (l *Ledger) Claim(ctx context.Context, beneficiary string) (math.Int, error) {
	schedule, err := l.schedules.Get(ctx, beneficiary)
	if errors.Is(err, storage.ErrNotFound) {
		return math.Int{}, ErrNoSchedule
	}
	if err != nil {
		return math.Int{}, fmt.Errorf("load schedule: %w", err)
	}

	releasable := vestedAt(schedule, l.nowMs()).Sub(schedule.Claimed)
	if !releasable.IsPositive() {
		return math.Int{}, ErrNothingClaimable
	}

	err = l.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: domain.TokenEmission, From: domain.AccountVestingPool, To: beneficiary, Amount: releasable},
	})
	if err != nil {
		return math.Int{}, fmt.Errorf("release vested amount: %w", err)
	}

	schedule.Claimed = schedule.Claimed.Add(releasable)
	if schedule.Outstanding().IsZero() {
		if err := l.schedules.Delete(ctx, beneficiary); err != nil {
			return math.Int{}, fmt.Errorf("delete schedule: %w", err)
		}
		return releasable, nil
	}
	if err := l.schedules.Put(ctx, schedule); err != nil {
		return math.Int{}, fmt.Errorf("store schedule: %w", err)
	}
	return releasable, nil
}

// EarlyExit releases the vested-to-date portion and forfeits the unvested
// remainder to the forfeit pool, closing the schedule. Returns (released,
// forfeited).
func (l *Ledger) EarlyExit(ctx context.Context, beneficiary string) (math.Int, math.Int, error) {
	schedule, err := l.schedules.Get(ctx, beneficiary)
	if errors.Is(err, storage.ErrNotFound) {
		return math.Int{}, math.Int{}, ErrNoSchedule
	}
	if err != nil {
		return math.Int{}, math.Int{}, fmt.Errorf("load schedule: %w", err)
	}

	releasable := vestedAt(schedule, l.nowMs()).Sub(schedule.Claimed)
	forfeited := schedule.Total.Sub(vestedAt(schedule, l.nowMs()))

	var transfers []domain.Transfer
	if releasable.IsPositive() {
		transfers = append(transfers, domain.Transfer{
			Token: domain.TokenEmission, From: domain.AccountVestingPool, To: beneficiary, Amount: releasable,
		})
	}
	if forfeited.IsPositive() {
		transfers = append(transfers, domain.Transfer{
			Token: domain.TokenEmission, From: domain.AccountVestingPool, To: domain.AccountForfeitPool, Amount: forfeited,
		})
	}
	if len(transfers) > 0 {
		if err := l.accounts.TransferBatch(ctx, transfers); err != nil {
			return math.Int{}, math.Int{}, fmt.Errorf("settle early exit: %w", err)
		}
	}

	if err := l.schedules.Delete(ctx, beneficiary); err != nil {
		return math.Int{}, math.Int{}, fmt.Errorf("delete schedule: %w", err)
	}
	return releasable, forfeited, nil
}

// Schedule returns the stored schedule, or storage.ErrNotFound.
func (l *Ledger) Schedule(ctx context.Context, beneficiary string) (*domain.VestingSchedule, error) {
	return l.schedules.Get(ctx, beneficiary)
}

// vestedAt returns total * min(1, elapsed/duration).
func vestedAt(s *domain.VestingSchedule, atMs int64) math.Int {
	elapsed := atMs - s.StartMs
	if elapsed <= 0 {
		return math.ZeroInt()
	}
	if elapsed >= DurationMs {
		return s.Total
	}
	return s.Total.MulRaw(elapsed).QuoRaw(DurationMs)
}
