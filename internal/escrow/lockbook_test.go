package escrow

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage/memory"
)

const dayMs = int64(24 * 60 * 60 * 1000)

type lockFixture struct {
	book     *LockBook
	accounts *memory.AccountStore
	now      int64
}

func newLockFixture(t *testing.T) *lockFixture {
	t.Helper()

	f := &lockFixture{
		accounts: memory.NewAccountStore(),
		now:      1704067200000,
	}
	f.book = NewLockBook(memory.NewLockStore(), f.accounts, func() int64 { return f.now })
	return f
}

func (f *lockFixture) fund(t *testing.T, owner string, amount math.Int) {
	t.Helper()
	if err := f.accounts.Credit(context.Background(), owner, domain.TokenGov, amount); err != nil {
		t.Fatalf("fund %s: %v", owner, err)
	}
}

func TestLock_EscrowsTokens(t *testing.T) {
	f := newLockFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", math.NewInt(1000))

	lock, err := f.book.Lock(ctx, "alice", math.NewInt(600), f.now+MaxLockMs)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if lock.ID == 0 {
		t.Errorf("Lock should be assigned an ID")
	}

	left, _ := f.accounts.Balance(ctx, "alice", domain.TokenGov)
	if !left.Equal(math.NewInt(400)) {
		t.Errorf("Expected 400 left, got %s", left)
	}
	escrowed, _ := f.accounts.Balance(ctx, domain.AccountVoteEscrow, domain.TokenGov)
	if !escrowed.Equal(math.NewInt(600)) {
		t.Errorf("Expected 600 escrowed, got %s", escrowed)
	}
}

func TestLock_RejectsBadEnds(t *testing.T) {
	f := newLockFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", math.NewInt(1000))

	if _, err := f.book.Lock(ctx, "alice", math.NewInt(100), f.now); !errors.Is(err, ErrInvalidLockEnd) {
		t.Errorf("Lock ending now: expected ErrInvalidLockEnd, got %v", err)
	}
	if _, err := f.book.Lock(ctx, "alice", math.NewInt(100), f.now-1); !errors.Is(err, ErrInvalidLockEnd) {
		t.Errorf("Lock ending in the past: expected ErrInvalidLockEnd, got %v", err)
	}
	if _, err := f.book.Lock(ctx, "alice", math.NewInt(100), f.now+MaxLockMs+1); !errors.Is(err, ErrInvalidLockEnd) {
		t.Errorf("Lock beyond max duration: expected ErrInvalidLockEnd, got %v", err)
	}
}

func TestVotingPower_LinearDecay(t *testing.T) {
	f := newLockFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", math.NewInt(1_000_000))

	// A max-duration lock counts its full amount at creation.
	if _, err := f.book.Lock(ctx, "alice", math.NewInt(1_000_000), f.now+MaxLockMs); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	power, err := f.book.VotingPowerAt(ctx, "alice", f.now)
	if err != nil {
		t.Fatalf("VotingPowerAt failed: %v", err)
	}
	if !power.Equal(math.NewInt(1_000_000)) {
		t.Errorf("Full-duration power: expected 1000000, got %s", power)
	}

	// Halfway through, half the power.
	power, _ = f.book.VotingPowerAt(ctx, "alice", f.now+MaxLockMs/2)
	if !power.Equal(math.NewInt(500_000)) {
		t.Errorf("Half-duration power: expected 500000, got %s", power)
	}

	// At and after expiry, zero.
	power, _ = f.book.VotingPowerAt(ctx, "alice", f.now+MaxLockMs)
	if !power.IsZero() {
		t.Errorf("Power at expiry: expected 0, got %s", power)
	}
}

func TestVotingPower_SumsLocks(t *testing.T) {
	f := newLockFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", math.NewInt(2_000_000))

	if _, err := f.book.Lock(ctx, "alice", math.NewInt(1_000_000), f.now+MaxLockMs); err != nil {
		t.Fatalf("First lock failed: %v", err)
	}
	if _, err := f.book.Lock(ctx, "alice", math.NewInt(1_000_000), f.now+MaxLockMs/2); err != nil {
		t.Fatalf("Second lock failed: %v", err)
	}

	power, err := f.book.VotingPowerAt(ctx, "alice", f.now)
	if err != nil {
		t.Fatalf("VotingPowerAt failed: %v", err)
	}
	if !power.Equal(math.NewInt(1_500_000)) {
		t.Errorf("Expected 1500000, got %s", power)
	}
}

func TestExtend_ForwardOnly(t *testing.T) {
	f := newLockFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", math.NewInt(1000))

	lock, err := f.book.Lock(ctx, "alice", math.NewInt(500), f.now+365*dayMs)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	if _, err := f.book.Extend(ctx, "alice", lock.ID, math.Int{}, f.now+100*dayMs); !errors.Is(err, ErrInvalidLockEnd) {
		t.Errorf("Shortening the lock: expected ErrInvalidLockEnd, got %v", err)
	}

	extended, err := f.book.Extend(ctx, "alice", lock.ID, math.NewInt(250), f.now+2*365*dayMs)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if !extended.Amount.Equal(math.NewInt(750)) {
		t.Errorf("Expected amount 750, got %s", extended.Amount)
	}
	if extended.LockEndMs != f.now+2*365*dayMs {
		t.Errorf("Lock end not moved: %d", extended.LockEndMs)
	}

	if _, err := f.book.Extend(ctx, "mallory", lock.ID, math.NewInt(1), 0); !errors.Is(err, ErrNotLockOwner) {
		t.Errorf("Foreign extend: expected ErrNotLockOwner, got %v", err)
	}
}

func TestWithdraw_OnlyAfterExpiry(t *testing.T) {
	f := newLockFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", math.NewInt(1000))

	lock, err := f.book.Lock(ctx, "alice", math.NewInt(1000), f.now+30*dayMs)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	if _, err := f.book.Withdraw(ctx, "alice", lock.ID); !errors.Is(err, ErrLockNotExpired) {
		t.Fatalf("Early withdraw: expected ErrLockNotExpired, got %v", err)
	}

	f.now += 30 * dayMs
	amount, err := f.book.Withdraw(ctx, "alice", lock.ID)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !amount.Equal(math.NewInt(1000)) {
		t.Errorf("Expected 1000 returned, got %s", amount)
	}

	back, _ := f.accounts.Balance(ctx, "alice", domain.TokenGov)
	if !back.Equal(math.NewInt(1000)) {
		t.Errorf("Balance not restored: %s", back)
	}

	// The lock is gone; its power no longer counts.
	power, _ := f.book.VotingPowerAt(ctx, "alice", f.now-1)
	if !power.IsZero() {
		t.Errorf("Withdrawn lock still has power: %s", power)
	}
}
