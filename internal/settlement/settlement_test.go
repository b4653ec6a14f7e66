package settlement

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"testing"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/merkle"
	"emission-engine/internal/staking"
	"emission-engine/internal/storage"
	"emission-engine/internal/storage/memory"
	"emission-engine/internal/vesting"
)

type settleFixture struct {
	settlement *Settlement
	staking    *staking.BoostStaking
	vesting    *vesting.Ledger
	accounts   *memory.AccountStore
	now        int64
}

func newSettleFixture(t *testing.T) *settleFixture {
	t.Helper()

	f := &settleFixture{
		accounts: memory.NewAccountStore(),
		now:      1704067200000,
	}
	nowMs := func() int64 { return f.now }

	f.staking = staking.New(staking.Options{
		Stakes:    memory.NewStakeStore(),
		Accounts:  f.accounts,
		CapAmount: math.NewInt(1_000_000),
		NowMs:     nowMs,
	})
	f.vesting = vesting.NewLedger(memory.NewVestingStore(), f.accounts, nowMs)
	f.settlement = New(Options{
		Roots:   memory.NewRootStore(),
		Claims:  memory.NewClaimStore(),
		Staking: f.staking,
		Vesting: f.vesting,
		Logger:  log.New(io.Discard, "", 0),
		NowMs:   nowMs,
	})

	err := f.accounts.Credit(context.Background(), domain.AccountTreasury, domain.TokenEmission, math.NewIntWithDecimal(1_000_000, 18))
	if err != nil {
		t.Fatalf("fund treasury: %v", err)
	}
	return f
}

// buildDistribution publishes a tree over the given amounts and returns it.
func (f *settleFixture) buildDistribution(t *testing.T, period int, amounts map[string]int64) *merkle.Tree {
	t.Helper()

	beneficiaries := make([]string, 0, len(amounts))
	for b := range amounts {
		beneficiaries = append(beneficiaries, b)
	}
	// Leaf index follows beneficiary order.
	sort.Strings(beneficiaries)
	leaves := make([][32]byte, 0, len(amounts))
	for _, b := range beneficiaries {
		leaves = append(leaves, merkle.LeafHash(b, period, domain.TokenEmission, math.NewInt(amounts[b])))
	}

	tree, err := merkle.NewTree(leaves)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	err = f.settlement.UpdateRoot(context.Background(), period, domain.TokenEmission, merkle.EncodeHash(tree.Root()))
	if err != nil {
		t.Fatalf("publish root: %v", err)
	}
	return tree
}

func TestClaim_VestsBoostedAmount(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	// Half-cap stake reads 1.25x.
	if err := f.accounts.Credit(ctx, "alice", domain.TokenGov, math.NewInt(500_000)); err != nil {
		t.Fatalf("fund alice: %v", err)
	}
	if _, err := f.staking.Stake(ctx, "alice", math.NewInt(500_000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	tree := f.buildDistribution(t, 5, map[string]int64{"alice": 10_000, "bob": 4_000})
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}

	claim, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", math.NewInt(10_000), proof)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claim.Boosted.Equal(math.NewInt(12_500)) {
		t.Errorf("Boosted: expected 12500, got %s", claim.Boosted)
	}

	schedule, err := f.vesting.Schedule(ctx, "alice")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !schedule.Total.Equal(math.NewInt(12_500)) {
		t.Errorf("Vested total: expected 12500, got %s", schedule.Total)
	}

	// No liquid payout happened.
	liquid, _ := f.accounts.Balance(ctx, "alice", domain.TokenEmission)
	if !liquid.IsZero() {
		t.Errorf("Claim paid out liquid tokens: %s", liquid)
	}
}

func TestClaim_UnstakedReadsBase(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	tree := f.buildDistribution(t, 5, map[string]int64{"bob": 4_000, "carol": 1})
	proof, _ := tree.Proof(0)

	claim, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "bob", math.NewInt(4_000), proof)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claim.Boosted.Equal(math.NewInt(4_000)) {
		t.Errorf("No stake should read 1.0x, got %s", claim.Boosted)
	}
}

func TestClaim_FailureModes(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	amount := math.NewInt(10_000)
	if _, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", amount, nil); !errors.Is(err, ErrRootNotSet) {
		t.Errorf("No root: expected ErrRootNotSet, got %v", err)
	}

	tree := f.buildDistribution(t, 5, map[string]int64{"alice": 10_000, "bob": 4_000})
	proof, _ := tree.Proof(0)

	// Wrong amount breaks the leaf.
	if _, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", math.NewInt(99_999), proof); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("Forged amount: expected ErrInvalidProof, got %v", err)
	}
	// Wrong period misses the root.
	if _, err := f.settlement.Claim(ctx, 6, domain.TokenEmission, "alice", amount, proof); !errors.Is(err, ErrRootNotSet) {
		t.Errorf("Wrong period: expected ErrRootNotSet, got %v", err)
	}

	if _, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", amount, proof); err != nil {
		t.Fatalf("Valid claim failed: %v", err)
	}
	if _, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", amount, proof); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("Repeat claim: expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestClaim_FailedVestReleasesLeaf(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	// Empty the treasury so the vest transfer cannot be funded.
	balance, err := f.accounts.Balance(ctx, domain.AccountTreasury, domain.TokenEmission)
	if err != nil {
		t.Fatalf("read treasury balance: %v", err)
	}
	err = f.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: domain.TokenEmission, From: domain.AccountTreasury, To: "drain", Amount: balance},
	})
	if err != nil {
		t.Fatalf("drain treasury: %v", err)
	}

	tree := f.buildDistribution(t, 5, map[string]int64{"alice": 10_000, "bob": 4_000})
	proof, _ := tree.Proof(0)
	amount := math.NewInt(10_000)

	if _, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", amount, proof); !errors.Is(err, storage.ErrInsufficientFunds) {
		t.Fatalf("Unfunded treasury: expected ErrInsufficientFunds, got %v", err)
	}

	// The failure must not consume the leaf: after funding, the same claim
	// settles and vests the full amount.
	if err := f.accounts.Credit(ctx, domain.AccountTreasury, domain.TokenEmission, math.NewInt(1_000_000)); err != nil {
		t.Fatalf("refund treasury: %v", err)
	}
	claim, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", amount, proof)
	if err != nil {
		t.Fatalf("Retry after funding failed: %v", err)
	}
	if !claim.Boosted.Equal(amount) {
		t.Errorf("Boosted: expected %s, got %s", amount, claim.Boosted)
	}

	schedule, err := f.vesting.Schedule(ctx, "alice")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !schedule.Total.Equal(amount) {
		t.Errorf("Vested total: expected %s, got %s", amount, schedule.Total)
	}

	// Only the settled claim counts toward the root freeze.
	record, err := f.settlement.Root(ctx, 5, domain.TokenEmission)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if record.Claims != 1 {
		t.Errorf("Claims counter: expected 1, got %d", record.Claims)
	}
}

func TestUpdateRoot_FrozenAfterFirstClaim(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	tree := f.buildDistribution(t, 5, map[string]int64{"alice": 10_000, "bob": 4_000})

	// Replacing before any claim is allowed.
	other, _ := merkle.NewTree([][32]byte{merkle.LeafHash("alice", 5, domain.TokenEmission, math.NewInt(1))})
	if err := f.settlement.UpdateRoot(ctx, 5, domain.TokenEmission, merkle.EncodeHash(other.Root())); err != nil {
		t.Fatalf("Pre-claim replacement failed: %v", err)
	}

	// Restore and settle one claim.
	if err := f.settlement.UpdateRoot(ctx, 5, domain.TokenEmission, merkle.EncodeHash(tree.Root())); err != nil {
		t.Fatalf("Restore root failed: %v", err)
	}
	proof, _ := tree.Proof(0)
	if _, err := f.settlement.Claim(ctx, 5, domain.TokenEmission, "alice", math.NewInt(10_000), proof); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	err := f.settlement.UpdateRoot(ctx, 5, domain.TokenEmission, merkle.EncodeHash(other.Root()))
	if !errors.Is(err, ErrRootFrozen) {
		t.Errorf("Post-claim replacement: expected ErrRootFrozen, got %v", err)
	}

	// Another (period, token) pair is unaffected.
	if err := f.settlement.UpdateRoot(ctx, 6, domain.TokenEmission, merkle.EncodeHash(other.Root())); err != nil {
		t.Errorf("Other period should accept a root, got %v", err)
	}
}

func TestUpdateRoot_RejectsMalformed(t *testing.T) {
	f := newSettleFixture(t)

	if err := f.settlement.UpdateRoot(context.Background(), 5, domain.TokenEmission, "not-hex"); err == nil {
		t.Errorf("Malformed root accepted")
	}
}
