package aggregator

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/emission"
	"emission-engine/internal/gauge"
	"emission-engine/internal/merkle"
	"emission-engine/internal/router"
	"emission-engine/internal/settlement"
	"emission-engine/internal/staking"
	"emission-engine/internal/storage/memory"
	"emission-engine/internal/vesting"
)

const genesisMs = int64(1704067200000)

// fixedPower is a PowerSource with static per-owner power.
type fixedPower map[string]int64

func (p fixedPower) VotingPowerAt(_ context.Context, owner string, _ int64) (math.Int, error) {
	return math.NewInt(p[owner]), nil
}

type aggFixture struct {
	aggregator *Aggregator
	gauge      *gauge.Controller
	router     *router.Router
	settlement *settlement.Settlement
	scheduler  *emission.Scheduler
	accounts   *memory.AccountStore
	now        int64
}

func newAggFixture(t *testing.T, power fixedPower) *aggFixture {
	t.Helper()

	f := &aggFixture{
		accounts: memory.NewAccountStore(),
		now:      genesisMs,
	}
	nowMs := func() int64 { return f.now }
	quiet := log.New(io.Discard, "", 0)

	f.scheduler = emission.NewScheduler(memory.NewParamStore())
	f.gauge = gauge.New(memory.NewGaugeVoteStore(), power, genesisMs, nowMs)
	routed := memory.NewRoutedPeriodStore()
	f.router = router.New(router.Options{
		Scheduler: f.scheduler,
		SinkStore: memory.NewSinkStore(),
		Routed:    routed,
		Journal:   memory.NewRoutingJournal(routed, f.accounts),
		Accounts:  f.accounts,
		Logger:    quiet,
		NowMs:     nowMs,
	})
	boost := staking.New(staking.Options{
		Stakes:    memory.NewStakeStore(),
		Accounts:  f.accounts,
		CapAmount: math.NewInt(1_000_000),
		NowMs:     nowMs,
	})
	f.settlement = settlement.New(settlement.Options{
		Roots:   memory.NewRootStore(),
		Claims:  memory.NewClaimStore(),
		Staking: boost,
		Vesting: vesting.NewLedger(memory.NewVestingStore(), f.accounts, nowMs),
		Logger:  quiet,
		NowMs:   nowMs,
	})
	f.aggregator = New(f.gauge, f.router, f.settlement, quiet)
	return f
}

// routePeriod configures sinks, funds the router and routes one period.
func (f *aggFixture) routePeriod(t *testing.T, period int) *domain.RoutingRecord {
	t.Helper()
	ctx := context.Background()

	err := f.router.SetSinks(ctx, &domain.ChannelSinks{
		Debt:          "debt-sink",
		LPPairs:       "lp-pairs-sink",
		StabilityPool: "stability-sink",
		Eco:           "eco-sink",
	})
	if err != nil {
		t.Fatalf("SetSinks failed: %v", err)
	}

	budget, err := f.scheduler.Budget(ctx, period)
	if err != nil {
		t.Fatalf("Budget failed: %v", err)
	}
	if err := f.accounts.Credit(ctx, domain.AccountRouter, domain.TokenEmission, budget.Total); err != nil {
		t.Fatalf("fund router: %v", err)
	}

	record, err := f.router.Route(ctx, period)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	return record
}

func TestBuildDistribution_SplitsByWeight(t *testing.T) {
	f := newAggFixture(t, fixedPower{"alice": 3000, "bob": 1000})
	ctx := context.Background()

	record := f.routePeriod(t, 1)
	if err := f.gauge.Vote(ctx, 1, "alice", "pool-a", 10000); err != nil {
		t.Fatalf("alice vote failed: %v", err)
	}
	if err := f.gauge.Vote(ctx, 1, "bob", "pool-b", 10000); err != nil {
		t.Fatalf("bob vote failed: %v", err)
	}

	// Close the period before aggregating.
	f.now = genesisMs + gauge.EpochMs

	dist, err := f.aggregator.BuildDistribution(ctx, 1)
	if err != nil {
		t.Fatalf("BuildDistribution failed: %v", err)
	}
	if len(dist.Allocations) != 2 {
		t.Fatalf("Expected 2 allocations, got %d", len(dist.Allocations))
	}

	// 3:1 power split of the LP pairs amount; the last pool absorbs the
	// remainder, so the parts reconstruct the channel exactly.
	sum := math.ZeroInt()
	for _, a := range dist.Allocations {
		amount, ok := math.NewIntFromString(a.Amount)
		if !ok {
			t.Fatalf("Bad amount %q", a.Amount)
		}
		sum = sum.Add(amount)
	}
	if !sum.Equal(record.LPPairs) {
		t.Errorf("Allocations sum %s, routed %s", sum, record.LPPairs)
	}

	want := record.LPPairs.MulRaw(3).QuoRaw(4)
	got, _ := math.NewIntFromString(dist.Allocations[0].Amount)
	if dist.Allocations[0].PoolID != "pool-a" || !got.Equal(want) {
		t.Errorf("pool-a: expected %s, got %s", want, got)
	}
}

func TestBuildDistribution_ProofsVerifyAndSettle(t *testing.T) {
	f := newAggFixture(t, fixedPower{"alice": 1000})
	ctx := context.Background()

	f.routePeriod(t, 1)
	if err := f.gauge.Vote(ctx, 1, "alice", "pool-a", 6000); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if err := f.gauge.Vote(ctx, 1, "alice", "pool-b", 4000); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	f.now = genesisMs + gauge.EpochMs

	dist, err := f.aggregator.BuildDistribution(ctx, 1)
	if err != nil {
		t.Fatalf("BuildDistribution failed: %v", err)
	}
	if err := f.aggregator.Publish(ctx, dist); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Fund the treasury so settled claims can vest.
	if err := f.accounts.Credit(ctx, domain.AccountTreasury, domain.TokenEmission, math.NewIntWithDecimal(100_000_000, 18)); err != nil {
		t.Fatalf("fund treasury: %v", err)
	}

	// Every allocation settles against the published root.
	for _, a := range dist.Allocations {
		amount, _ := math.NewIntFromString(a.Amount)
		proof := make([][32]byte, len(a.Proof))
		for i, node := range a.Proof {
			decoded, err := merkle.DecodeHash(node)
			if err != nil {
				t.Fatalf("decode proof node: %v", err)
			}
			proof[i] = decoded
		}
		if _, err := f.settlement.Claim(ctx, 1, dist.Token, a.PoolID, amount, proof); err != nil {
			t.Errorf("Claim for %s failed: %v", a.PoolID, err)
		}
	}
}

func TestBuildDistribution_Guards(t *testing.T) {
	f := newAggFixture(t, fixedPower{"alice": 1000})
	ctx := context.Background()

	// Open period.
	if _, err := f.aggregator.BuildDistribution(ctx, 1); !errors.Is(err, ErrPeriodOpen) {
		t.Errorf("Open period: expected ErrPeriodOpen, got %v", err)
	}

	// Closed but never routed.
	f.now = genesisMs + gauge.EpochMs
	if _, err := f.aggregator.BuildDistribution(ctx, 1); !errors.Is(err, ErrPeriodNotRouted) {
		t.Errorf("Unrouted period: expected ErrPeriodNotRouted, got %v", err)
	}

	// Routed but no votes.
	f.now = genesisMs
	f.routePeriod(t, 1)
	f.now = genesisMs + gauge.EpochMs
	if _, err := f.aggregator.BuildDistribution(ctx, 1); !errors.Is(err, ErrNoWeights) {
		t.Errorf("No votes: expected ErrNoWeights, got %v", err)
	}
}
