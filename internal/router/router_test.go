package router

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/emission"
	"emission-engine/internal/storage"
	"emission-engine/internal/storage/memory"
)

type routerFixture struct {
	router    *Router
	scheduler *emission.Scheduler
	accounts  *memory.AccountStore
	sinks     *domain.ChannelSinks
}

func newFixture(t *testing.T) *routerFixture {
	t.Helper()

	scheduler := emission.NewScheduler(memory.NewParamStore())
	accounts := memory.NewAccountStore()
	routed := memory.NewRoutedPeriodStore()
	f := &routerFixture{
		scheduler: scheduler,
		accounts:  accounts,
		sinks: &domain.ChannelSinks{
			Debt:          "debt-sink",
			LPPairs:       "lp-pairs-sink",
			StabilityPool: "stability-sink",
			Eco:           "eco-sink",
		},
	}
	f.router = New(Options{
		Scheduler: scheduler,
		SinkStore: memory.NewSinkStore(),
		Routed:    routed,
		Journal:   memory.NewRoutingJournal(routed, accounts),
		Accounts:  accounts,
		Logger:    log.New(io.Discard, "", 0),
		NowMs:     func() int64 { return 1704067200000 },
	})
	return f
}

func (f *routerFixture) fund(t *testing.T, amount math.Int) {
	t.Helper()
	if err := f.accounts.Credit(context.Background(), domain.AccountRouter, domain.TokenEmission, amount); err != nil {
		t.Fatalf("fund router: %v", err)
	}
}

func (f *routerFixture) configureSinks(t *testing.T) {
	t.Helper()
	if err := f.router.SetSinks(context.Background(), f.sinks); err != nil {
		t.Fatalf("SetSinks failed: %v", err)
	}
}

func (f *routerFixture) sinkBalances(t *testing.T) map[string]math.Int {
	t.Helper()
	ctx := context.Background()
	out := make(map[string]math.Int)
	for _, account := range []string{f.sinks.Debt, f.sinks.LPPairs, f.sinks.StabilityPool, f.sinks.Eco} {
		b, err := f.accounts.Balance(ctx, account, domain.TokenEmission)
		if err != nil {
			t.Fatalf("read balance of %s: %v", account, err)
		}
		out[account] = b
	}
	return out
}

func TestRoute_DistributesBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureSinks(t)

	budget, err := f.scheduler.Budget(ctx, 1)
	if err != nil {
		t.Fatalf("Budget failed: %v", err)
	}
	f.fund(t, budget.Total)

	record, err := f.router.Route(ctx, 1)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if !record.Total.Equal(budget.Total) {
		t.Errorf("Record total mismatch: got %s", record.Total)
	}

	balances := f.sinkBalances(t)
	if !balances[f.sinks.Debt].Equal(budget.Debt) {
		t.Errorf("Debt sink: expected %s, got %s", budget.Debt, balances[f.sinks.Debt])
	}
	if !balances[f.sinks.Eco].Equal(budget.Eco) {
		t.Errorf("Eco sink: expected %s, got %s", budget.Eco, balances[f.sinks.Eco])
	}

	routerLeft, _ := f.accounts.Balance(ctx, domain.AccountRouter, domain.TokenEmission)
	if !routerLeft.IsZero() {
		t.Errorf("Router should be drained, got %s", routerLeft)
	}
}

func TestRoute_SecondCallRejectedAndBalancesUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureSinks(t)

	budget, _ := f.scheduler.Budget(ctx, 100)
	// Fund enough for two periods so only the idempotence gate can stop
	// the second call.
	f.fund(t, budget.Total.MulRaw(2))

	if _, err := f.router.Route(ctx, 100); err != nil {
		t.Fatalf("First route failed: %v", err)
	}
	after := f.sinkBalances(t)

	_, err := f.router.Route(ctx, 100)
	if !errors.Is(err, ErrAlreadyRouted) {
		t.Fatalf("Expected ErrAlreadyRouted, got %v", err)
	}

	again := f.sinkBalances(t)
	for account, want := range after {
		if !again[account].Equal(want) {
			t.Errorf("Sink %s changed after rejected duplicate: %s -> %s", account, want, again[account])
		}
	}
}

func TestRoute_SinksNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.fund(t, math.NewIntWithDecimal(100_000_000, 18))

	_, err := f.router.Route(context.Background(), 1)
	if !errors.Is(err, ErrSinkNotConfigured) {
		t.Fatalf("Expected ErrSinkNotConfigured, got %v", err)
	}

	// Nothing marked routed; the call is retryable after configuration.
	if _, err := f.router.Routed(context.Background(), 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Period must not be marked routed, got %v", err)
	}
}

func TestRoute_InsufficientBalanceRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureSinks(t)

	budget, _ := f.scheduler.Budget(ctx, 1)
	f.fund(t, budget.Total.SubRaw(1))

	_, err := f.router.Route(ctx, 1)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := f.router.Routed(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Failed route must not mark the period, got %v", err)
	}

	// Remediate and retry.
	f.fund(t, math.NewInt(1))
	if _, err := f.router.Route(ctx, 1); err != nil {
		t.Fatalf("Retry after funding failed: %v", err)
	}
}

func TestRoute_InvalidPeriod(t *testing.T) {
	f := newFixture(t)
	f.configureSinks(t)

	_, err := f.router.Route(context.Background(), 353)
	if !errors.Is(err, emission.ErrInvalidPeriod) {
		t.Fatalf("Expected ErrInvalidPeriod, got %v", err)
	}
}

func TestRoute_SkipsZeroLeg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configureSinks(t)

	// All of the LP channel to pairs leaves the stability leg at zero.
	if err := f.scheduler.SetLPSplit(ctx, 10000, 0); err != nil {
		t.Fatalf("SetLPSplit failed: %v", err)
	}

	budget, _ := f.scheduler.Budget(ctx, 1)
	f.fund(t, budget.Total)

	if _, err := f.router.Route(ctx, 1); err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	balances := f.sinkBalances(t)
	if !balances[f.sinks.StabilityPool].IsZero() {
		t.Errorf("Stability sink should stay empty, got %s", balances[f.sinks.StabilityPool])
	}
	if !balances[f.sinks.LPPairs].Equal(budget.LPPairs) {
		t.Errorf("LP pairs sink: expected %s, got %s", budget.LPPairs, balances[f.sinks.LPPairs])
	}
}

func TestSetSinks_RequiresAllFour(t *testing.T) {
	f := newFixture(t)

	err := f.router.SetSinks(context.Background(), &domain.ChannelSinks{
		Debt:    "debt-sink",
		LPPairs: "lp-pairs-sink",
	})
	if !errors.Is(err, ErrSinkNotConfigured) {
		t.Fatalf("Expected ErrSinkNotConfigured, got %v", err)
	}
}
