package emission

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage/memory"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(memory.NewParamStore())
}

func mustBudget(t *testing.T, s *Scheduler, period int) *domain.PeriodBudget {
	t.Helper()
	b, err := s.Budget(context.Background(), period)
	if err != nil {
		t.Fatalf("Budget(%d) failed: %v", period, err)
	}
	return b
}

func tokens(n int64) math.Int {
	return math.NewIntWithDecimal(n, 18)
}

func TestBudget_PeriodOutOfRange(t *testing.T) {
	s := newTestScheduler()
	for _, period := range []int{0, -1, 353, 1000} {
		_, err := s.Budget(context.Background(), period)
		if !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("Budget(%d): expected ErrInvalidPeriod, got %v", period, err)
		}
	}
}

func TestBudget_PhaseAScenario(t *testing.T) {
	s := newTestScheduler()
	b := mustBudget(t, s, 1)

	if b.Phase != domain.PhaseA {
		t.Errorf("Expected phase A, got %s", b.Phase)
	}
	if !b.Total.Equal(tokens(37_500_000)) {
		t.Errorf("Total: expected 37.5M tokens, got %s", b.Total)
	}
	if !b.Debt.Equal(tokens(11_250_000)) {
		t.Errorf("Debt: expected 11.25M tokens (30%%), got %s", b.Debt)
	}
	if !b.LPTotal().Equal(tokens(22_500_000)) {
		t.Errorf("LP total: expected 22.5M tokens (60%%), got %s", b.LPTotal())
	}
	if !b.Eco.Equal(tokens(3_750_000)) {
		t.Errorf("Eco: expected 3.75M tokens (10%%), got %s", b.Eco)
	}
	// Default 50/50 secondary split.
	if !b.LPPairs.Equal(tokens(11_250_000)) || !b.StabilityPool.Equal(tokens(11_250_000)) {
		t.Errorf("LP secondary split: got pairs=%s stability=%s", b.LPPairs, b.StabilityPool)
	}
}

func TestBudget_PhaseBFirstPeriod(t *testing.T) {
	s := newTestScheduler()
	b := mustBudget(t, s, 13)

	if b.Phase != domain.PhaseB {
		t.Errorf("Expected phase B, got %s", b.Phase)
	}
	want, _ := math.NewIntFromString("55586511490248519567180900")
	if !b.Total.Equal(want) {
		t.Errorf("Total: expected %s, got %s", want, b.Total)
	}
	// 50% debt, 37.5% lp, 12.5% eco.
	if !b.Debt.Equal(b.Total.MulRaw(5000).QuoRaw(10000)) {
		t.Errorf("Debt is not 50%% of total")
	}
	if !b.LPTotal().Equal(b.Total.MulRaw(3750).QuoRaw(10000)) {
		t.Errorf("LP is not 37.5%% of total")
	}
}

func TestBudget_PhaseBDecaysWeekly(t *testing.T) {
	s := newTestScheduler()

	b13 := mustBudget(t, s, 13)
	b14 := mustBudget(t, s, 14)

	want := b13.Total.MulRaw(99).QuoRaw(100)
	if !b14.Total.Equal(want) {
		t.Errorf("Period 14: expected %s (99%% of period 13), got %s", want, b14.Total)
	}

	prev := b13.Total
	for period := 14; period <= 248; period++ {
		cur := mustBudget(t, s, period).Total
		if cur.GTE(prev) {
			t.Fatalf("Period %d total %s not below period %d total %s", period, cur, period-1, prev)
		}
		prev = cur
	}
}

func TestBudget_PhaseCScenario(t *testing.T) {
	s := newTestScheduler()
	b := mustBudget(t, s, 249)

	if b.Phase != domain.PhaseC {
		t.Errorf("Expected phase C, got %s", b.Phase)
	}
	// 450M over 104 periods = 4,326,923.076923... tokens.
	want, _ := math.NewIntFromString("4326923076923076923076923")
	if !b.Total.Equal(want) {
		t.Errorf("Total: expected %s, got %s", want, b.Total)
	}
	if !b.Debt.Equal(b.Total.MulRaw(5500).QuoRaw(10000)) {
		t.Errorf("Debt is not 55%% of total")
	}
}

func TestBudget_ChannelsReconstructTotalExactly(t *testing.T) {
	s := newTestScheduler()

	for period := domain.FirstPeriod; period <= domain.LastPeriod; period++ {
		b := mustBudget(t, s, period)
		sum := b.Debt.Add(b.LPPairs).Add(b.StabilityPool).Add(b.Eco)
		if !sum.Equal(b.Total) {
			t.Fatalf("Period %d: channels sum %s != total %s", period, sum, b.Total)
		}
	}
}

func TestBudget_PhaseConservationExact(t *testing.T) {
	s := newTestScheduler()

	sums := map[domain.Phase]math.Int{
		domain.PhaseA: math.ZeroInt(),
		domain.PhaseB: math.ZeroInt(),
		domain.PhaseC: math.ZeroInt(),
	}
	for period := domain.FirstPeriod; period <= domain.LastPeriod; period++ {
		b := mustBudget(t, s, period)
		sums[b.Phase] = sums[b.Phase].Add(b.Total)
	}

	for _, phase := range []domain.Phase{domain.PhaseA, domain.PhaseB, domain.PhaseC} {
		want := PhaseAllotment(phase)
		if !sums[phase].Equal(want) {
			t.Errorf("Phase %s: sum %s != allotment %s", phase, sums[phase], want)
		}
	}
}

func TestBudget_TailPeriodsAbsorbResidual(t *testing.T) {
	s := newTestScheduler()

	// Phase B tail: the precomputed decay sum falls short of the allotment
	// by a sub-token residual assigned to period 248.
	b248 := mustBudget(t, s, 248)
	bare, _ := math.NewIntFromString("5238900495200524815334199")
	if !b248.Total.GT(bare) {
		t.Errorf("Period 248 should exceed the bare decay value %s, got %s", bare, b248.Total)
	}

	// Phase C tail: 450M*1e18 mod 104 = 8 base units land on period 352.
	b351 := mustBudget(t, s, 351)
	b352 := mustBudget(t, s, 352)
	if !b352.Total.Sub(b351.Total).Equal(math.NewInt(8)) {
		t.Errorf("Period 352 should carry 8 extra base units, got diff %s", b352.Total.Sub(b351.Total))
	}
}

func TestSetLPSplit_Validation(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	cases := []struct {
		pairs, pool int64
	}{
		{5000, 4999},
		{10001, 0},
		{-1, 10001},
		{0, 0},
	}
	for _, tc := range cases {
		err := s.SetLPSplit(ctx, tc.pairs, tc.pool)
		if !errors.Is(err, ErrInvalidSplitConfig) {
			t.Errorf("SetLPSplit(%d, %d): expected ErrInvalidSplitConfig, got %v", tc.pairs, tc.pool, err)
		}
	}

	if err := s.SetLPSplit(ctx, 7000, 3000); err != nil {
		t.Fatalf("SetLPSplit(7000, 3000) failed: %v", err)
	}
}

func TestBudget_LPSplitApplied(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	if err := s.SetLPSplit(ctx, 7000, 3000); err != nil {
		t.Fatalf("SetLPSplit failed: %v", err)
	}

	b := mustBudget(t, s, 1)
	wantPairs := b.LPTotal().MulRaw(7000).QuoRaw(10000)
	if !b.LPPairs.Equal(wantPairs) {
		t.Errorf("LPPairs: expected %s, got %s", wantPairs, b.LPPairs)
	}
	if !b.LPPairs.Add(b.StabilityPool).Equal(b.LPTotal()) {
		t.Errorf("Secondary split does not reconstruct the LP total")
	}
}

func TestPhaseOf(t *testing.T) {
	cases := []struct {
		period int
		phase  domain.Phase
	}{
		{1, domain.PhaseA},
		{12, domain.PhaseA},
		{13, domain.PhaseB},
		{248, domain.PhaseB},
		{249, domain.PhaseC},
		{352, domain.PhaseC},
	}
	for _, tc := range cases {
		phase, err := PhaseOf(tc.period)
		if err != nil {
			t.Fatalf("PhaseOf(%d) failed: %v", tc.period, err)
		}
		if phase != tc.phase {
			t.Errorf("PhaseOf(%d): expected %s, got %s", tc.period, tc.phase, phase)
		}
	}
}
