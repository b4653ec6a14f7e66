// Package emission implements the three-phase token emission schedule.
//
// Periods 1..352 are split into Phase A (fixed high rate), Phase B
// (geometric weekly decay) and Phase C (fixed low rate). Every phase
// conserves its allotment exactly: the decay sequence is precomputed once as
// an integer table and the phase tail period absorbs the rounding residual.
package emission

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// Scheduler errors.
var (
	// ErrInvalidPeriod is returned for periods outside [1, 352].
	ErrInvalidPeriod = errors.New("period outside emission schedule")

	// ErrInvalidSplitConfig is returned when the LP secondary split bps do
	// not sum to 10000.
	ErrInvalidSplitConfig = errors.New("lp split bps must sum to 10000")
)

// Scheduler derives per-period budgets. Budget reads are pure; the only
// stored state is the governance-adjustable LP secondary split.
type Scheduler struct {
	params storage.ParamStore

	// phaseBTable[t] is the total for period 13+t. Built once at
	// construction; the last entry carries the conservation residual.
	phaseBTable []math.Int

	// phaseCPerPeriod is the fixed Phase C total; the final period adds
	// phaseCResidual on top.
	phaseCPerPeriod math.Int
	phaseCResidual  math.Int
}

// NewScheduler precomputes the decay table and returns a scheduler.
func NewScheduler(params storage.ParamStore) *Scheduler {
	s := &Scheduler{params: params}

	table := make([]math.Int, phaseBPeriods)
	sum := math.ZeroInt()
	v := phaseBInitial
	for t := 0; t < phaseBPeriods; t++ {
		table[t] = v
		sum = sum.Add(v)
		v = v.MulRaw(decayNum).QuoRaw(decayDen)
	}
	// Tail period absorbs the residual so the phase sums exactly.
	table[phaseBPeriods-1] = table[phaseBPeriods-1].Add(phaseBAllotment.Sub(sum))
	s.phaseBTable = table

	s.phaseCPerPeriod = phaseCAllotment.QuoRaw(phaseCPeriods)
	s.phaseCResidual = phaseCAllotment.Sub(s.phaseCPerPeriod.MulRaw(phaseCPeriods))

	return s
}

// PhaseOf returns the phase a period belongs to.
func PhaseOf(period int) (domain.Phase, error) {
	switch {
	case period < domain.FirstPeriod || period > domain.LastPeriod:
		return "", ErrInvalidPeriod
	case period <= phaseAEnd:
		return domain.PhaseA, nil
	case period <= phaseBEnd:
		return domain.PhaseB, nil
	default:
		return domain.PhaseC, nil
	}
}

// PhaseAllotment returns the fixed total emission of a phase.
func PhaseAllotment(phase domain.Phase) math.Int {
	switch phase {
	case domain.PhaseA:
		return phaseAAllotment
	case domain.PhaseB:
		return phaseBAllotment
	default:
		return phaseCAllotment
	}
}

// Total returns the period's total emission before any split.
func (s *Scheduler) Total(period int) (math.Int, error) {
	phase, err := PhaseOf(period)
	if err != nil {
		return math.Int{}, err
	}
	switch phase {
	case domain.PhaseA:
		return phaseAPerPeriod, nil
	case domain.PhaseB:
		return s.phaseBTable[period-phaseAEnd-1], nil
	default:
		total := s.phaseCPerPeriod
		if period == domain.LastPeriod {
			total = total.Add(s.phaseCResidual)
		}
		return total, nil
	}
}

// Budget derives the full four-channel budget for a period.
//
// Split arithmetic is multiply-then-divide; the eco channel takes the
// subtraction remainder, which guarantees exact reconstruction of the total
// regardless of rounding in the two explicit multiplications.
func (s *Scheduler) Budget(ctx context.Context, period int) (*domain.PeriodBudget, error) {
	phase, err := PhaseOf(period)
	if err != nil {
		return nil, err
	}
	total, err := s.Total(period)
	if err != nil {
		return nil, err
	}

	debtBps, lpBps := phaseSplit(phase)
	debt := total.MulRaw(debtBps).QuoRaw(bpsDenom)
	lpTotal := total.MulRaw(lpBps).QuoRaw(bpsDenom)
	eco := total.Sub(debt).Sub(lpTotal)

	split, err := s.lpSplit(ctx)
	if err != nil {
		return nil, err
	}
	lpPairs := lpTotal.MulRaw(split.PairsBps).QuoRaw(bpsDenom)
	stability := lpTotal.Sub(lpPairs)

	return &domain.PeriodBudget{
		Period:        period,
		Phase:         phase,
		Total:         total,
		Debt:          debt,
		LPPairs:       lpPairs,
		StabilityPool: stability,
		Eco:           eco,
	}, nil
}

// SetLPSplit replaces the governance LP secondary split. The two bps must
// sum to exactly 10000.
func (s *Scheduler) SetLPSplit(ctx context.Context, pairsBps, poolBps int64) error {
	if pairsBps < 0 || poolBps < 0 || pairsBps+poolBps != bpsDenom {
		return ErrInvalidSplitConfig
	}
	if err := s.params.SetLPSplit(ctx, &domain.LPSplit{PairsBps: pairsBps, PoolBps: poolBps}); err != nil {
		return fmt.Errorf("store lp split: %w", err)
	}
	return nil
}

// LPSplit returns the active LP secondary split.
func (s *Scheduler) LPSplit(ctx context.Context) (*domain.LPSplit, error) {
	return s.lpSplit(ctx)
}

func (s *Scheduler) lpSplit(ctx context.Context) (*domain.LPSplit, error) {
	split, err := s.params.GetLPSplit(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return &domain.LPSplit{PairsBps: DefaultPairsBps, PoolBps: DefaultPoolBps}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load lp split: %w", err)
	}
	return split, nil
}

func phaseSplit(phase domain.Phase) (debtBps, lpBps int64) {
	switch phase {
	case domain.PhaseA:
		return phaseADebtBps, phaseALPBps
	case domain.PhaseB:
		return phaseBDebtBps, phaseBLPBps
	default:
		return phaseCDebtBps, phaseCLPBps
	}
}
