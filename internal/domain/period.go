package domain

import "cosmossdk.io/math"

// Phase identifies one of the three emission phases.
type Phase string

// Emission phase constants.
const (
	PhaseA Phase = "A" // fixed high rate
	PhaseB Phase = "B" // geometric weekly decay
	PhaseC Phase = "C" // fixed low rate
)

// Period bounds of the emission schedule (inclusive).
const (
	FirstPeriod = 1
	LastPeriod  = 352
)

// PeriodBudget is the derived four-channel budget of one period.
type PeriodBudget struct {
	Period        int
	Phase         Phase
	Total         math.Int // full period emission
	Debt          math.Int // debt channel share
	LPPairs       math.Int // LP channel, pairs leg
	StabilityPool math.Int // LP channel, stability-pool leg
	Eco           math.Int // ecosystem channel, carries the remainder
}

// LPTotal returns the combined LP channel share.
func (b *PeriodBudget) LPTotal() math.Int {
	return b.LPPairs.Add(b.StabilityPool)
}

// LPSplit is the governance-adjustable secondary split of the LP channel,
// in basis points. The two legs must sum to 10000.
type LPSplit struct {
	PairsBps int64
	PoolBps  int64
}
