package emission

import "cosmossdk.io/math"

// All amounts are 18-decimal base units of the emission token.

// Phase boundaries (inclusive period indices).
const (
	phaseAEnd = 12
	phaseBEnd = 248
)

// Channel splits per phase in basis points of the period total.
// The eco channel is never computed from its own bps; it takes the
// subtraction remainder so the three channels always reconstruct the total.
const (
	phaseADebtBps = 3000
	phaseALPBps   = 6000

	phaseBDebtBps = 5000
	phaseBLPBps   = 3750

	phaseCDebtBps = 5500
	phaseCLPBps   = 3500
)

const bpsDenom = 10000

// Phase B weekly decay factor: each period emits 99/100 of the previous one.
const (
	decayNum = 99
	decayDen = 100
)

var (
	// phaseAPerPeriod is the fixed Phase A emission: 37,500,000 tokens.
	phaseAPerPeriod = math.NewIntWithDecimal(37_500_000, 18)

	// phaseAAllotment = 12 * phaseAPerPeriod = 450,000,000 tokens.
	phaseAAllotment = math.NewIntWithDecimal(450_000_000, 18)

	// phaseBAllotment is the total Phase B emission: 5,040,000,000 tokens.
	phaseBAllotment = math.NewIntWithDecimal(5_040_000_000, 18)

	// phaseBInitial is the first Phase B period (period 13). Chosen as
	// floor of allotment*(1-r)/(1-r^236) so the precomputed decay table
	// sums to the allotment up to a sub-token residual absorbed by the
	// tail period. Roughly 55,586,511.49 tokens.
	phaseBInitial = intFromString("55586511490248519567180900")

	// phaseCAllotment is the total Phase C emission: 450,000,000 tokens
	// spread evenly over 104 periods.
	phaseCAllotment = math.NewIntWithDecimal(450_000_000, 18)
)

// phaseBPeriods is the number of decaying periods.
const phaseBPeriods = phaseBEnd - phaseAEnd

// phaseCPeriods is the number of fixed tail periods.
const phaseCPeriods = 352 - phaseBEnd

// DefaultLPSplit is the LP secondary split used until governance sets one.
const (
	DefaultPairsBps = 5000
	DefaultPoolBps  = 5000
)

func intFromString(s string) math.Int {
	v, ok := math.NewIntFromString(s)
	if !ok {
		panic("emission: bad integer constant " + s)
	}
	return v
}
