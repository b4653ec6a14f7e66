package domain

import "cosmossdk.io/math"

// GaugeAllocation is one pool's share of a voter's power, in basis points.
type GaugeAllocation struct {
	PoolID    string
	WeightBps int64
}

// GaugeVote is one voter's full allocation for one voting period.
// Corresponds to gauge_votes table in PostgreSQL.
type GaugeVote struct {
	Period      int    // voting period
	Voter       string // voter address
	Power       math.Int
	Allocations []GaugeAllocation
	CastAtMs    int64 // Unix timestamp in milliseconds
}

// PoolWeight is a pool's aggregated share of one period's votes.
type PoolWeight struct {
	PoolID string
	Power  math.Int // absolute power allocated to the pool
}
