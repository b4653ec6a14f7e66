package domain

import "cosmossdk.io/math"

// StakePosition is one owner's boost stake.
// Corresponds to stake_positions table in PostgreSQL.
type StakePosition struct {
	Owner   string // PRIMARY KEY
	Amount  math.Int
	StartMs int64 // lock clock start, reset on every top-up
}
