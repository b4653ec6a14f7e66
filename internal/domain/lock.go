package domain

import "cosmossdk.io/math"

// VoteEscrowLock is one time-locked governance position.
// Corresponds to escrow_locks table in PostgreSQL.
type VoteEscrowLock struct {
	ID          int64 // BIGSERIAL primary key
	Owner       string
	Amount      math.Int
	LockEndMs   int64 // Unix timestamp in milliseconds
	CreatedAtMs int64
}
