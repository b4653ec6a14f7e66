package domain

import "cosmossdk.io/math"

// RootRecord is a published claim root for one (period, token) pair.
// Corresponds to merkle_roots table in PostgreSQL.
type RootRecord struct {
	Period      int    // part of PRIMARY KEY
	Token       string // part of PRIMARY KEY
	Root        string // hex-encoded 32-byte root
	Claims      int64  // settled claims against this root
	UpdatedAtMs int64  // Unix timestamp in milliseconds
}

// ClaimRecord marks one leaf as settled.
// Corresponds to claimed_leaves table in PostgreSQL.
type ClaimRecord struct {
	LeafHash    string // PRIMARY KEY, hex-encoded
	Period      int
	Token       string
	Beneficiary string
	Amount      math.Int // leaf amount before boost
	Boosted     math.Int // amount after the boost multiplier
	ClaimedAtMs int64    // Unix timestamp in milliseconds
}
