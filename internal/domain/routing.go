package domain

import "cosmossdk.io/math"

// ChannelSinks holds the governance-configured receiving accounts, one per
// distribution channel.
type ChannelSinks struct {
	Debt          string
	LPPairs       string
	StabilityPool string
	Eco           string
}

// Configured reports whether every channel has a sink account.
func (s *ChannelSinks) Configured() bool {
	return s != nil && s.Debt != "" && s.LPPairs != "" && s.StabilityPool != "" && s.Eco != ""
}

// RoutingRecord marks one period as routed and snapshots the amounts sent.
// Corresponds to routed_periods table in PostgreSQL.
type RoutingRecord struct {
	Period        int // PRIMARY KEY
	Total         math.Int
	Debt          math.Int
	LPPairs       math.Int
	StabilityPool math.Int
	Eco           math.Int
	RoutedAtMs    int64 // Unix timestamp in milliseconds
}

// Transfer is one ledger movement of a single token between two accounts.
type Transfer struct {
	Token  string
	From   string
	To     string
	Amount math.Int
}
