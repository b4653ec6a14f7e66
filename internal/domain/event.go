package domain

// Distribution event kinds recorded in the analytics trail.
const (
	EventPeriodRouted  = "PERIOD_ROUTED"
	EventRootPublished = "ROOT_PUBLISHED"
	EventClaimSettled  = "CLAIM_SETTLED"
	EventVestReleased  = "VEST_RELEASED"
	EventEarlyExit     = "EARLY_EXIT"
)

// DistributionEvent is one row of the analytics trail.
// Corresponds to distribution_events table in ClickHouse.
type DistributionEvent struct {
	Kind    string `json:"kind"`             // one of the Event* constants
	Period  int    `json:"period,omitempty"` // 0 when not tied to a period
	Token   string `json:"token"`
	Account string `json:"account,omitempty"` // beneficiary or sink, empty for schedule-level events
	Amount  string `json:"amount,omitempty"`  // decimal base units, stringified for ClickHouse
	AtMs    int64  `json:"at_ms"`             // Unix timestamp in milliseconds
}
