package domain

import "cosmossdk.io/math"

// VestingSchedule is one beneficiary's aggregate vesting position.
// Corresponds to vesting_schedules table in PostgreSQL.
type VestingSchedule struct {
	Beneficiary string // PRIMARY KEY
	Total       math.Int
	Claimed     math.Int
	StartMs     int64 // earliest deposit time, kept on merge
}

// Outstanding returns the unclaimed remainder of the schedule.
func (s *VestingSchedule) Outstanding() math.Int {
	return s.Total.Sub(s.Claimed)
}
