// Package gauge aggregates vote-escrow weighted votes into per-pool weights
// used to sub-allocate the LP pairs channel.
package gauge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/escrow"
	"emission-engine/internal/storage"
)

// EpochMs is the length of one voting period.
const EpochMs int64 = 7 * 24 * 60 * 60 * 1000

// Controller errors.
var (
	// ErrVotingClosed is returned for votes outside the period's epoch
	// window. Closed periods are immutable snapshots.
	ErrVotingClosed = errors.New("voting period closed")

	// ErrInvalidWeightSum is returned when a voter's allocations exceed
	// 10000 bps in total.
	ErrInvalidWeightSum = errors.New("allocation weights exceed 10000 bps")

	// ErrNoVotingPower is returned when the voter holds no live escrow
	// power at cast time.
	ErrNoVotingPower = errors.New("no voting power")
)

const bpsDenom = 10000

// Controller accepts gauge votes and derives pool weights.
type Controller struct {
	votes     storage.GaugeVoteStore
	power     escrow.PowerSource
	genesisMs int64
	nowMs     func() int64
}

// New creates a Controller. genesisMs anchors the epoch clock; nowMs may be
// nil to use the wall clock.
func New(votes storage.GaugeVoteStore, power escrow.PowerSource, genesisMs int64, nowMs func() int64) *Controller {
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	return &Controller{votes: votes, power: power, genesisMs: genesisMs, nowMs: nowMs}
}

// CurrentPeriod returns the period whose epoch window contains now, or 0
// before genesis. Periods past the schedule end still tick; callers bound
// them against the schedule.
func (c *Controller) CurrentPeriod() int {
	now := c.nowMs()
	if now < c.genesisMs {
		return 0
	}
	return int((now-c.genesisMs)/EpochMs) + domain.FirstPeriod
}

// PeriodWindow returns the [start, end) epoch window of a period.
func (c *Controller) PeriodWindow(period int) (startMs, endMs int64) {
	startMs = c.genesisMs + int64(period-domain.FirstPeriod)*EpochMs
	return startMs, startMs + EpochMs
}

// Vote sets the caller's weight for one pool in the given period, keeping
// any other pool allocations the voter already cast. The voter's whole
// allocation is re-snapshotted with their current escrow power. Periods
// outside the emission schedule never open for voting.
func (c *Controller) Vote(ctx context.Context, period int, voter, poolID string, weightBps int64) error {
	if weightBps < 0 || weightBps > bpsDenom || poolID == "" {
		return storage.ErrInvalidInput
	}
	if period < domain.FirstPeriod || period > domain.LastPeriod {
		return ErrVotingClosed
	}

	now := c.nowMs()
	start, end := c.PeriodWindow(period)
	if now < start || now >= end {
		return ErrVotingClosed
	}

	power, err := c.power.VotingPowerAt(ctx, voter, now)
	if err != nil {
		return fmt.Errorf("read voting power: %w", err)
	}
	if power.IsZero() {
		return ErrNoVotingPower
	}

	allocations := []domain.GaugeAllocation{}
	previous, err := c.votes.Get(ctx, period, voter)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("read previous vote: %w", err)
	}
	if previous != nil {
		for _, a := range previous.Allocations {
			if a.PoolID != poolID {
				allocations = append(allocations, a)
			}
		}
	}
	if weightBps > 0 {
		allocations = append(allocations, domain.GaugeAllocation{PoolID: poolID, WeightBps: weightBps})
	}

	total := int64(0)
	for _, a := range allocations {
		total += a.WeightBps
	}
	if total > bpsDenom {
		return ErrInvalidWeightSum
	}

	err = c.votes.Upsert(ctx, &domain.GaugeVote{
		Period:      period,
		Voter:       voter,
		Power:       power,
		Allocations: allocations,
		CastAtMs:    now,
	})
	if err != nil {
		return fmt.Errorf("store vote: %w", err)
	}
	return nil
}

// PoolWeights returns each pool's absolute allocated power for a period,
// ordered by pool ID.
func (c *Controller) PoolWeights(ctx context.Context, period int) ([]domain.PoolWeight, error) {
	votes, err := c.votes.GetByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load period votes: %w", err)
	}

	byPool := make(map[string]math.Int)
	for _, v := range votes {
		for _, a := range v.Allocations {
			share := v.Power.MulRaw(a.WeightBps).QuoRaw(bpsDenom)
			if cur, ok := byPool[a.PoolID]; ok {
				byPool[a.PoolID] = cur.Add(share)
			} else {
				byPool[a.PoolID] = share
			}
		}
	}

	weights := make([]domain.PoolWeight, 0, len(byPool))
	for poolID, power := range byPool {
		weights = append(weights, domain.PoolWeight{PoolID: poolID, Power: power})
	}
	sort.Slice(weights, func(i, j int) bool {
		return weights[i].PoolID < weights[j].PoolID
	})
	return weights, nil
}

// RelativeWeight returns a pool's share of the period's total allocated
// power in bps. A period with no allocated power weighs every pool at zero.
func (c *Controller) RelativeWeight(ctx context.Context, period int, poolID string) (int64, error) {
	weights, err := c.PoolWeights(ctx, period)
	if err != nil {
		return 0, err
	}

	total := math.ZeroInt()
	pool := math.ZeroInt()
	for _, w := range weights {
		total = total.Add(w.Power)
		if w.PoolID == poolID {
			pool = w.Power
		}
	}
	if total.IsZero() {
		return 0, nil
	}
	return pool.MulRaw(bpsDenom).Quo(total).Int64(), nil
}
