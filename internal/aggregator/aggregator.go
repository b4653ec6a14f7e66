// Package aggregator builds per-pool distributions for closed periods. It is
// the off-chain half of settlement: it turns gauge weights and a routed
// LP-pairs amount into a Merkle tree, emits a proofs document, and publishes
// the root.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/gauge"
	"emission-engine/internal/merkle"
	"emission-engine/internal/router"
	"emission-engine/internal/settlement"
	"emission-engine/internal/storage"
)

// Aggregator errors.
var (
	// ErrPeriodOpen is returned when aggregating a period whose voting
	// window has not closed.
	ErrPeriodOpen = errors.New("voting period still open")

	// ErrPeriodNotRouted is returned when the period budget has not been
	// routed yet.
	ErrPeriodNotRouted = errors.New("period not routed")

	// ErrNoWeights is returned when no gauge power was allocated in the
	// period.
	ErrNoWeights = errors.New("no gauge weights for period")
)

// PoolAllocation is one pool's slice of the LP-pairs channel with its
// inclusion proof.
type PoolAllocation struct {
	PoolID string   `json:"pool_id"`
	Amount string   `json:"amount"`
	Leaf   string   `json:"leaf"`
	Proof  []string `json:"proof"`
}

// Distribution is the complete proofs document for one (period, token).
type Distribution struct {
	Period      int              `json:"period"`
	Token       string           `json:"token"`
	Root        string           `json:"root"`
	Total       string           `json:"total"`
	Allocations []PoolAllocation `json:"allocations"`
}

// Aggregator builds and publishes distributions.
type Aggregator struct {
	gauge      *gauge.Controller
	router     *router.Router
	settlement *settlement.Settlement
	logger     *log.Logger
}

// New creates an Aggregator.
func New(g *gauge.Controller, r *router.Router, s *settlement.Settlement, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New(log.Writer(), "[aggregator] ", log.LstdFlags)
	}
	return &Aggregator{gauge: g, router: r, settlement: s, logger: logger}
}

// BuildDistribution derives the per-pool split of a routed period's LP-pairs
// amount and builds the claim tree over it.
//
// Each pool gets amount*power/total; the last pool in ID order absorbs the
// division remainder so the allocations reconstruct the routed amount
// exactly.
func (a *Aggregator) BuildDistribution(ctx context.Context, period int) (*Distribution, error) {
	if a.gauge.CurrentPeriod() <= period {
		return nil, ErrPeriodOpen
	}

	routed, err := a.router.Routed(ctx, period)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPeriodNotRouted
	}
	if err != nil {
		return nil, fmt.Errorf("load routing record: %w", err)
	}

	weights, err := a.gauge.PoolWeights(ctx, period)
	if err != nil {
		return nil, err
	}
	total := math.ZeroInt()
	for _, w := range weights {
		total = total.Add(w.Power)
	}
	if total.IsZero() {
		return nil, ErrNoWeights
	}

	amounts := make([]math.Int, len(weights))
	distributed := math.ZeroInt()
	for i, w := range weights {
		amounts[i] = routed.LPPairs.Mul(w.Power).Quo(total)
		distributed = distributed.Add(amounts[i])
	}
	amounts[len(amounts)-1] = amounts[len(amounts)-1].Add(routed.LPPairs.Sub(distributed))

	leaves := make([][32]byte, len(weights))
	for i, w := range weights {
		leaves[i] = merkle.LeafHash(w.PoolID, period, domain.TokenEmission, amounts[i])
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}

	dist := &Distribution{
		Period:      period,
		Token:       domain.TokenEmission,
		Root:        merkle.EncodeHash(tree.Root()),
		Total:       routed.LPPairs.String(),
		Allocations: make([]PoolAllocation, len(weights)),
	}
	for i, w := range weights {
		proof, err := tree.Proof(i)
		if err != nil {
			return nil, fmt.Errorf("proof for %s: %w", w.PoolID, err)
		}
		encoded := make([]string, len(proof))
		for j, node := range proof {
			encoded[j] = merkle.EncodeHash(node)
		}
		dist.Allocations[i] = PoolAllocation{
			PoolID: w.PoolID,
			Amount: amounts[i].String(),
			Leaf:   merkle.EncodeHash(leaves[i]),
			Proof:  encoded,
		}
	}

	a.logger.Printf("built distribution for period %d: %d pools, total=%s root=%s",
		period, len(weights), dist.Total, dist.Root)
	return dist, nil
}

// Publish hands the distribution root to settlement.
func (a *Aggregator) Publish(ctx context.Context, dist *Distribution) error {
	if err := a.settlement.UpdateRoot(ctx, dist.Period, dist.Token, dist.Root); err != nil {
		return fmt.Errorf("publish root: %w", err)
	}
	return nil
}

// WriteFile writes the proofs document as indented JSON.
func (d *Distribution) WriteFile(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write distribution: %w", err)
	}
	return nil
}
