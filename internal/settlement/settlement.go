// Package settlement verifies Merkle-committed reward claims and hands the
// boosted amounts to the vesting ledger. No liquid tokens leave here.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/merkle"
	"emission-engine/internal/staking"
	"emission-engine/internal/storage"
	"emission-engine/internal/vesting"
)

// Settlement errors.
var (
	// ErrRootNotSet is returned when claiming against an unpublished root.
	ErrRootNotSet = errors.New("no root published for period and token")

	// ErrRootFrozen is returned when replacing a root that claims have
	// already settled against.
	ErrRootFrozen = errors.New("root frozen by settled claims")

	// ErrInvalidProof is returned when the proof does not connect the leaf
	// to the published root.
	ErrInvalidProof = errors.New("invalid claim proof")

	// ErrAlreadyClaimed is returned when the leaf was settled before.
	ErrAlreadyClaimed = errors.New("leaf already claimed")
)

const bpsDenom = 10000

// Settlement settles reward claims for (period, token) distributions.
type Settlement struct {
	roots   storage.RootStore
	claims  storage.ClaimStore
	staking *staking.BoostStaking
	vesting *vesting.Ledger
	logger  *log.Logger
	nowMs   func() int64
}

// Options for creating a Settlement.
type Options struct {
	Roots   storage.RootStore
	Claims  storage.ClaimStore
	Staking *staking.BoostStaking
	Vesting *vesting.Ledger
	Logger  *log.Logger

	// NowMs overrides the clock, for tests.
	NowMs func() int64
}

// New creates a Settlement.
func New(opts Options) *Settlement {
	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[settlement] ", log.LstdFlags)
	}
	return &Settlement{
		roots:   opts.Roots,
		claims:  opts.Claims,
		staking: opts.Staking,
		vesting: opts.Vesting,
		logger:  logger,
		nowMs:   nowMs,
	}
}

// UpdateRoot publishes or replaces the claim root for (period, token).
// Replacement is allowed only while no claim has settled against the
// existing root; afterwards the root is frozen.
func (s *Settlement) UpdateRoot(ctx context.Context, period int, token, root string) error {
	if _, err := merkle.DecodeHash(root); err != nil {
		return fmt.Errorf("%w: %s", storage.ErrInvalidInput, root)
	}

	existing, err := s.roots.Get(ctx, period, token)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load root: %w", err)
	}
	if existing != nil && existing.Claims > 0 {
		return ErrRootFrozen
	}

	err = s.roots.Upsert(ctx, &domain.RootRecord{
		Period:      period,
		Token:       token,
		Root:        root,
		UpdatedAtMs: s.nowMs(),
	})
	if err != nil {
		return fmt.Errorf("store root: %w", err)
	}
	s.logger.Printf("published root for period %d token %s: %s", period, token, root)
	return nil
}

// Root returns the published root record, or ErrRootNotSet.
func (s *Settlement) Root(ctx context.Context, period int, token string) (*domain.RootRecord, error) {
	record, err := s.roots.Get(ctx, period, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRootNotSet
	}
	if err != nil {
		return nil, fmt.Errorf("load root: %w", err)
	}
	return record, nil
}

// Claim settles one leaf: verifies the proof against the published root,
// marks the leaf claimed, applies the beneficiary's boost multiplier as read
// right now, and vests the boosted amount. Nothing is paid out liquid.
func (s *Settlement) Claim(ctx context.Context, period int, token, beneficiary string, amount math.Int, proof [][32]byte) (*domain.ClaimRecord, error) {
	record, err := s.Root(ctx, period, token)
	if err != nil {
		return nil, err
	}
	root, err := merkle.DecodeHash(record.Root)
	if err != nil {
		return nil, fmt.Errorf("decode stored root: %w", err)
	}

	leaf := merkle.LeafHash(beneficiary, period, token, amount)
	if !merkle.Verify(root, leaf, proof) {
		return nil, ErrInvalidProof
	}

	multiplier, err := s.staking.Multiplier(ctx, beneficiary)
	if err != nil {
		return nil, fmt.Errorf("read boost multiplier: %w", err)
	}
	boosted := amount.MulRaw(multiplier).QuoRaw(bpsDenom)

	claim := &domain.ClaimRecord{
		LeafHash:    merkle.EncodeHash(leaf),
		Period:      period,
		Token:       token,
		Beneficiary: beneficiary,
		Amount:      amount,
		Boosted:     boosted,
		ClaimedAtMs: s.nowMs(),
	}
	// The claimed-leaf insert is the idempotence gate; a duplicate fails
	// here before any vesting state changes.
	if err := s.claims.Insert(ctx, claim); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("mark leaf claimed: %w", err)
	}

	// A failed vest must release the leaf, or the beneficiary could never
	// retry: the gate would report the claim as settled with nothing vested.
	if _, err := s.vesting.VestFor(ctx, beneficiary, boosted); err != nil {
		if delErr := s.claims.Delete(ctx, claim.LeafHash); delErr != nil {
			s.logger.Printf("release leaf %s after failed vest: %v", claim.LeafHash, delErr)
		}
		return nil, fmt.Errorf("vest boosted amount: %w", err)
	}

	if err := s.roots.IncrementClaims(ctx, period, token); err != nil {
		return nil, fmt.Errorf("count claim: %w", err)
	}

	s.logger.Printf("settled claim for %s period %d token %s: amount=%s boosted=%s",
		beneficiary, period, token, amount, boosted)
	return claim, nil
}

// Claims returns the settled claims for (period, token) in claim order.
func (s *Settlement) Claims(ctx context.Context, period int, token string) ([]*domain.ClaimRecord, error) {
	return s.claims.GetByPeriodToken(ctx, period, token)
}
