package postgres

import (
	"context"
	"fmt"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// SinkStore implements storage.SinkStore using PostgreSQL. The table holds
// at most one row.
type SinkStore struct {
	pool *Pool
}

// NewSinkStore creates a new SinkStore.
func NewSinkStore(pool *Pool) *SinkStore {
	return &SinkStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SinkStore = (*SinkStore)(nil)

// Get returns the configured sinks. Returns ErrNotFound before the first Set.
func (s *SinkStore) Get(ctx context.Context) (*domain.ChannelSinks, error) {
	query := `SELECT debt, lp_pairs, stability_pool, eco FROM channel_sinks`

	var sinks domain.ChannelSinks
	err := s.pool.QueryRow(ctx, query).Scan(&sinks.Debt, &sinks.LPPairs, &sinks.StabilityPool, &sinks.Eco)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sinks: %w", err)
	}
	return &sinks, nil
}

// Set replaces the sink configuration.
func (s *SinkStore) Set(ctx context.Context, sinks *domain.ChannelSinks) error {
	if sinks == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO channel_sinks (singleton, debt, lp_pairs, stability_pool, eco)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton)
		DO UPDATE SET debt = $1, lp_pairs = $2, stability_pool = $3, eco = $4
	`

	_, err := s.pool.Exec(ctx, query, sinks.Debt, sinks.LPPairs, sinks.StabilityPool, sinks.Eco)
	if err != nil {
		return fmt.Errorf("set sinks: %w", err)
	}
	return nil
}

// ParamStore implements storage.ParamStore using PostgreSQL.
type ParamStore struct {
	pool *Pool
}

// NewParamStore creates a new ParamStore.
func NewParamStore(pool *Pool) *ParamStore {
	return &ParamStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParamStore = (*ParamStore)(nil)

// GetLPSplit returns the LP secondary split. Returns ErrNotFound before the
// first Set.
func (s *ParamStore) GetLPSplit(ctx context.Context) (*domain.LPSplit, error) {
	query := `SELECT pairs_bps, pool_bps FROM protocol_params`

	var split domain.LPSplit
	err := s.pool.QueryRow(ctx, query).Scan(&split.PairsBps, &split.PoolBps)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lp split: %w", err)
	}
	return &split, nil
}

// SetLPSplit replaces the LP secondary split.
func (s *ParamStore) SetLPSplit(ctx context.Context, split *domain.LPSplit) error {
	if split == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO protocol_params (singleton, pairs_bps, pool_bps)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (singleton)
		DO UPDATE SET pairs_bps = $1, pool_bps = $2
	`

	if _, err := s.pool.Exec(ctx, query, split.PairsBps, split.PoolBps); err != nil {
		return fmt.Errorf("set lp split: %w", err)
	}
	return nil
}
