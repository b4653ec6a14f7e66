package main

import (
	"context"
	"io"
	"log"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emission-engine/internal/config"
	"emission-engine/internal/domain"
	"emission-engine/internal/engine"
	"emission-engine/internal/gauge"
)

func TestApplySinks_EnablesRoutingSweep(t *testing.T) {
	ctx := context.Background()
	const genesisMs = int64(1704067200000)

	cfg := &config.Config{}
	cfg.Protocol.GenesisMs = genesisMs
	cfg.Authority.Governance = "gov-council"
	cfg.Sinks.Debt = "debt-sink"
	cfg.Sinks.LPPairs = "lp-pairs-sink"
	cfg.Sinks.StabilityPool = "stability-sink"
	cfg.Sinks.Eco = "eco-sink"
	require.NoError(t, cfg.Validate())

	stores, cleanup, err := createStores(ctx, "", "", true)
	require.NoError(t, err)
	defer cleanup()

	// One closed period is due when the server comes up.
	now := genesisMs + gauge.EpochMs
	eng := engine.Build(stores, engine.BuildOptions{
		GenesisMs:  cfg.Protocol.GenesisMs,
		StakingCap: math.NewInt(1_000_000),
		Governance: cfg.Authority.Governance,
		Logger:     log.New(io.Discard, "", 0),
		NowMs:      func() int64 { return now },
	})

	require.NoError(t, eng.Mint(ctx, cfg.Authority.Governance, domain.TokenEmission, math.NewIntWithDecimal(7_000_000_000, 18)))
	require.NoError(t, eng.FundRouter(ctx, cfg.Authority.Governance, math.NewIntWithDecimal(1_000_000_000, 18)))

	// The boot sequence applies the config file's sinks before the first
	// sweep; without that the sweep cannot route anything.
	require.NoError(t, applySinks(ctx, eng, cfg))

	routed, err := eng.RouteDue(ctx)
	require.NoError(t, err)
	require.Len(t, routed, 1)
	assert.Equal(t, 1, routed[0].Period)

	balance, err := eng.Balance(ctx, cfg.Sinks.Debt, domain.TokenEmission)
	require.NoError(t, err)
	assert.True(t, balance.Equal(routed[0].Debt), "debt sink holds %s", balance)
}
