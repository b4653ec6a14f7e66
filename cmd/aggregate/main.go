// Package main is the one-shot aggregator: it derives the per-pool split of
// a routed period, writes the claim proofs document, and optionally
// publishes the root for settlement.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"cosmossdk.io/math"

	"emission-engine/internal/config"
	"emission-engine/internal/domain"
	"emission-engine/internal/engine"
	chstore "emission-engine/internal/storage/clickhouse"
	pgstore "emission-engine/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	period := flag.Int("period", 0, "Closed period to aggregate")
	output := flag.String("output", "", "Proofs JSON path (default distribution_<period>.json)")
	publish := flag.Bool("publish", false, "Publish the root for settlement")
	flag.Parse()

	logger := log.New(os.Stderr, "[aggregate] ", log.LstdFlags)

	if *period < domain.FirstPeriod || *period > domain.LastPeriod {
		logger.Fatalf("--period must be between %d and %d", domain.FirstPeriod, domain.LastPeriod)
	}
	path := *output
	if path == "" {
		path = fmt.Sprintf("distribution_%d.json", *period)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}
	if cfg.Database.PostgresURL == "" || cfg.Database.ClickHouseURL == "" {
		logger.Fatal("postgres and clickhouse DSNs are required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresURL)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	chConn, err := chstore.NewConn(ctx, cfg.Database.ClickHouseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to clickhouse: %v", err)
	}
	defer chConn.Close()

	stakingCap, ok := math.NewIntFromString(cfg.Staking.CapAmount)
	if !ok {
		logger.Fatalf("Invalid staking.cap_amount: %q", cfg.Staking.CapAmount)
	}

	eng := engine.Build(engine.Stores{
		Accounts: pgstore.NewAccountStore(pool),
		Routed:   pgstore.NewRoutedPeriodStore(pool),
		Journal:  pgstore.NewRoutingJournal(pool),
		Sinks:    pgstore.NewSinkStore(pool),
		Params:   pgstore.NewParamStore(pool),
		Votes:    pgstore.NewGaugeVoteStore(pool),
		Stakes:   pgstore.NewStakeStore(pool),
		Locks:    pgstore.NewLockStore(pool),
		Roots:    pgstore.NewRootStore(pool),
		Claims:   pgstore.NewClaimStore(pool),
		Vesting:  pgstore.NewVestingStore(pool),
		Events:   chstore.NewEventStore(chConn),
		Roles:    pgstore.NewRoutingRoleStore(pool),
	}, engine.BuildOptions{
		GenesisMs:      cfg.Protocol.GenesisMs,
		StakingCap:     stakingCap,
		StakingMinLock: int64(cfg.Staking.MinLockDays) * 24 * 60 * 60 * 1000,
		Governance:     cfg.Authority.Governance,
		Logger:         logger,
	})

	dist, err := eng.BuildDistribution(ctx, *period)
	if err != nil {
		logger.Fatalf("Failed to build distribution for period %d: %v", *period, err)
	}
	logger.Printf("Period %d: %d pool allocations, root %s", dist.Period, len(dist.Allocations), dist.Root)

	if err := dist.WriteFile(path); err != nil {
		logger.Fatalf("Failed to write proofs document: %v", err)
	}
	logger.Printf("Proofs written to %s", path)

	if *publish {
		if err := eng.UpdateRoot(ctx, cfg.Authority.Governance, dist.Period, dist.Token, dist.Root); err != nil {
			logger.Fatalf("Failed to publish root: %v", err)
		}
		logger.Printf("Root published for period %d token %s", dist.Period, dist.Token)
	}
}
