// Package main runs the distribution service: the HTTP API, the WebSocket
// event feed, and the scheduler that routes each weekly period once its
// window closes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cosmossdk.io/math"
	"github.com/robfig/cron/v3"

	"emission-engine/internal/config"
	"emission-engine/internal/domain"
	"emission-engine/internal/engine"
	chstore "emission-engine/internal/storage/clickhouse"
	"emission-engine/internal/storage/memory"
	pgstore "emission-engine/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	validateAddrs := flag.Bool("validate-addresses", true, "Reject malformed beneficiary addresses")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *postgresDSN != "" {
		cfg.Database.PostgresURL = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Database.ClickHouseURL = *clickhouseDSN
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}
	if !*useMemory && (cfg.Database.PostgresURL == "" || cfg.Database.ClickHouseURL == "") {
		logger.Fatal("postgres and clickhouse DSNs are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg.Database.PostgresURL, cfg.Database.ClickHouseURL, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	stakingCap, ok := math.NewIntFromString(cfg.Staking.CapAmount)
	if !ok {
		logger.Fatalf("Invalid staking.cap_amount: %q", cfg.Staking.CapAmount)
	}

	eng := engine.Build(stores, engine.BuildOptions{
		GenesisMs:      cfg.Protocol.GenesisMs,
		StakingCap:     stakingCap,
		StakingMinLock: int64(cfg.Staking.MinLockDays) * 24 * 60 * 60 * 1000,
		Governance:     cfg.Authority.Governance,
		ValidateAddrs:  *validateAddrs,
		Logger:         logger,
	})

	// Push the configured sinks into the engine before any routing runs;
	// the config file is the source of truth on boot.
	if err := applySinks(ctx, eng, cfg); err != nil {
		logger.Fatalf("Failed to apply configured sinks: %v", err)
	}

	// Route anything already due, then keep up on the cron schedule.
	if routed, err := eng.RouteDue(ctx); err != nil {
		logger.Printf("Initial routing sweep failed: %v", err)
	} else if len(routed) > 0 {
		logger.Printf("Initial sweep routed %d periods", len(routed))
	}

	scheduler := cron.New(cron.WithSeconds())
	_, err = scheduler.AddFunc(cfg.Schedule.RouteCron, func() {
		routed, err := eng.RouteDue(ctx)
		if err != nil {
			logger.Printf("Scheduled routing failed: %v", err)
			return
		}
		if len(routed) > 0 {
			logger.Printf("Scheduled sweep routed %d periods", len(routed))
		}
	})
	if err != nil {
		logger.Fatalf("Invalid route cron %q: %v", cfg.Schedule.RouteCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	api := newAPIServer(eng, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Starting HTTP server on %s (period clock anchored at %d)", cfg.Server.HTTPAddr, cfg.Protocol.GenesisMs)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// applySinks stores the config file's channel sinks through the engine, so
// the first routing sweep has somewhere to send funds.
func applySinks(ctx context.Context, eng *engine.Engine, cfg *config.Config) error {
	return eng.SetSinks(ctx, cfg.Authority.Governance, &domain.ChannelSinks{
		Debt:          cfg.Sinks.Debt,
		LPPairs:       cfg.Sinks.LPPairs,
		StabilityPool: cfg.Sinks.StabilityPool,
		Eco:           cfg.Sinks.Eco,
	})
}

// createStores wires every store the engine needs.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (engine.Stores, func(), error) {
	if useMemory {
		accounts := memory.NewAccountStore()
		routed := memory.NewRoutedPeriodStore()
		stores := engine.Stores{
			Accounts: accounts,
			Routed:   routed,
			Journal:  memory.NewRoutingJournal(routed, accounts),
			Sinks:    memory.NewSinkStore(),
			Params:   memory.NewParamStore(),
			Votes:    memory.NewGaugeVoteStore(),
			Stakes:   memory.NewStakeStore(),
			Locks:    memory.NewLockStore(),
			Roots:    memory.NewRootStore(),
			Claims:   memory.NewClaimStore(),
			Vesting:  memory.NewVestingStore(),
			Events:   memory.NewEventStore(),
			Roles:    memory.NewRoutingRoleStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return engine.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return engine.Stores{}, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return engine.Stores{}, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := chConn.Migrate(ctx); err != nil {
		chConn.Close()
		pool.Close()
		return engine.Stores{}, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := engine.Stores{
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
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
