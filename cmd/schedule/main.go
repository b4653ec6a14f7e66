// Package main prints the full emission schedule, verifies that each phase
// sums exactly to its allotment, and optionally exports the table as CSV.
// With --events-dsn it also reports the recorded distribution trail.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/emission"
	chstore "emission-engine/internal/storage/clickhouse"
	"emission-engine/internal/storage/memory"
)

func main() {
	csvPath := flag.String("csv", "", "Write the schedule as CSV to this path")
	quiet := flag.Bool("quiet", false, "Only verify, do not print the table")
	pairsBps := flag.Int64("lp-pairs-bps", 5000, "LP secondary split: pairs share in bps")
	poolBps := flag.Int64("lp-pool-bps", 5000, "LP secondary split: pool share in bps")
	eventsDSN := flag.String("events-dsn", os.Getenv("CLICKHOUSE_URL"), "ClickHouse DSN; report the distribution trail")
	eventsSinceMs := flag.Int64("events-since-ms", 0, "Trail report start, Unix ms (default: all)")
	flag.Parse()

	logger := log.New(os.Stderr, "[schedule] ", log.LstdFlags)
	ctx := context.Background()

	scheduler := emission.NewScheduler(memory.NewParamStore())
	if err := scheduler.SetLPSplit(ctx, *pairsBps, *poolBps); err != nil {
		logger.Fatalf("Invalid LP split: %v", err)
	}

	budgets := make([]*domain.PeriodBudget, 0, domain.LastPeriod)
	for period := domain.FirstPeriod; period <= domain.LastPeriod; period++ {
		budget, err := scheduler.Budget(ctx, period)
		if err != nil {
			logger.Fatalf("Budget for period %d: %v", period, err)
		}
		budgets = append(budgets, budget)
	}

	if !*quiet {
		printTable(budgets)
	}
	if err := verify(budgets); err != nil {
		logger.Fatalf("Conservation check failed: %v", err)
	}
	logger.Println("Conservation check passed: every phase sums exactly to its allotment")

	if *csvPath != "" {
		if err := writeCSV(*csvPath, budgets); err != nil {
			logger.Fatalf("CSV export failed: %v", err)
		}
		logger.Printf("Schedule written to %s", *csvPath)
	}

	if *eventsDSN != "" {
		if err := reportTrail(ctx, *eventsDSN, *eventsSinceMs); err != nil {
			logger.Fatalf("Trail report failed: %v", err)
		}
	}
}

// reportTrail prints the recorded distribution events and a per-kind tally.
func reportTrail(ctx context.Context, dsn string, sinceMs int64) error {
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	events, err := chstore.NewEventStore(conn).GetByTimeRange(ctx, sinceMs, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("read trail: %w", err)
	}

	fmt.Printf("\n%-15s %-7s %-6s %-20s %30s %15s\n", "kind", "period", "token", "account", "amount", "at_ms")
	tally := make(map[string]int)
	for _, e := range events {
		fmt.Printf("%-15s %-7d %-6s %-20s %30s %15d\n", e.Kind, e.Period, e.Token, e.Account, e.Amount, e.AtMs)
		tally[e.Kind]++
	}
	fmt.Printf("\n%d events", len(events))
	for _, kind := range []string{domain.EventPeriodRouted, domain.EventRootPublished, domain.EventClaimSettled, domain.EventVestReleased, domain.EventEarlyExit} {
		if tally[kind] > 0 {
			fmt.Printf(", %d %s", tally[kind], kind)
		}
	}
	fmt.Println()
	return nil
}

// printTable writes the schedule to stdout, one period per line.
func printTable(budgets []*domain.PeriodBudget) {
	fmt.Printf("%-7s %-6s %30s %30s %30s %30s %30s\n",
		"period", "phase", "total", "debt", "lp_pairs", "stability_pool", "eco")
	for _, b := range budgets {
		fmt.Printf("%-7d %-6s %30s %30s %30s %30s %30s\n",
			b.Period, b.Phase, b.Total, b.Debt, b.LPPairs, b.StabilityPool, b.Eco)
	}
}

// verify checks that per-phase totals hit the allotments exactly and that
// each period's channels reconstruct its total.
func verify(budgets []*domain.PeriodBudget) error {
	sums := map[domain.Phase]math.Int{
		domain.PhaseA: math.ZeroInt(),
		domain.PhaseB: math.ZeroInt(),
		domain.PhaseC: math.ZeroInt(),
	}

	for _, b := range budgets {
		channels := b.Debt.Add(b.LPPairs).Add(b.StabilityPool).Add(b.Eco)
		if !channels.Equal(b.Total) {
			return fmt.Errorf("period %d: channels sum to %s, total is %s", b.Period, channels, b.Total)
		}
		sums[b.Phase] = sums[b.Phase].Add(b.Total)
	}

	for _, phase := range []domain.Phase{domain.PhaseA, domain.PhaseB, domain.PhaseC} {
		allotment := emission.PhaseAllotment(phase)
		if !sums[phase].Equal(allotment) {
			return fmt.Errorf("phase %s: emitted %s, allotment is %s", phase, sums[phase], allotment)
		}
	}
	return nil
}

// writeCSV exports the schedule with one row per period.
func writeCSV(path string, budgets []*domain.PeriodBudget) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"period", "phase", "total", "debt", "lp_pairs", "stability_pool", "eco"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, b := range budgets {
		row := []string{
			fmt.Sprintf("%d", b.Period),
			string(b.Phase),
			b.Total.String(),
			b.Debt.String(),
			b.LPPairs.String(),
			b.StabilityPool.String(),
			b.Eco.String(),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", b.Period, err)
		}
	}
	return w.Error()
}
