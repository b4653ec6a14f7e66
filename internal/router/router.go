// Package router distributes each period's emission budget to the four
// channel sinks, at most once per period.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/emission"
	"emission-engine/internal/storage"
)

// Router errors.
var (
	// ErrAlreadyRouted is returned when a period has already been routed.
	// Explicit, never silent: a swallowed duplicate would mask a
	// double-spend bug in the caller.
	ErrAlreadyRouted = errors.New("period already routed")

	// ErrSinkNotConfigured is returned while any of the four sinks is unset.
	ErrSinkNotConfigured = errors.New("channel sinks not configured")

	// ErrInsufficientBalance is returned when the router account holds less
	// than the period total. Fund the router and retry; nothing was marked
	// routed.
	ErrInsufficientBalance = errors.New("router balance below period total")
)

// Router routes period budgets to the channel sinks.
type Router struct {
	scheduler *emission.Scheduler
	sinks     storage.SinkStore
	routed    storage.RoutedPeriodStore
	journal   storage.RoutingJournal
	accounts  storage.AccountStore
	logger    *log.Logger
	nowMs     func() int64
}

// Options for creating a Router.
type Options struct {
	Scheduler *emission.Scheduler
	SinkStore storage.SinkStore
	Routed    storage.RoutedPeriodStore
	Journal   storage.RoutingJournal
	Accounts  storage.AccountStore
	Logger    *log.Logger

	// NowMs overrides the clock, for tests.
	NowMs func() int64
}

// New creates a Router.
func New(opts Options) *Router {
	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[router] ", log.LstdFlags)
	}
	return &Router{
		scheduler: opts.Scheduler,
		sinks:     opts.SinkStore,
		routed:    opts.Routed,
		journal:   opts.Journal,
		accounts:  opts.Accounts,
		logger:    logger,
		nowMs:     nowMs,
	}
}

// SetSinks replaces the channel sink configuration. All four accounts must
// be set; routing with partial configuration is never allowed.
func (r *Router) SetSinks(ctx context.Context, sinks *domain.ChannelSinks) error {
	if !sinks.Configured() {
		return ErrSinkNotConfigured
	}
	if err := r.sinks.Set(ctx, sinks); err != nil {
		return fmt.Errorf("store sinks: %w", err)
	}
	return nil
}

// Sinks returns the current sink configuration, or ErrSinkNotConfigured.
func (r *Router) Sinks(ctx context.Context) (*domain.ChannelSinks, error) {
	sinks, err := r.sinks.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSinkNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("load sinks: %w", err)
	}
	return sinks, nil
}

// Route distributes the budget of one period to the four sinks.
//
// The routed-period record and the four sink transfers commit through the
// journal as one atomic unit: a concurrent duplicate fails with
// ErrAlreadyRouted, and a failing transfer leg rolls the routed marker back
// with it. A failed call leaves no partial state, so retry after funding or
// configuration is always safe.
func (r *Router) Route(ctx context.Context, period int) (*domain.RoutingRecord, error) {
	budget, err := r.scheduler.Budget(ctx, period)
	if err != nil {
		return nil, err
	}

	sinks, err := r.Sinks(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := r.accounts.Balance(ctx, domain.AccountRouter, domain.TokenEmission)
	if err != nil {
		return nil, fmt.Errorf("read router balance: %w", err)
	}
	if balance.LT(budget.Total) {
		return nil, ErrInsufficientBalance
	}

	record := &domain.RoutingRecord{
		Period:        period,
		Total:         budget.Total,
		Debt:          budget.Debt,
		LPPairs:       budget.LPPairs,
		StabilityPool: budget.StabilityPool,
		Eco:           budget.Eco,
		RoutedAtMs:    r.nowMs(),
	}
	transfers := buildTransfers(budget, sinks)
	if err := r.journal.Commit(ctx, record, transfers); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			return nil, ErrAlreadyRouted
		case errors.Is(err, storage.ErrInsufficientFunds):
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("commit routing: %w", err)
	}

	r.logger.Printf("routed period %d: total=%s debt=%s lpPairs=%s stability=%s eco=%s",
		period, budget.Total, budget.Debt, budget.LPPairs, budget.StabilityPool, budget.Eco)

	return record, nil
}

// Routed returns the routing record for a period, or storage.ErrNotFound.
func (r *Router) Routed(ctx context.Context, period int) (*domain.RoutingRecord, error) {
	return r.routed.Get(ctx, period)
}

// History returns all routing records ordered by period.
func (r *Router) History(ctx context.Context) ([]*domain.RoutingRecord, error) {
	return r.routed.List(ctx)
}

// buildTransfers assembles the sink legs, skipping zero amounts.
func buildTransfers(budget *domain.PeriodBudget, sinks *domain.ChannelSinks) []domain.Transfer {
	legs := []struct {
		to     Sink
		amount math.Int
	}{
		{AccountSink(sinks.Debt), budget.Debt},
		{AccountSink(sinks.LPPairs), budget.LPPairs},
		{AccountSink(sinks.StabilityPool), budget.StabilityPool},
		{AccountSink(sinks.Eco), budget.Eco},
	}

	transfers := make([]domain.Transfer, 0, len(legs))
	for _, leg := range legs {
		if leg.amount.IsZero() {
			continue
		}
		transfers = append(transfers, domain.Transfer{
			Token:  domain.TokenEmission,
			From:   domain.AccountRouter,
			To:     leg.to.ReceiveAccount(),
			Amount: leg.amount,
		})
	}
	return transfers
}
