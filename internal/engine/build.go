package engine

import (
	"log"

	"cosmossdk.io/math"

	"emission-engine/internal/aggregator"
	"emission-engine/internal/emission"
	"emission-engine/internal/escrow"
	"emission-engine/internal/events"
	"emission-engine/internal/gauge"
	"emission-engine/internal/ledger"
	"emission-engine/internal/router"
	"emission-engine/internal/settlement"
	"emission-engine/internal/staking"
	"emission-engine/internal/storage"
	"emission-engine/internal/vesting"
)

// Stores bundles every store the engine needs, whatever backs them.
type Stores struct {
	Accounts storage.AccountStore
	Routed   storage.RoutedPeriodStore
	Journal  storage.RoutingJournal
	Sinks    storage.SinkStore
	Params   storage.ParamStore
	Votes    storage.GaugeVoteStore
	Stakes   storage.StakeStore
	Locks    storage.LockStore
	Roots    storage.RootStore
	Claims   storage.ClaimStore
	Vesting  storage.VestingStore
	Events   storage.EventStore
	Roles    storage.RoutingRoleStore
}

// BuildOptions are the protocol parameters for Build.
type BuildOptions struct {
	GenesisMs      int64
	StakingCap     math.Int
	StakingMinLock int64
	Governance     string
	ValidateAddrs  bool
	Logger         *log.Logger
	NowMs          func() int64
}

// Build wires a complete Engine over the given stores.
func Build(stores Stores, opts BuildOptions) *Engine {
	scheduler := emission.NewScheduler(stores.Params)
	tokenLedger := ledger.New(stores.Accounts, opts.Logger, opts.ValidateAddrs)
	channelRouter := router.New(router.Options{
		Scheduler: scheduler,
		SinkStore: stores.Sinks,
		Routed:    stores.Routed,
		Journal:   stores.Journal,
		Accounts:  stores.Accounts,
		Logger:    opts.Logger,
		NowMs:     opts.NowMs,
	})
	lockBook := escrow.NewLockBook(stores.Locks, stores.Accounts, opts.NowMs)
	gaugeController := gauge.New(stores.Votes, lockBook, opts.GenesisMs, opts.NowMs)
	boost := staking.New(staking.Options{
		Stakes:    stores.Stakes,
		Accounts:  stores.Accounts,
		CapAmount: opts.StakingCap,
		MinLockMs: opts.StakingMinLock,
		NowMs:     opts.NowMs,
	})
	vestingLedger := vesting.NewLedger(stores.Vesting, stores.Accounts, opts.NowMs)
	settle := settlement.New(settlement.Options{
		Roots:   stores.Roots,
		Claims:  stores.Claims,
		Staking: boost,
		Vesting: vestingLedger,
		Logger:  opts.Logger,
		NowMs:   opts.NowMs,
	})
	agg := aggregator.New(gaugeController, channelRouter, settle, opts.Logger)
	hub := events.NewHub(stores.Events, opts.Logger)

	return New(Options{
		Scheduler:  scheduler,
		Router:     channelRouter,
		Gauge:      gaugeController,
		Staking:    boost,
		Settlement: settle,
		Vesting:    vestingLedger,
		LockBook:   lockBook,
		Ledger:     tokenLedger,
		Aggregator: agg,
		Hub:        hub,
		Roles:      stores.Roles,
		Governance: opts.Governance,
		Logger:     opts.Logger,
		NowMs:      opts.NowMs,
	})
}

// Hub exposes the event hub for the API layer's WebSocket feed.
func (e *Engine) EventHub() *events.Hub { return e.hub }
