package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/math"
	"github.com/gorilla/websocket"

	"emission-engine/internal/aggregator"
	"emission-engine/internal/domain"
	"emission-engine/internal/emission"
	"emission-engine/internal/engine"
	"emission-engine/internal/escrow"
	"emission-engine/internal/gauge"
	"emission-engine/internal/merkle"
	"emission-engine/internal/observability"
	"emission-engine/internal/router"
	"emission-engine/internal/settlement"
	"emission-engine/internal/staking"
	"emission-engine/internal/storage"
	"emission-engine/internal/vesting"
)

// apiServer serves the JSON API and the WebSocket event feed.
type apiServer struct {
	engine    *engine.Engine
	logger    *log.Logger
	startedAt time.Time
	upgrader  websocket.Upgrader
}

func newAPIServer(eng *engine.Engine, logger *log.Logger) *apiServer {
	return &apiServer{
		engine:    eng,
		logger:    logger,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// routes builds the full handler tree.
func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("GET /status", s.handleStatus)

	// Schedule and routing
	mux.HandleFunc("GET /v1/periods/current", s.instrument("period_current", s.handleCurrentPeriod))
	mux.HandleFunc("GET /v1/periods/{period}/budget", s.instrument("period_budget", s.handleBudget))
	mux.HandleFunc("POST /v1/periods/{period}/route", s.instrument("period_route", s.handleRoutePeriod))
	mux.HandleFunc("GET /v1/routing", s.instrument("routing_history", s.handleRoutingHistory))
	mux.HandleFunc("GET /v1/roles/routing", s.instrument("routing_roles", s.handleRoutingRoles))
	mux.HandleFunc("POST /v1/roles/routing", s.instrument("grant_routing_role", s.handleGrantRoutingRole))
	mux.HandleFunc("POST /v1/roles/routing/revoke", s.instrument("revoke_routing_role", s.handleRevokeRoutingRole))
	mux.HandleFunc("POST /v1/sinks", s.instrument("set_sinks", s.handleSetSinks))
	mux.HandleFunc("POST /v1/lp-split", s.instrument("set_lp_split", s.handleSetLPSplit))
	mux.HandleFunc("POST /v1/mint", s.instrument("mint", s.handleMint))
	mux.HandleFunc("POST /v1/fund-router", s.instrument("fund_router", s.handleFundRouter))
	mux.HandleFunc("GET /v1/balances/{account}/{token}", s.instrument("balance", s.handleBalance))

	// Gauge
	mux.HandleFunc("POST /v1/votes", s.instrument("vote", s.handleVote))
	mux.HandleFunc("GET /v1/periods/{period}/weights", s.instrument("pool_weights", s.handlePoolWeights))

	// Boost staking
	mux.HandleFunc("POST /v1/stake", s.instrument("stake", s.handleStake))
	mux.HandleFunc("POST /v1/unstake", s.instrument("unstake", s.handleUnstake))
	mux.HandleFunc("GET /v1/multiplier/{owner}", s.instrument("multiplier", s.handleMultiplier))

	// Vote escrow
	mux.HandleFunc("POST /v1/locks", s.instrument("lock", s.handleLock))
	mux.HandleFunc("POST /v1/locks/{id}/extend", s.instrument("lock_extend", s.handleExtendLock))
	mux.HandleFunc("POST /v1/locks/{id}/withdraw", s.instrument("lock_withdraw", s.handleWithdrawLock))
	mux.HandleFunc("GET /v1/voting-power/{owner}", s.instrument("voting_power", s.handleVotingPower))

	// Settlement
	mux.HandleFunc("POST /v1/roots", s.instrument("update_root", s.handleUpdateRoot))
	mux.HandleFunc("POST /v1/claims", s.instrument("claim", s.handleClaim))
	mux.HandleFunc("GET /v1/periods/{period}/distribution", s.instrument("distribution", s.handleDistribution))

	// Vesting
	mux.HandleFunc("GET /v1/vesting/{beneficiary}", s.instrument("vesting_claimable", s.handleClaimable))
	mux.HandleFunc("POST /v1/vesting/claim", s.instrument("vesting_claim", s.handleClaimVested))
	mux.HandleFunc("POST /v1/vesting/early-exit", s.instrument("vesting_early_exit", s.handleEarlyExit))

	// WebSocket event feed
	mux.HandleFunc("/ws/events", s.handleEventFeed)

	return mux
}

// instrument records request latency and status for a route.
func (s *apiServer) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		observability.RecordHTTPRequest(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// --- response helpers ---

type errorResponse struct {
	Error string `json:"error"`
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Failed to encode response: %v", err)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusOf(err), errorResponse{Error: err.Error()})
}

// statusOf maps domain failures to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, settlement.ErrRootNotSet),
		errors.Is(err, vesting.ErrNoSchedule):
		return http.StatusNotFound
	case errors.Is(err, router.ErrAlreadyRouted),
		errors.Is(err, settlement.ErrAlreadyClaimed),
		errors.Is(err, settlement.ErrRootFrozen),
		errors.Is(err, gauge.ErrVotingClosed),
		errors.Is(err, aggregator.ErrPeriodOpen),
		errors.Is(err, staking.ErrLockNotExpired),
		errors.Is(err, escrow.ErrLockNotExpired):
		return http.StatusConflict
	case errors.Is(err, emission.ErrInvalidPeriod),
		errors.Is(err, emission.ErrInvalidSplitConfig),
		errors.Is(err, gauge.ErrInvalidWeightSum),
		errors.Is(err, gauge.ErrNoVotingPower),
		errors.Is(err, settlement.ErrInvalidProof),
		errors.Is(err, staking.ErrInsufficientStake),
		errors.Is(err, escrow.ErrInvalidLockEnd),
		errors.Is(err, escrow.ErrNotLockOwner),
		errors.Is(err, router.ErrSinkNotConfigured),
		errors.Is(err, router.ErrInsufficientBalance),
		errors.Is(err, aggregator.ErrPeriodNotRouted),
		errors.Is(err, aggregator.ErrNoWeights),
		errors.Is(err, vesting.ErrNothingToVest),
		errors.Is(err, vesting.ErrNothingClaimable),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, storage.ErrInsufficientFunds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("malformed request")

func (s *apiServer) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, errBadRequest
	}
	return n, nil
}

func parseAmount(s string) (math.Int, error) {
	amount, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, errBadRequest
	}
	return amount, nil
}

// --- status ---

type statusResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	CurrentPeriod int    `json:"current_period"`
	WSSubscribers int    `json:"ws_subscribers"`
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		Status:        "running",
		Uptime:        time.Since(s.startedAt).String(),
		CurrentPeriod: s.engine.CurrentPeriod(),
		WSSubscribers: s.engine.EventHub().Subscribers(),
	})
}

// --- schedule and routing ---

func (s *apiServer) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]int{"period": s.engine.CurrentPeriod()})
}

type budgetResponse struct {
	Period        int    `json:"period"`
	Phase         string `json:"phase"`
	Total         string `json:"total"`
	Debt          string `json:"debt"`
	LPPairs       string `json:"lp_pairs"`
	StabilityPool string `json:"stability_pool"`
	Eco           string `json:"eco"`
}

func (s *apiServer) handleBudget(w http.ResponseWriter, r *http.Request) {
	period, err := pathInt(r, "period")
	if err != nil {
		s.writeError(w, err)
		return
	}

	budget, err := s.engine.Budget(r.Context(), period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, budgetResponse{
		Period:        budget.Period,
		Phase:         string(budget.Phase),
		Total:         budget.Total.String(),
		Debt:          budget.Debt.String(),
		LPPairs:       budget.LPPairs.String(),
		StabilityPool: budget.StabilityPool.String(),
		Eco:           budget.Eco.String(),
	})
}

type routingResponse struct {
	Period        int    `json:"period"`
	Total         string `json:"total"`
	Debt          string `json:"debt"`
	LPPairs       string `json:"lp_pairs"`
	StabilityPool string `json:"stability_pool"`
	Eco           string `json:"eco"`
	RoutedAtMs    int64  `json:"routed_at_ms"`
}

func toRoutingResponse(r *domain.RoutingRecord) routingResponse {
	return routingResponse{
		Period:        r.Period,
		Total:         r.Total.String(),
		Debt:          r.Debt.String(),
		LPPairs:       r.LPPairs.String(),
		StabilityPool: r.StabilityPool.String(),
		Eco:           r.Eco.String(),
		RoutedAtMs:    r.RoutedAtMs,
	}
}

type routePeriodRequest struct {
	Caller string `json:"caller"`
}

func (s *apiServer) handleRoutePeriod(w http.ResponseWriter, r *http.Request) {
	period, err := pathInt(r, "period")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req routePeriodRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	record, err := s.engine.RoutePeriod(r.Context(), req.Caller, period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRoutingResponse(record))
}

type routingRoleRequest struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
}

func (s *apiServer) handleRoutingRoles(w http.ResponseWriter, r *http.Request) {
	holders, err := s.engine.RoutingRoles(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"accounts": holders})
}

func (s *apiServer) handleGrantRoutingRole(w http.ResponseWriter, r *http.Request) {
	var req routingRoleRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.GrantRoutingRole(r.Context(), req.Caller, req.Account); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *apiServer) handleRevokeRoutingRole(w http.ResponseWriter, r *http.Request) {
	var req routingRoleRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.RevokeRoutingRole(r.Context(), req.Caller, req.Account); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *apiServer) handleRoutingHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.RoutingHistory(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]routingResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRoutingResponse(record))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type setSinksRequest struct {
	Caller        string `json:"caller"`
	Debt          string `json:"debt"`
	LPPairs       string `json:"lp_pairs"`
	StabilityPool string `json:"stability_pool"`
	Eco           string `json:"eco"`
}

func (s *apiServer) handleSetSinks(w http.ResponseWriter, r *http.Request) {
	var req setSinksRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	err := s.engine.SetSinks(r.Context(), req.Caller, &domain.ChannelSinks{
		Debt:          req.Debt,
		LPPairs:       req.LPPairs,
		StabilityPool: req.StabilityPool,
		Eco:           req.Eco,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

type setLPSplitRequest struct {
	Caller   string `json:"caller"`
	PairsBps int64  `json:"pairs_bps"`
	PoolBps  int64  `json:"pool_bps"`
}

func (s *apiServer) handleSetLPSplit(w http.ResponseWriter, r *http.Request) {
	var req setLPSplitRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.SetLPSplit(r.Context(), req.Caller, req.PairsBps, req.PoolBps); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

type mintRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *apiServer) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.Mint(r.Context(), req.Caller, req.Token, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

type fundRouterRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *apiServer) handleFundRouter(w http.ResponseWriter, r *http.Request) {
	var req fundRouterRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.FundRouter(r.Context(), req.Caller, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *apiServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.engine.Balance(r.Context(), r.PathValue("account"), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

// --- gauge ---

type voteRequest struct {
	Voter     string `json:"voter"`
	PoolID    string `json:"pool_id"`
	WeightBps int64  `json:"weight_bps"`
}

func (s *apiServer) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.Vote(r.Context(), req.Voter, req.PoolID, req.WeightBps); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

type poolWeightResponse struct {
	PoolID string `json:"pool_id"`
	Power  string `json:"power"`
}

func (s *apiServer) handlePoolWeights(w http.ResponseWriter, r *http.Request) {
	period, err := pathInt(r, "period")
	if err != nil {
		s.writeError(w, err)
		return
	}

	weights, err := s.engine.PoolWeights(r.Context(), period)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]poolWeightResponse, 0, len(weights))
	for _, weight := range weights {
		out = append(out, poolWeightResponse{PoolID: weight.PoolID, Power: weight.Power.String()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// --- boost staking ---

type stakeRequest struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

type stakeResponse struct {
	Owner   string `json:"owner"`
	Amount  string `json:"amount"`
	StartMs int64  `json:"start_ms"`
}

func (s *apiServer) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	position, err := s.engine.Stake(r.Context(), req.Owner, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stakeResponse{
		Owner:   position.Owner,
		Amount:  position.Amount.String(),
		StartMs: position.StartMs,
	})
}

func (s *apiServer) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	position, err := s.engine.Unstake(r.Context(), req.Owner, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stakeResponse{
		Owner:   position.Owner,
		Amount:  position.Amount.String(),
		StartMs: position.StartMs,
	})
}

func (s *apiServer) handleMultiplier(w http.ResponseWriter, r *http.Request) {
	multiplier, err := s.engine.Multiplier(r.Context(), r.PathValue("owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"multiplier_bps": multiplier})
}

// --- vote escrow ---

type lockRequest struct {
	Owner     string `json:"owner"`
	Amount    string `json:"amount"`
	LockEndMs int64  `json:"lock_end_ms"`
}

type lockResponse struct {
	ID          int64  `json:"id"`
	Owner       string `json:"owner"`
	Amount      string `json:"amount"`
	LockEndMs   int64  `json:"lock_end_ms"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

func toLockResponse(l *domain.VoteEscrowLock) lockResponse {
	return lockResponse{
		ID:          l.ID,
		Owner:       l.Owner,
		Amount:      l.Amount.String(),
		LockEndMs:   l.LockEndMs,
		CreatedAtMs: l.CreatedAtMs,
	}
}

func (s *apiServer) handleLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	lock, err := s.engine.Lock(r.Context(), req.Owner, amount, req.LockEndMs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toLockResponse(lock))
}

type extendLockRequest struct {
	Owner     string `json:"owner"`
	AddAmount string `json:"add_amount"`
	NewEndMs  int64  `json:"new_end_ms"`
}

func (s *apiServer) handleExtendLock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, errBadRequest)
		return
	}
	var req extendLockRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	addAmount := math.ZeroInt()
	if req.AddAmount != "" {
		if addAmount, err = parseAmount(req.AddAmount); err != nil {
			s.writeError(w, err)
			return
		}
	}

	lock, err := s.engine.ExtendLock(r.Context(), req.Owner, id, addAmount, req.NewEndMs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toLockResponse(lock))
}

type withdrawLockRequest struct {
	Owner string `json:"owner"`
}

func (s *apiServer) handleWithdrawLock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, errBadRequest)
		return
	}
	var req withdrawLockRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	amount, err := s.engine.WithdrawLock(r.Context(), req.Owner, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"released": amount.String()})
}

func (s *apiServer) handleVotingPower(w http.ResponseWriter, r *http.Request) {
	power, err := s.engine.VotingPower(r.Context(), r.PathValue("owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"power": power.String()})
}

// --- settlement ---

type updateRootRequest struct {
	Caller string `json:"caller"`
	Period int    `json:"period"`
	Token  string `json:"token"`
	Root   string `json:"root"`
}

func (s *apiServer) handleUpdateRoot(w http.ResponseWriter, r *http.Request) {
	var req updateRootRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.engine.UpdateRoot(r.Context(), req.Caller, req.Period, req.Token, req.Root); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

type claimRequest struct {
	Period      int      `json:"period"`
	Token       string   `json:"token"`
	Beneficiary string   `json:"beneficiary"`
	Amount      string   `json:"amount"`
	Proof       []string `json:"proof"`
}

type claimResponse struct {
	LeafHash    string `json:"leaf_hash"`
	Amount      string `json:"amount"`
	Boosted     string `json:"boosted"`
	ClaimedAtMs int64  `json:"claimed_at_ms"`
}

func (s *apiServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	proof := make([][32]byte, 0, len(req.Proof))
	for _, hex := range req.Proof {
		node, err := merkle.DecodeHash(hex)
		if err != nil {
			s.writeError(w, errBadRequest)
			return
		}
		proof = append(proof, node)
	}

	claim, err := s.engine.Claim(r.Context(), req.Period, req.Token, req.Beneficiary, amount, proof)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, claimResponse{
		LeafHash:    claim.LeafHash,
		Amount:      claim.Amount.String(),
		Boosted:     claim.Boosted.String(),
		ClaimedAtMs: claim.ClaimedAtMs,
	})
}

func (s *apiServer) handleDistribution(w http.ResponseWriter, r *http.Request) {
	period, err := pathInt(r, "period")
	if err != nil {
		s.writeError(w, err)
		return
	}

	dist, err := s.engine.BuildDistribution(r.Context(), period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dist)
}

// --- vesting ---

func (s *apiServer) handleClaimable(w http.ResponseWriter, r *http.Request) {
	claimable, err := s.engine.Claimable(r.Context(), r.PathValue("beneficiary"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"claimable": claimable.String()})
}

type vestingRequest struct {
	Beneficiary string `json:"beneficiary"`
}

func (s *apiServer) handleClaimVested(w http.ResponseWriter, r *http.Request) {
	var req vestingRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	released, err := s.engine.ClaimVested(r.Context(), req.Beneficiary)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"released": released.String()})
}

func (s *apiServer) handleEarlyExit(w http.ResponseWriter, r *http.Request) {
	var req vestingRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	released, forfeited, err := s.engine.EarlyExit(r.Context(), req.Beneficiary)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"released":  released.String(),
		"forfeited": forfeited.String(),
	})
}

// --- WebSocket event feed ---

// handleEventFeed streams distribution events to the client until it
// disconnects.
func (s *apiServer) handleEventFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	hub := s.engine.EventHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	observability.WSClientConnected()
	defer observability.WSClientDisconnected()

	// Drain client frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for event := range ch {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
