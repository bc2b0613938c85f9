package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"degenmint/internal/chain"
	"degenmint/internal/config"
	"degenmint/internal/hmacauth"
	"degenmint/internal/orchestrator"
	"degenmint/internal/pricing"
	"degenmint/internal/state"
	"degenmint/internal/symbols"
)

// Server is the HTTP facade the UI talks to: synchronized state, price
// quotes, symbol availability, and purchase submission.
type Server struct {
	cfg         *config.AppConfig
	sync        *state.Service
	orch        *orchestrator.Orchestrator
	scanner     *symbols.Scanner
	hmac        *hmacauth.Verifier
	httpServer  *http.Server
	metrics     *metricsRegistry
	rpcHealthFn func(context.Context) error
}

func NewServer(cfg *config.AppConfig, syncSvc *state.Service, orch *orchestrator.Orchestrator, scanner *symbols.Scanner, reader chain.Reader) *Server {
	verifier := &hmacauth.Verifier{
		Secret:  cfg.Service.HMACSecret,
		MaxSkew: cfg.Service.HMACClockSkew,
	}

	metrics := newMetricsRegistry()
	orch.SetObserver(metrics.observe)

	s := &Server{
		cfg:     cfg,
		sync:    syncSvc,
		orch:    orch,
		scanner: scanner,
		hmac:    verifier,
		metrics: metrics,
	}

	if checker, ok := reader.(interface{ Ping(context.Context) error }); ok {
		s.rpcHealthFn = checker.Ping
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/refresh", s.handleRefresh)
	mux.HandleFunc("/api/v1/symbols", s.handleSymbols)
	mux.Handle("/api/v1/purchases/", verifier.Middleware(http.HandlerFunc(s.handlePurchases)))
	mux.Handle("/api/v1/metrics", metrics.handler())
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	log.Printf("API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type gameView struct {
	Level         uint64 `json:"level"`
	PriceWei      string `json:"priceWei"`
	Phase         string `json:"phase"`
	PresaleActive bool   `json:"presaleActive"`
	LastRefreshed string `json:"lastRefreshed,omitempty"`
	Source        string `json:"source"`
}

type playerView struct {
	Address           string          `json:"address"`
	HasActiveLazyPass bool            `json:"hasActiveLazyPass"`
	ActivityScoreBps  uint64          `json:"activityScoreBps"`
	MintStats         chain.MintStats `json:"mintStats"`
	BurnieBalance     string          `json:"burnieBalance"`
	Referrer          string          `json:"referrer,omitempty"`
	Quests            chain.QuestView `json:"quests"`
}

// quotesView carries the PriceOracle values derived from the current state,
// recomputed on every read so they always track the latest refresh.
type quotesView struct {
	TicketUnitWei   string `json:"ticketUnitWei"`
	LootboxBonusBps int    `json:"lootboxBonusBps"`
	WhaleUnitWei    string `json:"whaleUnitWei"`
	LazyPassWei     string `json:"lazyPassWei"`
}

type stateResponse struct {
	Game   gameView    `json:"game"`
	Player *playerView `json:"player,omitempty"`
	Quotes *quotesView `json:"quotes,omitempty"`
}

func sourceString(src state.Source) string {
	switch src {
	case state.SourceRemote:
		return "remote"
	case state.SourceCache:
		return "cache"
	default:
		return "none"
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.stateSnapshot())
}

func (s *Server) stateSnapshot() stateResponse {
	game := s.sync.Game()
	resp := stateResponse{
		Game: gameView{
			Level:         game.Level,
			Phase:         game.Phase.String(),
			PresaleActive: game.PresaleActive,
			Source:        sourceString(game.Source),
		},
	}
	if game.PriceWei != nil {
		resp.Game.PriceWei = game.PriceWei.String()
	}
	if !game.LastRefreshed.IsZero() {
		resp.Game.LastRefreshed = game.LastRefreshed.Format(time.RFC3339)
	}

	if game.Source != state.SourceNone && game.PriceWei != nil {
		bonusBps := pricing.BaseBonusBps
		if game.PresaleActive {
			bonusBps = pricing.PresaleBonusBps
		}
		resp.Quotes = &quotesView{
			TicketUnitWei:   game.PriceWei.String(),
			LootboxBonusBps: bonusBps,
			WhaleUnitWei:    pricing.WhaleBundleCost(game.Level, 1).String(),
			LazyPassWei:     pricing.LazyPassCost(game.Level, game.PriceWei).String(),
		}
	}

	if player, ok := s.sync.Player(); ok {
		view := &playerView{
			Address:           player.Address.Hex(),
			HasActiveLazyPass: player.HasActiveLazyPass,
			ActivityScoreBps:  player.ActivityScoreBps,
			MintStats:         player.MintStats,
			Quests:            player.Quests,
		}
		if player.BurnieBalance != nil {
			view.BurnieBalance = player.BurnieBalance.String()
		}
		if player.Referrer != nil {
			view.Referrer = player.Referrer.Hex()
		}
		resp.Player = view
	}

	return resp
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.metrics.incRefreshRequest()
	if err := s.sync.Refresh(r.Context()); err != nil {
		http.Error(w, "refresh failed, try again", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, s.stateSnapshot())
}

type symbolsResponse struct {
	Taken    []uint8 `json:"taken"`
	Assigned *uint8  `json:"assigned,omitempty"`
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taken := s.scanner.Scan(r.Context())
	s.metrics.incScan()

	resp := symbolsResponse{Taken: taken.IDs()}

	if sel := r.URL.Query().Get("selected"); sel != "" {
		cur, err := strconv.ParseUint(sel, 10, 8)
		if err != nil || cur >= symbols.SymbolCount {
			http.Error(w, "invalid selected symbol", http.StatusBadRequest)
			return
		}
		if id, ok := symbols.Reassign(uint8(cur), taken); ok {
			resp.Assigned = &id
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type purchaseRequest struct {
	Quantity           uint64 `json:"quantity"`
	LootboxAmount      string `json:"lootboxAmount"`
	LootboxTokenAmount string `json:"lootboxTokenAmount"`
	TokenAmount        string `json:"tokenAmount"`
	ReferralCode       string `json:"referralCode"`
	PaymentKind        uint8  `json:"paymentKind"`
	SymbolID           uint8  `json:"symbolId"`
}

type transactionView struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	ComputedValue string `json:"computedValue,omitempty"`
	TxHash        string `json:"txHash,omitempty"`
	ErrorReason   string `json:"errorReason,omitempty"`
}

func viewOf(tx orchestrator.Transaction) transactionView {
	view := transactionView{
		Kind:        string(tx.Kind),
		Status:      string(tx.Status),
		TxHash:      tx.TxHash,
		ErrorReason: tx.ErrorReason,
	}
	if tx.ComputedValue != nil {
		view.ComputedValue = tx.ComputedValue.String()
	}
	return view
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/purchases/")
	kindPart, action, _ := strings.Cut(rest, "/")
	kind := orchestrator.Kind(kindPart)

	switch {
	case r.Method == http.MethodGet && action == "":
		writeJSON(w, http.StatusOK, viewOf(s.orch.Status(kind)))
	case r.Method == http.MethodPost && action == "ack":
		s.orch.Acknowledge(kind)
		writeJSON(w, http.StatusOK, viewOf(s.orch.Status(kind)))
	case r.Method == http.MethodPost && action == "":
		s.handleSubmit(w, r, kind)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, kind orchestrator.Kind) {
	var payload purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var (
		tx  orchestrator.Transaction
		err error
	)

	switch kind {
	case orchestrator.KindTickets:
		tx, err = s.orch.PurchaseTickets(ctx, orchestrator.TicketOrder{
			Quantity:      payload.Quantity,
			LootboxAmount: payload.LootboxAmount,
			ReferralCode:  payload.ReferralCode,
			PaymentKind:   payload.PaymentKind,
		})
	case orchestrator.KindTokenTickets:
		tx, err = s.orch.PurchaseTokenTickets(ctx, orchestrator.TokenTicketOrder{
			Quantity:           payload.Quantity,
			LootboxTokenAmount: payload.LootboxTokenAmount,
		})
	case orchestrator.KindTokenLootbox:
		tx, err = s.orch.PurchaseTokenLootbox(ctx, orchestrator.TokenLootboxOrder{
			TokenAmount: payload.TokenAmount,
		})
	case orchestrator.KindWhaleBundle:
		tx, err = s.orch.PurchaseWhaleBundle(ctx, orchestrator.WhaleOrder{Quantity: payload.Quantity})
	case orchestrator.KindLazyPass:
		tx, err = s.orch.PurchaseLazyPass(ctx)
	case orchestrator.KindDeityPass:
		tx, err = s.orch.PurchaseDeityPass(ctx, orchestrator.DeityOrder{SymbolID: payload.SymbolID})
	default:
		http.Error(w, "unknown purchase kind", http.StatusNotFound)
		return
	}

	if err != nil {
		s.writeSubmitError(w, tx, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewOf(tx))
}

// writeSubmitError maps the error taxonomy onto HTTP statuses. Declines and
// reverts are not transport failures: the transaction snapshot carries the
// reason and the UI decides how to present it.
func (s *Server) writeSubmitError(w http.ResponseWriter, tx orchestrator.Transaction, err error) {
	var validation *orchestrator.ValidationError
	var revert *chain.RevertError

	switch {
	case errors.As(err, &validation):
		http.Error(w, validation.Msg, http.StatusBadRequest)
	case errors.Is(err, orchestrator.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, orchestrator.ErrStateNotReady):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, chain.ErrUserDeclined), errors.As(err, &revert):
		writeJSON(w, http.StatusOK, viewOf(tx))
	case errors.Is(err, chain.ErrRemoteUnavailable):
		http.Error(w, "no wallet connection available", http.StatusServiceUnavailable)
	default:
		http.Error(w, "submission failed, try again", http.StatusBadGateway)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Error = err.Error()
			overallHealthy = false
		} else {
			rpcInfo.Connected = true
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	} else {
		rpcInfo.Connected = true
	}

	game := s.sync.Game()
	stateInfo := struct {
		Source        string `json:"source"`
		LastRefreshed string `json:"lastRefreshed,omitempty"`
	}{Source: sourceString(game.Source)}
	if !game.LastRefreshed.IsZero() {
		stateInfo.LastRefreshed = game.LastRefreshed.Format(time.RFC3339)
	}

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status string      `json:"status"`
		RPC    interface{} `json:"rpc"`
		State  interface{} `json:"state"`
	}{
		Status: status,
		RPC:    rpcInfo,
		State:  stateInfo,
	}

	if !overallHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, 0, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status > 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			r.Header.Set("X-Request-Id", fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		next.ServeHTTP(w, r)
	})
}
