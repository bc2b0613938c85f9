package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"degenmint/internal/cache"
	"degenmint/internal/chain"
	"degenmint/internal/config"
	"degenmint/internal/orchestrator"
	"degenmint/internal/state"
	"degenmint/internal/symbols"

	"github.com/ethereum/go-ethereum/common"
)

func newTestServer(t *testing.T, hmacSecret string) (*Server, *chain.FakeReader, *chain.FakeSubmitter) {
	t.Helper()

	cfg := &config.AppConfig{
		Service: config.ServiceConfig{
			HTTPPort:      0,
			HMACSecret:    hmacSecret,
			HMACClockSkew: time.Minute,
			SyncInterval:  time.Minute,
		},
	}

	reader := chain.NewFakeReader()
	reader.Global = chain.GlobalSnapshot{
		Status: chain.GameStatus{
			Level:    2,
			PriceWei: big.NewInt(1e16),
		},
		PresaleActive: true,
	}
	store := cache.NewMemoryStore()
	syncSvc := state.NewService(reader, store, time.Minute)
	if err := syncSvc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	sub := &chain.FakeSubmitter{Sender: common.HexToAddress("0x01")}
	orch := orchestrator.New(syncSvc, reader, sub, store)
	scanner := symbols.NewScanner(reader, store)

	return NewServer(cfg, syncSvc, orch, scanner, reader), reader, sub
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestStateEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp struct {
		Game struct {
			Level         uint64 `json:"level"`
			PriceWei      string `json:"priceWei"`
			Phase         string `json:"phase"`
			PresaleActive bool   `json:"presaleActive"`
			Source        string `json:"source"`
		} `json:"game"`
		Quotes struct {
			LootboxBonusBps int    `json:"lootboxBonusBps"`
			WhaleUnitWei    string `json:"whaleUnitWei"`
			LazyPassWei     string `json:"lazyPassWei"`
		} `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Game.Level != 2 || resp.Game.PriceWei != "10000000000000000" {
		t.Fatalf("unexpected game view: %+v", resp.Game)
	}
	if resp.Game.Source != "remote" || resp.Game.Phase != "normal" {
		t.Fatalf("unexpected game view: %+v", resp.Game)
	}
	if resp.Quotes.LootboxBonusBps != 2000 {
		t.Fatalf("presale bonus should be 2000 bps, got %d", resp.Quotes.LootboxBonusBps)
	}
	if resp.Quotes.WhaleUnitWei != "2400000000000000000" {
		t.Fatalf("whale unit at level 2 should be 2.4 ETH, got %s", resp.Quotes.WhaleUnitWei)
	}
	if resp.Quotes.LazyPassWei != "240000000000000000" {
		t.Fatalf("lazy pass at level 2 should be 0.24 ETH, got %s", resp.Quotes.LazyPassWei)
	}
}

func TestPurchaseTickets(t *testing.T) {
	srv, _, sub := newTestServer(t, "")

	body, _ := json.Marshal(map[string]any{"quantity": 3})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases/tickets", bytes.NewReader(body))
	rec := do(srv, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status        string `json:"status"`
		ComputedValue string `json:"computedValue"`
		TxHash        string `json:"txHash"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "pending" || resp.TxHash == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ComputedValue != "30000000000000000" {
		t.Fatalf("computed value = %s, want 3e16", resp.ComputedValue)
	}
	if len(sub.Submitted) != 1 {
		t.Fatalf("expected one submitted call, got %d", len(sub.Submitted))
	}
}

func TestPurchaseValidationError(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	body, _ := json.Marshal(map[string]any{"quantity": 0})
	rec := do(srv, httptest.NewRequest(http.MethodPost, "/api/v1/purchases/tickets", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestPurchaseUnknownKind(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	body, _ := json.Marshal(map[string]any{"quantity": 1})
	rec := do(srv, httptest.NewRequest(http.MethodPost, "/api/v1/purchases/timeshares", bytes.NewReader(body)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestPurchaseStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/purchases/lazyPass", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp struct {
		Kind   string `json:"kind"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != "lazyPass" || resp.Status != "idle" {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestSymbolsEndpointReassigns(t *testing.T) {
	srv, reader, _ := newTestServer(t, "")
	reader.Owned[0] = true
	reader.Owned[1] = true

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/symbols?selected=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp struct {
		Taken    []uint8 `json:"taken"`
		Assigned *uint8  `json:"assigned"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Taken) != 2 {
		t.Fatalf("expected 2 taken, got %v", resp.Taken)
	}
	if resp.Assigned == nil || *resp.Assigned != 2 {
		t.Fatalf("expected reassignment to 2, got %v", resp.Assigned)
	}
}

func TestHMACGuardsPurchases(t *testing.T) {
	srv, _, sub := newTestServer(t, "shared-secret")

	body, _ := json.Marshal(map[string]any{"quantity": 1})
	rec := do(srv, httptest.NewRequest(http.MethodPost, "/api/v1/purchases/tickets", bytes.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(sub.Submitted) != 0 {
		t.Fatal("unsigned request must not reach the chain")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		State  struct {
			Source string `json:"source"`
		} `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.State.Source != "remote" {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv, reader, _ := newTestServer(t, "")
	before := reader.Calls()

	rec := do(srv, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if reader.Calls() != before+1 {
		t.Fatalf("expected one extra read, got %d", reader.Calls()-before)
	}
}
