package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/muellerb/shop-register-go/internal/config"
	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/handler"
	"github.com/muellerb/shop-register-go/internal/infra/cache"
	"github.com/muellerb/shop-register-go/internal/infra/collab"
	"github.com/muellerb/shop-register-go/internal/infra/memstore"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/infra/resilience"
	"github.com/muellerb/shop-register-go/internal/infra/wallclock"
	"github.com/muellerb/shop-register-go/internal/service"
)

// TestIntegration_FullTradingDay runs a complete day against the HTTP
// surface: open the shop across a month boundary, settle a sale, place
// a wholesale purchase and read back the reports.
func TestIntegration_FullTradingDay(t *testing.T) {
	// --- Mock billing webhook ---
	var billingCalls int64
	billingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&billingCalls, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer billingServer.Close()

	// --- Build services ---
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test")
	resCfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}
	wall := wallclock.System{}

	// Thursday July 31: the first advance crosses into August.
	startDate := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	store := memstore.NewSeeded(domain.NewRegisterSnapshot(domain.MustAmount("5000"), startDate))

	registerSvc := service.NewRegisterService(store, wall, metrics, logger)
	biller := collab.NewWebhookBiller(httpClient, billingServer.URL, cb, resCfg, logger)
	clockSvc := service.NewClockService(registerSvc, biller, &collab.LoggingReleaser{Logger: logger}, wall, metrics, logger)
	querySvc := service.NewLedgerQueryService(registerSvc, logger)
	reportSvc := service.NewReportService(registerSvc, wall, cache.New[*domain.MonthlyFinancialReport](time.Minute), metrics, logger)
	purchasingSvc := service.NewPurchasingService(registerSvc, 3, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	authSvc := service.NewAuthService("operator", string(hash), "test-secret", time.Hour, logger)

	router := handler.NewRouter(handler.Services{
		Auth:       authSvc,
		Register:   registerSvc,
		Clock:      clockSvc,
		Query:      querySvc,
		Report:     reportSvc,
		Purchasing: purchasingSvc,
		Metrics:    metrics,
		Config:     &config.Config{Currency: "EUR", MaxConcurrency: 4},
		Logger:     logger,
	})

	do := func(method, path, token string, payload any) *httptest.ResponseRecorder {
		t.Helper()
		var body *bytes.Reader
		if payload != nil {
			raw, _ := json.Marshal(payload)
			body = bytes.NewReader(raw)
		} else {
			body = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// --- Login ---
	rec := do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"operator": "operator",
		"password": "secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var login domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	// --- Open the shop (Thu Jul 31 -> Fri Aug 1, month boundary) ---
	rec = do(http.MethodPost, "/v1/register/toggle", login.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		IsOpen        bool   `json:"is_open"`
		SimulatedDate string `json:"simulated_date"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode toggle: %v", err)
	}
	if !state.IsOpen || state.SimulatedDate != "2025-08-01" {
		t.Fatalf("expected open shop on 2025-08-01, got %+v", state)
	}
	if atomic.LoadInt64(&billingCalls) != 1 {
		t.Errorf("expected exactly one billing webhook call, got %d", billingCalls)
	}

	// --- Settle a sale ---
	rec = do(http.MethodPost, "/v1/ledger/entries", login.AccessToken, map[string]any{
		"order_kind":   "simple",
		"total_amount": "20",
		"line_items":   []map[string]any{{"description": "bread", "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("settle: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// --- Place a wholesale purchase ---
	rec = do(http.MethodPost, "/v1/purchases/wholesale", login.AccessToken, map[string]any{
		"items":      map[string]int{"flour": 25},
		"total_cost": "15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("wholesale: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// --- Balance reflects both entries ---
	rec = do(http.MethodGet, "/v1/register/balance", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", rec.Code)
	}
	var balance struct {
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance != "5005" {
		t.Errorf("expected balance 5005, got %s", balance.Balance)
	}

	// --- Daily report for the trading day ---
	rec = do(http.MethodGet, "/v1/reports/daily/2025-08-01", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("daily report: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var daily struct {
		Income      string `json:"income"`
		Expenditure string `json:"expenditure"`
		Profit      string `json:"profit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&daily); err != nil {
		t.Fatalf("decode daily report: %v", err)
	}
	if daily.Income != "20" || daily.Expenditure != "-15" || daily.Profit != "5" {
		t.Errorf("unexpected daily report: %+v", daily)
	}

	// --- Monthly report ---
	rec = do(http.MethodGet, "/v1/reports/monthly/2025-08", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly report: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var monthly struct {
		Profit string `json:"profit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&monthly); err != nil {
		t.Fatalf("decode monthly report: %v", err)
	}
	if monthly.Profit != "5" {
		t.Errorf("expected monthly profit 5, got %s", monthly.Profit)
	}

	// --- Ledger query by category ---
	rec = do(http.MethodGet, "/v1/ledger/entries?category=wholesale_purchase", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("query: expected 200, got %d", rec.Code)
	}
	var entries []domain.LedgerEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 wholesale entry, got %d", len(entries))
	}
}
