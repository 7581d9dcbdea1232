package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
	"github.com/muellerb/shop-register-go/internal/infra/wallclock"
	"github.com/muellerb/shop-register-go/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	wall := wallclock.System{}

	startDate := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	store := memstore.NewSeeded(domain.NewRegisterSnapshot(domain.MustAmount("5000"), startDate))

	registerSvc := service.NewRegisterService(store, wall, metrics, logger)
	clockSvc := service.NewClockService(registerSvc, &collab.LoggingBiller{Logger: logger}, &collab.LoggingReleaser{Logger: logger}, wall, metrics, logger)
	querySvc := service.NewLedgerQueryService(registerSvc, logger)
	reportSvc := service.NewReportService(registerSvc, wall, cache.New[*domain.MonthlyFinancialReport](time.Minute), metrics, logger)
	purchasingSvc := service.NewPurchasingService(registerSvc, 3, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	authSvc := service.NewAuthService("operator", string(hash), "test-secret", time.Hour, logger)

	return handler.NewRouter(handler.Services{
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
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"operator": "operator", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: status %d body %s", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics/register", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from register metrics, got %d", rec.Code)
	}
}

func TestRouter_GetRegister(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/register", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Balance string `json:"balance"`
		IsOpen  bool   `json:"is_open"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != "5000" {
		t.Errorf("expected balance 5000, got %s", resp.Balance)
	}
	if resp.IsOpen {
		t.Error("expected register to start closed")
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/register/toggle"},
		{http.MethodPost, "/v1/ledger/entries"},
		{http.MethodPost, "/v1/purchases/wholesale"},
	}

	for _, route := range protected {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestRouter_ToggleWithToken(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router)

	req := httptest.NewRequest(http.MethodPost, "/v1/register/toggle", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		IsOpen        bool   `json:"is_open"`
		SimulatedDate string `json:"simulated_date"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.IsOpen {
		t.Error("expected register to be open after toggle")
	}
	if resp.SimulatedDate != "2025-08-05" {
		t.Errorf("expected Tuesday Aug 5, got %s", resp.SimulatedDate)
	}
}

func TestRouter_DailyReportBadDate(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports/daily/not-a-date", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRouter_DailyReportEmptyLedger(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports/daily/2025-08-04", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on empty ledger, got %d", rec.Code)
	}
}

func TestRouter_ListEntriesUnknownCategory(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ledger/entries?category=lottery", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
