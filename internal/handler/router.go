// Package handler wires the HTTP surface: routing, auth middleware and
// the per-feature request handlers.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/config"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/infra/resilience"
	"github.com/muellerb/shop-register-go/internal/service"
)

// Services bundles everything the router needs.
type Services struct {
	Auth       *service.AuthService
	Register   *service.RegisterService
	Clock      *service.ClockService
	Query      *service.LedgerQueryService
	Report     *service.ReportService
	Purchasing *service.PurchasingService
	Metrics    *observability.Metrics
	Config     *config.Config
	Logger     *zap.Logger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(s.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(requestMetricsMiddleware(s.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Heartbeat("/ping"))

	// Operational endpoints
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(s.Register, s.Logger))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.Metrics.Registry,
		promhttp.HandlerOpts{},
	))

	authRequired := JWTAuthMiddleware(s.Auth, s.Logger)

	// Report reconstruction walks the whole ledger; the bulkhead caps
	// how many run at once.
	reportBulkhead := resilience.NewBulkhead(s.Config.MaxConcurrency)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", LoginHandler(s.Auth, s.Logger))

		r.Get("/metrics/register", registerMetricsHandler(s.Metrics))

		r.Get("/register", GetRegisterHandler(s.Register, s.Logger))
		r.Get("/register/balance", GetBalanceHandler(s.Register, s.Config.Currency, s.Logger))
		r.Get("/clock/now", BusinessNowHandler(s.Clock, s.Logger))

		r.Get("/ledger/entries", ListEntriesHandler(s.Query, s.Logger))
		r.Get("/ledger/partition", PartitionHandler(s.Query, s.Logger))

		r.Group(func(r chi.Router) {
			r.Use(authRequired)
			r.Post("/register/toggle", ToggleHandler(s.Clock, s.Logger))
			r.Post("/ledger/entries", SettleOrderHandler(s.Register, s.Logger))
			r.Post("/purchases/wholesale", PlaceWholesaleOrderHandler(s.Purchasing, s.Logger))
		})

		r.Group(func(r chi.Router) {
			r.Use(bulkheadMiddleware(reportBulkhead))
			r.Get("/reports/daily/{date}", DailyReportHandler(s.Report, s.Logger))
			r.Get("/reports/monthly/{month}", MonthlyReportHandler(s.Report, s.Logger))
			r.Get("/reports/month-to-date", MonthToDateHandler(s.Report, s.Logger))
		})
	})

	return r
}

// readyHandler verifies the register store is reachable and seeded.
func readyHandler(reg *service.RegisterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := reg.Snapshot(r.Context()); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "register store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// registerMetricsHandler exposes an application-level metrics summary
// alongside the raw Prometheus endpoint.
func registerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetRegisterSnapshot())
	}
}

// requestMetricsMiddleware counts requests by outcome.
func requestMetricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= 500 {
				metrics.IncrRequest("error")
			} else {
				metrics.IncrRequest("success")
			}
		})
	}
}

// bulkheadMiddleware holds requests at the configured concurrency limit.
func bulkheadMiddleware(b *resilience.Bulkhead) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := b.Acquire(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "server busy")
				return
			}
			defer b.Release()
			next.ServeHTTP(w, r)
		})
	}
}
