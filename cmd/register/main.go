package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muellerb/shop-register-go/internal/config"
	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/handler"
	"github.com/muellerb/shop-register-go/internal/infra/cache"
	"github.com/muellerb/shop-register-go/internal/infra/collab"
	"github.com/muellerb/shop-register-go/internal/infra/memstore"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/infra/postgrest"
	"github.com/muellerb/shop-register-go/internal/infra/resilience"
	"github.com/muellerb/shop-register-go/internal/infra/wallclock"
	"github.com/muellerb/shop-register-go/internal/port"
	"github.com/muellerb/shop-register-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("currency", cfg.Currency),
		zap.String("seed_balance", cfg.SeedBalance.String()),
		zap.Int("wholesale_lead_days", cfg.LeadDays),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("report_cache_ttl", cfg.ReportCacheTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "shop-register")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("external-apis")

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Register store ---
	var store port.RegisterStore
	if cfg.StoreBackend == "postgrest" && cfg.PostgrestURL != "" {
		logger.Info("using PostgREST register store",
			zap.String("postgrest_url", cfg.PostgrestURL),
		)
		store = postgrest.New(
			httpClient,
			cfg.PostgrestURL,
			cfg.PostgrestAnonKey,
			cfg.PostgrestServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
	} else {
		startDate := time.Now()
		if cfg.StartDate != "" {
			parsed, err := time.Parse("2006-01-02", cfg.StartDate)
			if err != nil {
				logger.Fatal("invalid START_DATE", zap.String("start_date", cfg.StartDate), zap.Error(err))
			}
			startDate = parsed
		}
		logger.Info("using in-memory register store",
			zap.Time("start_date", startDate),
		)
		store = memstore.NewSeeded(domain.NewRegisterSnapshot(cfg.SeedBalance, startDate))
	}

	// --- Collaborators ---
	var biller port.MonthlyBiller
	if cfg.BillingWebhookURL != "" {
		biller = collab.NewWebhookBiller(httpClient, cfg.BillingWebhookURL, cb, resilienceCfg, logger)
		logger.Info("billing webhook enabled", zap.String("url", cfg.BillingWebhookURL))
	} else {
		biller = &collab.LoggingBiller{Logger: logger}
		logger.Warn("no billing webhook configured, month boundaries are only logged")
	}
	inventory := &collab.LoggingReleaser{Logger: logger}

	wall := wallclock.System{}

	// --- Caches ---
	reportCache := cache.New[*domain.MonthlyFinancialReport](cfg.ReportCacheTTL)

	// --- Services ---
	registerSvc := service.NewRegisterService(store, wall, metrics, logger)
	clockSvc := service.NewClockService(registerSvc, biller, inventory, wall, metrics, logger)
	querySvc := service.NewLedgerQueryService(registerSvc, logger)
	reportSvc := service.NewReportService(registerSvc, wall, reportCache, metrics, logger)
	purchasingSvc := service.NewPurchasingService(registerSvc, cfg.LeadDays, logger)

	if cfg.OperatorPasswordHash == "" {
		logger.Warn("OPERATOR_PASSWORD_HASH not set, operator login will always fail")
	}
	authSvc := service.NewAuthService(
		cfg.OperatorID,
		cfg.OperatorPasswordHash,
		cfg.JWTSecret,
		cfg.JWTAccessTTL,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Auth:       authSvc,
		Register:   registerSvc,
		Clock:      clockSvc,
		Query:      querySvc,
		Report:     reportSvc,
		Purchasing: purchasingSvc,
		Metrics:    metrics,
		Config:     cfg,
		Logger:     logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
