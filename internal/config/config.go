package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Register
	Currency     string
	SeedBalance  decimal.Decimal
	StartDate    string // YYYY-MM-DD, first simulated date
	LeadDays     int    // default wholesale delivery lead time
	StoreBackend string // "memory" or "postgrest"

	// PostgREST persistence
	PostgrestURL        string
	PostgrestAnonKey    string
	PostgrestServiceKey string

	// Billing collaborator
	BillingWebhookURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Report cache
	ReportCacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Operator auth
	JWTSecret            string
	JWTAccessTTL         time.Duration
	OperatorID           string
	OperatorPasswordHash string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Currency:     getEnv("CURRENCY", "EUR"),
		SeedBalance:  getEnvDecimal("SEED_BALANCE", "5000"),
		StartDate:    getEnv("START_DATE", ""),
		LeadDays:     getEnvInt("WHOLESALE_LEAD_DAYS", 3),
		StoreBackend: getEnv("STORE_BACKEND", "memory"),

		PostgrestURL:        getEnv("POSTGREST_URL", ""),
		PostgrestAnonKey:    getEnv("POSTGREST_ANON_KEY", ""),
		PostgrestServiceKey: getEnv("POSTGREST_SERVICE_ROLE_KEY", ""),

		BillingWebhookURL: getEnv("BILLING_WEBHOOK_URL", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:            getEnv("JWT_SECRET", "shop-register-dev-secret-change-me"),
		JWTAccessTTL:         getEnvDuration("JWT_ACCESS_TTL", 8*time.Hour),
		OperatorID:           getEnv("OPERATOR_ID", "operator"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}
