package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/muellerb/shop-register-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the shop register.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	entriesTotal    *prometheus.CounterVec
	balance         prometheus.Gauge
	dayAdvances     prometheus.Counter
	billingRuns     prometheus.Counter
	ordersFulfilled prometheus.Counter
	reportDuration  *prometheus.HistogramVec
	reportsBuilt    *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		entriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopreg_ledger_entries_total",
				Help: "Ledger entries by category; 'discarded' counts internal bookkeeping entries.",
			},
			[]string{"category"},
		),
		balance: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shopreg_balance",
				Help: "Current register balance in the deployment currency.",
			},
		),
		dayAdvances: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shopreg_day_advances_total",
				Help: "Completed Closed->Open day advancements.",
			},
		),
		billingRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shopreg_billing_runs_total",
				Help: "Monthly billing collaborator invocations.",
			},
		),
		ordersFulfilled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shopreg_pending_orders_fulfilled_total",
				Help: "Pending wholesale orders released to inventory.",
			},
		),
		reportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shopreg_report_build_seconds",
				Help:    "Duration of report construction by report type.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),
		reportsBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopreg_reports_built_total",
				Help: "Reports constructed by report type.",
			},
			[]string{"report"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopreg_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopreg_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopreg_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// IncrEntry increments the ledger-entry counter for a category.
func (m *Metrics) IncrEntry(category string) {
	m.entriesTotal.WithLabelValues(category).Inc()
}

// IncrEntryDiscarded counts an internal bookkeeping entry the register
// refused to double-count.
func (m *Metrics) IncrEntryDiscarded() {
	m.entriesTotal.WithLabelValues("discarded").Inc()
}

// SetBalance updates the balance gauge.
func (m *Metrics) SetBalance(balance float64) {
	m.balance.Set(balance)
}

// IncrDayAdvance counts a completed day advancement.
func (m *Metrics) IncrDayAdvance() {
	m.dayAdvances.Inc()
}

// IncrBillingRun counts a monthly billing invocation.
func (m *Metrics) IncrBillingRun() {
	m.billingRuns.Inc()
}

// AddOrdersFulfilled counts pending orders released to inventory.
func (m *Metrics) AddOrdersFulfilled(n int) {
	m.ordersFulfilled.Add(float64(n))
}

// RecordReportBuild records one report construction.
func (m *Metrics) RecordReportBuild(report string, d time.Duration) {
	m.reportDuration.WithLabelValues(report).Observe(d.Seconds())
	m.reportsBuilt.WithLabelValues(report).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetRegisterSnapshot returns a snapshot of register metrics suitable
// for the GET /v1/metrics/register endpoint.
func (m *Metrics) GetRegisterSnapshot() *domain.RegisterMetrics {
	// Prometheus counters expose cumulative values.
	var recorded float64
	for _, c := range []domain.Category{
		domain.CategorySimpleSale,
		domain.CategoryReservedSale,
		domain.CategoryEventSale,
		domain.CategoryContractSale,
		domain.CategoryWholesalePurchase,
	} {
		recorded += getCounterValue(m.entriesTotal, string(c))
	}
	discarded := getCounterValue(m.entriesTotal, "discarded")

	reportsBuilt := getCounterValue(m.reportsBuilt, "daily") +
		getCounterValue(m.reportsBuilt, "monthly")
	cacheHits := getCounterValue(m.cacheHits, "monthly_report")
	cacheMisses := getCounterValue(m.cacheMisses, "monthly_report")
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")

	hitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		hitRate = cacheHits / (cacheHits + cacheMisses)
	}
	errorRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}

	return &domain.RegisterMetrics{
		EntriesRecorded:  int64(recorded),
		EntriesDiscarded: int64(discarded),
		DaysAdvanced:     int64(getSingleCounterValue(m.dayAdvances)),
		BillingRuns:      int64(getSingleCounterValue(m.billingRuns)),
		OrdersFulfilled:  int64(getSingleCounterValue(m.ordersFulfilled)),
		ReportsBuilt:     int64(reportsBuilt),
		ReportCacheHits:  hitRate,
		RequestsTotal:    int64(totalRequests),
		RequestErrorRate: errorRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
