package domain

// RegisterMetrics is the JSON snapshot returned by GET /v1/metrics/register.
type RegisterMetrics struct {
	EntriesRecorded   int64   `json:"entries_recorded"`
	EntriesDiscarded  int64   `json:"entries_discarded"`
	DaysAdvanced      int64   `json:"days_advanced"`
	BillingRuns       int64   `json:"billing_runs"`
	OrdersFulfilled   int64   `json:"orders_fulfilled"`
	ReportsBuilt      int64   `json:"reports_built"`
	ReportCacheHits   float64 `json:"report_cache_hit_rate"`
	RequestsTotal     int64   `json:"requests_total"`
	RequestErrorRate  float64 `json:"request_error_rate"`
}
