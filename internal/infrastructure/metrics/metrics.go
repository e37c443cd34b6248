package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It implements usecase.SyncMetrics
// and ledgerapi.Observer.
type Metrics struct {
	// Sync metrics
	SyncRuns         *prometheus.CounterVec
	SyncDuration     prometheus.Histogram
	RecordsProcessed *prometheus.CounterVec

	// Upstream ledger metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Reference name cache metrics
	ReferenceLookups *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SyncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealsync_sync_runs_total",
				Help: "Total sync runs by final status",
			},
			[]string{"status"},
		),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealsync_sync_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: []float64{.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		RecordsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealsync_records_total",
				Help: "Total reconciled records by action",
			},
			[]string{"action"},
		),

		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealsync_upstream_requests_total",
				Help: "Total ledger API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dealsync_upstream_duration_seconds",
				Help:    "Ledger API request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		ReferenceLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealsync_reference_lookups_total",
				Help: "Reference name lookups by result (hit, miss, fallback)",
			},
			[]string{"result"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "dealsync_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}

// ObserveRun records a finished sync run.
func (m *Metrics) ObserveRun(status string, duration time.Duration) {
	m.SyncRuns.WithLabelValues(status).Inc()
	m.SyncDuration.Observe(duration.Seconds())
}

// AddRecords counts reconciled records for one action.
func (m *Metrics) AddRecords(action string, n int) {
	if n <= 0 {
		return
	}
	m.RecordsProcessed.WithLabelValues(action).Add(float64(n))
}

// ReferenceLookup counts one name cache lookup.
func (m *Metrics) ReferenceLookup(result string) {
	m.ReferenceLookups.WithLabelValues(result).Inc()
}

// ObserveUpstream records one ledger API request.
func (m *Metrics) ObserveUpstream(endpoint, status string, duration time.Duration) {
	m.UpstreamRequests.WithLabelValues(endpoint, status).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited() {
	m.RateLimitHits.Inc()
}
