package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for SmartReach
type Metrics struct {
	// Pipeline counters
	DraftsGeneratedTotal       *prometheus.CounterVec
	EmailsQueuedTotal          *prometheus.CounterVec
	EnrollmentTransitionsTotal *prometheus.CounterVec
	DueScanDurationSeconds     prometheus.Histogram

	// Pipeline gauges
	LeadsTotal        prometheus.Gauge
	EnrollmentsActive prometheus.Gauge
	EnrollmentsDue    prometheus.Gauge
	EmailsPending     prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// System metrics
	UptimeSeconds prometheus.Gauge
	Goroutines    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DraftsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartreach_drafts_generated_total",
				Help: "Total number of AI draft requests by result",
			},
			[]string{"result"},
		),
		EmailsQueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartreach_emails_queued_total",
				Help: "Total number of email logs created in QUEUED state",
			},
			[]string{"source"},
		),
		EnrollmentTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartreach_enrollment_transitions_total",
				Help: "Total number of processed due enrollments by outcome",
			},
			[]string{"outcome"},
		),
		DueScanDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "smartreach_due_scan_duration_seconds",
				Help:    "Duration of a due-enrollment processing pass",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		LeadsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartreach_leads",
				Help: "Number of stored leads",
			},
		),
		EnrollmentsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartreach_enrollments_active",
				Help: "Number of active campaign enrollments",
			},
		),
		EnrollmentsDue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartreach_enrollments_due",
				Help: "Number of active enrollments whose next send time has passed",
			},
		),
		EmailsPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartreach_emails_pending",
				Help: "Number of email logs still in QUEUED state",
			},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartreach_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartreach_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartreach_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		RateLimitExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartreach_ratelimit_exceeded_total",
				Help: "Total number of rate limit exceeded events",
			},
			[]string{"scope"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartreach_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartreach_goroutines",
				Help: "Number of active goroutines",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.DraftsGeneratedTotal,
		m.EmailsQueuedTotal,
		m.EnrollmentTransitionsTotal,
		m.DueScanDurationSeconds,
		m.LeadsTotal,
		m.EnrollmentsActive,
		m.EnrollmentsDue,
		m.EmailsPending,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.RateLimitExceededTotal,
		m.UptimeSeconds,
		m.Goroutines,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncDraftsGenerated counts a generate-email call; result is ok, invalid or upstream_error
func IncDraftsGenerated(result string) {
	m := Global()
	if m != nil {
		m.DraftsGeneratedTotal.WithLabelValues(result).Inc()
	}
}

// IncEmailsQueued counts a QUEUED email log; source is manual or scheduler
func IncEmailsQueued(source string) {
	m := Global()
	if m != nil {
		m.EmailsQueuedTotal.WithLabelValues(source).Inc()
	}
}

// IncEnrollmentTransition counts one processed due enrollment
func IncEnrollmentTransition(outcome string) {
	m := Global()
	if m != nil {
		m.EnrollmentTransitionsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveDueScan records the duration of a due processing pass
func ObserveDueScan(seconds float64) {
	m := Global()
	if m != nil {
		m.DueScanDurationSeconds.Observe(seconds)
	}
}

// IncRateLimitExceeded increments the rate limit exceeded counter
func IncRateLimitExceeded(scope string) {
	m := Global()
	if m != nil {
		m.RateLimitExceededTotal.WithLabelValues(scope).Inc()
	}
}

// IncAPIErrors increments the API errors counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
