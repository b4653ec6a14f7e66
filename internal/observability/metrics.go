// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Distribution metrics
	PeriodsRouted  prometheus.Counter
	RoutingErrors  *prometheus.CounterVec
	RootsPublished prometheus.Counter
	ClaimsSettled  prometheus.Counter
	ClaimErrors    *prometheus.CounterVec

	// Vesting metrics
	VestingReleased prometheus.Counter
	EarlyExits      prometheus.Counter

	// Gauge metrics
	VotesCast     prometheus.Counter
	CurrentPeriod prometheus.Gauge

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	WSClientsConnected  prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "emission_engine"
	}

	return &Metrics{
		PeriodsRouted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "periods_routed_total",
			Help:      "Total number of periods routed to the channel sinks",
		}),
		RoutingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "routing_errors_total",
			Help:      "Total number of failed routing attempts by reason",
		}, []string{"reason"}),
		RootsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "roots_published_total",
			Help:      "Total number of claim roots published",
		}),
		ClaimsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "claims_settled_total",
			Help:      "Total number of claims settled into vesting",
		}),
		ClaimErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "claim_errors_total",
			Help:      "Total number of rejected claims by reason",
		}, []string{"reason"}),
		VestingReleased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "released_total",
			Help:      "Total number of vesting claims released",
		}),
		EarlyExits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vesting",
			Name:      "early_exits_total",
			Help:      "Total number of early exits taken",
		}),
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gauge",
			Name:      "votes_cast_total",
			Help:      "Total number of gauge votes accepted",
		}),
		CurrentPeriod: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "current_period",
			Help:      "Period whose epoch window contains now",
		}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		WSClientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients_connected",
			Help:      "Currently connected WebSocket event-feed clients",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "db_query_duration_seconds",
			Help:      "Database query latency by database and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "db_query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPeriodRouted increments the periods routed counter.
func RecordPeriodRouted() {
	DefaultMetrics.PeriodsRouted.Inc()
}

// RecordRoutingError records a failed routing attempt.
func RecordRoutingError(reason string) {
	DefaultMetrics.RoutingErrors.WithLabelValues(reason).Inc()
}

// RecordRootPublished increments the roots published counter.
func RecordRootPublished() {
	DefaultMetrics.RootsPublished.Inc()
}

// RecordClaimSettled increments the claims settled counter.
func RecordClaimSettled() {
	DefaultMetrics.ClaimsSettled.Inc()
}

// RecordClaimError records a rejected claim.
func RecordClaimError(reason string) {
	DefaultMetrics.ClaimErrors.WithLabelValues(reason).Inc()
}

// RecordVestReleased increments the vesting released counter.
func RecordVestReleased() {
	DefaultMetrics.VestingReleased.Inc()
}

// RecordEarlyExit increments the early exits counter.
func RecordEarlyExit() {
	DefaultMetrics.EarlyExits.Inc()
}

// RecordVoteCast increments the votes cast counter.
func RecordVoteCast() {
	DefaultMetrics.VotesCast.Inc()
}

// UpdateCurrentPeriod updates the current period gauge.
func UpdateCurrentPeriod(period int) {
	DefaultMetrics.CurrentPeriod.Set(float64(period))
}

// WSClientConnected increments the connected WebSocket clients gauge.
func WSClientConnected() {
	DefaultMetrics.WSClientsConnected.Inc()
}

// WSClientDisconnected decrements the connected WebSocket clients gauge.
func WSClientDisconnected() {
	DefaultMetrics.WSClientsConnected.Dec()
}

// RecordHTTPRequest records API request latency.
func RecordHTTPRequest(route, status string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
