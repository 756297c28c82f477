// Package metrics declares the Prometheus collectors of the composer.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var OperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "composer_operations_total",
		Help: "Total number of composition store operations applied",
	},
	[]string{"operation"},
)

var PersistenceCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "composer_persistence_calls_total",
		Help: "Total number of persistence effects executed",
	},
	[]string{"effect"},
)

var PersistenceFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "composer_persistence_failures_total",
		Help: "Total number of persistence effects that failed (never rolled back)",
	},
	[]string{"effect"},
)

var PersistenceDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "composer_persistence_duration_seconds",
		Help:    "Duration of persistence effects in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"effect"},
)

var PendingEffects = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "composer_pending_effects",
		Help: "Persistence effects issued but not yet completed",
	},
)

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of HTTP requests answered with a 4xx or 5xx status",
	},
	[]string{"endpoint", "status", "method"},
)

var registerStore, registerAPI sync.Once

// InitStoreMetrics registers the store and persistence collectors
func InitStoreMetrics() {
	registerStore.Do(func() {
		prometheus.MustRegister(OperationsTotal)
		prometheus.MustRegister(PersistenceCallsTotal)
		prometheus.MustRegister(PersistenceFailuresTotal)
		prometheus.MustRegister(PersistenceDuration)
		prometheus.MustRegister(PendingEffects)
	})
}

// InitAPIMetrics registers the HTTP collectors
func InitAPIMetrics() {
	registerAPI.Do(func() {
		prometheus.MustRegister(HttpRequestsTotal)
		prometheus.MustRegister(HttpRequestDuration)
		prometheus.MustRegister(HttpErrorsTotal)
	})
}
