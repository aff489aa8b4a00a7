// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package metrics exposes Prometheus instrumentation for the import pipeline,
// the provider clients, the auto-sync scheduler and the HTTP API.
//
// All collectors are registered on the default registry through promauto and
// served by promhttp at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Provider Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of HTTP requests sent to game providers",
		},
		[]string{"provider", "result"}, // result: "ok", "rate_limited", "http_error", "network_error"
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of provider HTTP requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_retries_total",
			Help: "Total number of retried provider requests",
		},
		[]string{"provider"},
	)

	ArchiveCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_cache_hits_total",
			Help: "Total number of monthly archives served from the local cache",
		},
	)

	ArchiveCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_cache_misses_total",
			Help: "Total number of monthly archives fetched from the provider",
		},
	)

	// Import Metrics
	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "import_duration_seconds",
			Help:    "Duration of game import runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"source"},
	)

	ImportGames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_games_total",
			Help: "Total number of games seen by the importer",
		},
		[]string{"source", "outcome"}, // outcome: "imported", "duplicate", "failed"
	)

	ImportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_errors_total",
			Help: "Total number of import runs aborted by an error",
		},
		[]string{"source"},
	)

	MappingStrategies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opening_mapping_strategy_total",
			Help: "Total number of games mapped per strategy",
		},
		[]string{"strategy"},
	)

	// Auto-Sync Metrics
	AutoSyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autosync_cycles_total",
			Help: "Total number of auto-sync scheduler cycles",
		},
		[]string{"result"}, // result: "ran", "skipped"
	)

	AutoSyncAccounts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autosync_accounts_total",
			Help: "Total number of linked accounts processed by auto-sync",
		},
		[]string{"result"}, // result: "synced", "failed"
	)

	AutoSyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autosync_last_success_timestamp",
			Help: "Unix timestamp of the last auto-sync cycle that completed",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of cache invalidations triggered by events",
		},
		[]string{"cache_type"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"topic", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordProviderRequest records one HTTP exchange with a game provider.
func RecordProviderRequest(provider, result string, duration time.Duration) {
	ProviderRequests.WithLabelValues(provider, result).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordImport records the outcome counts of one import run. A non-nil err
// means the run was aborted before persisting.
func RecordImport(source string, duration time.Duration, imported, duplicates, failed int, err error) {
	ImportDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		ImportErrors.WithLabelValues(source).Inc()
		return
	}
	ImportGames.WithLabelValues(source, "imported").Add(float64(imported))
	ImportGames.WithLabelValues(source, "duplicate").Add(float64(duplicates))
	ImportGames.WithLabelValues(source, "failed").Add(float64(failed))
}

// RecordAutoSyncCycle records a scheduler tick. skipped is true when a
// previous cycle was still running.
func RecordAutoSyncCycle(skipped bool, synced, failed int) {
	if skipped {
		AutoSyncCycles.WithLabelValues("skipped").Inc()
		return
	}
	AutoSyncCycles.WithLabelValues("ran").Inc()
	AutoSyncAccounts.WithLabelValues("synced").Add(float64(synced))
	AutoSyncAccounts.WithLabelValues("failed").Add(float64(failed))
	AutoSyncLastSuccess.Set(float64(time.Now().Unix()))
}
