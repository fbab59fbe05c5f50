// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the catalog engine:
// - DuckDB query performance
// - API endpoint latency and throughput
// - Media server adapter calls and contract violations
// - Reconciliation and sync operations
// - Catalog query sources (cache, live, auto-sync)
// - Circuit breakers and token cache

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
		[]string{"operation", "table", "error_type"},
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

	// Media Server Adapter Metrics
	AdapterRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaserver_requests_total",
			Help: "Total number of outbound media server API requests",
		},
		[]string{"service_type", "status"}, // status: HTTP code or "error"
	)

	AdapterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaserver_request_duration_seconds",
			Help:    "Outbound media server API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service_type"},
	)

	AdapterRateLimitWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaserver_rate_limit_waits_total",
			Help: "Outbound requests delayed by the per-server rate limiter",
		},
		[]string{"service_type"},
	)

	AdapterContractViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_contract_violations_total",
			Help: "Adapter records dropped for violating the canonical contract",
		},
		[]string{"service_type", "record"}, // record: "library", "user", "media"
	)

	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"operation"}, // "reconcile", "library_content", "episodes", "purge"
	)

	SyncItemsChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_items_changed_total",
			Help: "Rows added, updated or removed by sync operations",
		},
		[]string{"operation", "change"},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors",
		},
		[]string{"operation", "error_type"}, // error_type: "unsupported", "mediaserver", "database", "other"
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful sync",
		},
		[]string{"operation"},
	)

	SyncSharedCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_shared_calls_total",
			Help: "Sync calls that joined an in-flight execution for the same key",
		},
		[]string{"operation"},
	)

	// Catalog Query Metrics
	CatalogQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Catalog queries by result source",
		},
		[]string{"kind", "source"}, // kind: "content", "episodes"; source: "cache", "live", "none"
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	CatalogAutoSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_auto_syncs_total",
			Help: "Synchronous syncs triggered by an empty cache",
		},
		[]string{"kind"},
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

	// Token Cache Metrics
	TokenCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_cache_hits_total",
			Help: "Bearer token cache hits",
		},
		[]string{"service_type"},
	)

	TokenCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_cache_misses_total",
			Help: "Bearer token cache misses (token exchange performed)",
		},
		[]string{"service_type"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_events_published_total",
			Help: "Catalog change events published",
		},
		[]string{"topic", "result"}, // result: "success", "failure"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// ErrorClassifier maps an error to a low-cardinality error_type label.
// Packages that own sentinels register them at init so this package stays
// free of domain imports.
type ErrorClassifier func(err error) (string, bool)

var classifiers []ErrorClassifier

// RegisterErrorClassifier adds a classifier consulted by ClassifyError.
// Not safe for concurrent use; call from init.
func RegisterErrorClassifier(c ErrorClassifier) {
	classifiers = append(classifiers, c)
}

// ClassifyError returns the error_type label for err.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classifiers {
		if label, ok := c(err); ok {
			return label
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case msg == "":
		return "unknown"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "database"), strings.Contains(msg, "duckdb"):
		return "database"
	case strings.Contains(msg, "returned status"):
		return "mediaserver"
	default:
		return "other"
	}
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, ClassifyError(err)).Inc()
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

// RecordAdapterRequest records one outbound media server request. A status
// of 0 means the request never produced a response.
func RecordAdapterRequest(serviceType string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	AdapterRequestsTotal.WithLabelValues(serviceType, label).Inc()
	AdapterRequestDuration.WithLabelValues(serviceType).Observe(duration.Seconds())
}

// RecordContractViolation counts a dropped adapter record.
func RecordContractViolation(serviceType, record string) {
	AdapterContractViolations.WithLabelValues(serviceType, record).Inc()
}

// RecordSyncOperation records a sync operation metric
func RecordSyncOperation(operation string, duration time.Duration, err error) {
	SyncDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		SyncErrors.WithLabelValues(operation, ClassifyError(err)).Inc()
		return
	}
	SyncLastSuccess.WithLabelValues(operation).Set(float64(time.Now().Unix()))
}

// RecordSyncChanges adds the added/updated/removed counts of one sync pass.
func RecordSyncChanges(operation string, added, updated, removed int) {
	if added > 0 {
		SyncItemsChanged.WithLabelValues(operation, "added").Add(float64(added))
	}
	if updated > 0 {
		SyncItemsChanged.WithLabelValues(operation, "updated").Add(float64(updated))
	}
	if removed > 0 {
		SyncItemsChanged.WithLabelValues(operation, "removed").Add(float64(removed))
	}
}

// RecordCatalogQuery records a catalog query and the source that served it.
func RecordCatalogQuery(kind, source string, duration time.Duration) {
	if source == "" {
		source = "none"
	}
	CatalogQueriesTotal.WithLabelValues(kind, source).Inc()
	CatalogQueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordTokenCache records a token cache lookup.
func RecordTokenCache(serviceType string, hit bool) {
	if hit {
		TokenCacheHits.WithLabelValues(serviceType).Inc()
	} else {
		TokenCacheMisses.WithLabelValues(serviceType).Inc()
	}
}

// RecordEventPublish records a catalog event publish attempt.
func RecordEventPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}
