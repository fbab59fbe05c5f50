// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

/*
Package metrics provides Prometheus metrics for the catalog engine.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Requests rejected by httprate (counter)

Media Server Metrics:
  - mediaserver_requests_total: Outbound adapter requests (counter)
    Labels: service_type, status
  - mediaserver_request_duration_seconds: Outbound latency (histogram)
  - mediaserver_rate_limit_waits_total: Requests that waited on the limiter
  - adapter_contract_violations_total: Records dropped by contract checks
    Labels: service_type, record

Sync Metrics:
  - sync_duration_seconds: Duration per operation (histogram)
    Labels: operation (reconcile, library_content, episodes, purge)
  - sync_items_changed_total: Rows added, updated or removed
  - sync_errors_total: Failed operations by error_type
  - sync_last_success_timestamp: Unix time of the last success
  - sync_shared_calls_total: Calls that joined an in-flight sync

Catalog Metrics:
  - catalog_queries_total: Queries by kind and source (cache, live, none)
  - catalog_query_duration_seconds: Query latency (histogram)
  - catalog_auto_syncs_total: Syncs triggered by an empty cache

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Results (success, failure, rejected)
  - circuit_breaker_consecutive_failures: Current failure streak
  - circuit_breaker_state_transitions_total: State changes

Token Cache Metrics:
  - token_cache_hits_total / token_cache_misses_total
    Labels: service_type

# Cardinality Management

Endpoint labels use chi route patterns, never raw paths. Error types come from
ClassifyError, which maps errors to a short fixed set. Server ids and
nicknames are never used as labels; breakers are named by service type and
nickname, which is bounded by configuration.

# Thread Safety

All recording functions are safe for concurrent use. RegisterErrorClassifier
must only be called during package initialization.
*/
package metrics
