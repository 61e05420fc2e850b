// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package metrics registers Churnscope's Prometheus metrics with promauto and
provides small Record helpers for the packages that emit them.

# Metrics Endpoint

The default registry is served at /metrics by the API router:

	curl http://localhost:8000/metrics

# Available Metrics

Event store:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table,error_type}
  - churnscope_events_ingested_total{result}
  - churnscope_events_loaded

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Analysis:
  - churnscope_analysis_runs_total{kind,result}
  - churnscope_analysis_duration_seconds{kind}
  - churnscope_last_churn_rate_percent
  - churnscope_last_active_users

Cache:
  - cache_hits_total{namespace}, cache_misses_total{namespace}
  - cache_errors_total{operation}
  - cache_invalidated_keys_total

Resilience and messaging:
  - circuit_breaker_state{name} (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}
  - churnscope_insights_generated_total{provider,result}
  - churnscope_messages_published_total{topic,result}
  - churnscope_messages_consumed_total{topic,result}

The endpoint label is the chi route pattern (for example
/api/v1/analysis/run), never the raw path, so label cardinality stays bounded.
*/
package metrics
