// Package metrics exposes the Prometheus registry the domus packages
// register into. The metrics themselves live next to the code that updates
// them (bulk, client, cache, ratelimit) and register via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all domus metrics use.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the matching gatherer.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names lists the metric families the domus packages export.
var Names = []string{
	// pkg/bulk
	"domus_bulk_batches_total",
	"domus_bulk_requests_total",
	"domus_bulk_batch_size",
	"domus_bulk_batch_duration_seconds",
	"domus_bulk_inflight_requests",

	// pkg/client
	"domus_requests_total",
	"domus_request_duration_seconds",
	"domus_errors_total",
	"domus_retries_total",
	"domus_retry_backoff_seconds",
	"domus_retry_exhausted_total",

	// pkg/cache
	"domus_cache_hits_total",
	"domus_cache_misses_total",
	"domus_cache_size_bytes",
	"domus_conditional_requests_total",
	"domus_304_responses_total",
	"domus_cache_errors_total",

	// pkg/ratelimit
	"domus_cooldowns_started_total",
	"domus_cooldown_blocks_total",
	"domus_cooldown_seconds",
	"domus_rate_limiter_wait_seconds",

	// cmd/domus-proxy
	"domus_proxy_requests_total",
	"domus_proxy_request_duration_seconds",
}

// Example queries:
//
//	# share of bulk requests that failed outright
//	sum(rate(domus_bulk_requests_total{class="transport_error"}[5m]))
//	  / sum(rate(domus_bulk_requests_total[5m]))
//
//	# hosts currently refusing us
//	sum by (host) (rate(domus_bulk_requests_total{class=~"auth|rate_limit"}[5m]))
//
//	# P95 batch latency
//	histogram_quantile(0.95, rate(domus_bulk_batch_duration_seconds_bucket[5m]))
