// Package metrics defines the Prometheus instruments shared by the
// coordinator and the proxy. Both servers expose them on /metrics when
// metrics are enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts explain requests by outcome:
	// ok, cached, coalesced, error.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plainread_requests_total",
		Help: "Explain requests processed, by outcome.",
	}, []string{"outcome"})

	// UpstreamAttemptsTotal counts individual model calls sent through
	// the proxy, including retries.
	UpstreamAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plainread_upstream_attempts_total",
		Help: "Model invocations sent upstream, including retries.",
	})

	// FallbacksTotal counts requests answered by the deterministic
	// local fallback after the repair ladder was exhausted.
	FallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plainread_fallbacks_total",
		Help: "Requests answered by the local fallback result.",
	})

	// DeferredPushesTotal counts words-update pushes by result:
	// delivered, stale, error.
	DeferredPushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plainread_deferred_pushes_total",
		Help: "Deferred vocabulary pushes, by delivery result.",
	}, []string{"result"})

	// RateLimitedTotal counts proxy requests rejected by rate limiting.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plainread_rate_limited_total",
		Help: "Proxy requests rejected with 429.",
	})

	// ProxyForwardSeconds observes provider call latency as seen by
	// the proxy.
	ProxyForwardSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "plainread_proxy_forward_seconds",
		Help:    "Latency of provider calls forwarded by the proxy.",
		Buckets: prometheus.DefBuckets,
	})
)
