// Package metrics exposes Prometheus metrics for the outbound fetch gate.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BlockedTargets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_blocked_targets_total",
			Help: "Outbound requests rejected by the SSRF policy.",
		},
		[]string{"stage"},
	)
	RedirectsFollowed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbound_redirects_followed_total",
			Help: "Validated redirect hops followed.",
		},
	)
	Fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_fetches_total",
			Help: "Completed outbound fetches by outcome.",
		},
		[]string{"outcome"},
	)
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbound_fetch_duration_seconds",
			Help:    "Whole-chain fetch latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(
		BlockedTargets,
		RedirectsFollowed,
		Fetches,
		FetchDuration,
	)
}
