package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal counts completed searches per mode.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrsearch_searches_total",
			Help: "Total number of completed address searches",
		},
		[]string{"mode"},
	)

	// SearchErrorsTotal counts surfaced search failures per classified kind.
	SearchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrsearch_search_errors_total",
			Help: "Total number of failed address searches",
		},
		[]string{"kind"},
	)

	// CacheHitsTotal counts searches answered from the proxy cache.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addrsearch_cache_hits_total",
			Help: "Total number of cache-served searches",
		},
	)

	// UpstreamCallsTotal counts calls that reached the proxy endpoint,
	// broadening branches included.
	UpstreamCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addrsearch_upstream_calls_total",
			Help: "Total number of upstream proxy calls",
		},
	)

	// SearchLatency tracks end-to-end search latency.
	SearchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "addrsearch_search_latency_seconds",
			Help:    "Address search latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// RetriesTotal counts retry attempts per classified kind.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addrsearch_retries_total",
			Help: "Total number of search retry attempts",
		},
		[]string{"kind"},
	)
)
