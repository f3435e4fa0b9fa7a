package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlockedRequests counts requests rejected with 401 or 403
	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yana_blocked_requests_total",
			Help: "Total number of blocked requests",
		},
		[]string{"reason", "endpoint", "method"},
	)

	// ResponseTime tracks request latency per route
	ResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yana_response_time_seconds",
			Help:    "Response time in seconds",
			Buckets: []float64{1, 2, 5, 10},
		},
		[]string{"endpoint", "method", "status"},
	)

	NearbyResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yana_nearby_results",
			Help:    "Number of shared emotions returned by nearby queries",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// CoordinateDecodeFailures counts stored coordinates that could not be decrypted
	CoordinateDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yana_coordinate_decode_failures_total",
			Help: "Total number of stored coordinates that failed to decode",
		},
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yana_catalog_cache_hits_total",
			Help: "Total number of emotion catalog cache hits",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yana_catalog_cache_misses_total",
			Help: "Total number of emotion catalog cache misses",
		},
	)
)
