// Package metrics registers the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPDuration observes request latency per route and status class.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "musex",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})

	// PrecomputeTuples counts snapshot tuples by outcome.
	PrecomputeTuples = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musex",
		Subsystem: "precompute",
		Name:      "tuples_total",
		Help:      "Precomputed snapshot tuples by outcome.",
	}, []string{"outcome"})

	// FilterKept counts points surviving deduplication per entity type.
	FilterKept = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musex",
		Subsystem: "filter",
		Name:      "points_kept_total",
		Help:      "Points kept by the spatial deduplication filter.",
	}, []string{"entity_type"})

	// FilterDiscarded counts points removed by deduplication per entity type.
	FilterDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musex",
		Subsystem: "filter",
		Name:      "points_discarded_total",
		Help:      "Points discarded by the spatial deduplication filter.",
	}, []string{"entity_type"})
)
