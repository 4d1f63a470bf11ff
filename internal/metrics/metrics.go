// Package metrics exposes Prometheus instrumentation for the serve mode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stormflow_evaluations_total",
		Help: "Total number of evaluations, labelled by kind and status.",
	}, []string{"kind", "status"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stormflow_cache_hits_total",
		Help: "Total number of cache hits, labelled by stage.",
	}, []string{"stage"})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stormflow_evaluation_duration_ms",
		Help:    "End-to-end evaluation latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	NetworkNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stormflow_network_nodes",
		Help:    "Node counts of evaluated networks.",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
	})

	RunsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stormflow_runs_archived_total",
		Help: "Total number of evaluation runs written to the archive.",
	})
)
