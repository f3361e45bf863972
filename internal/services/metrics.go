package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// stageOutcomes counts how each pipeline stage ended.
	// outcome is one of: continue, rejected, low_confidence, error, canceled.
	stageOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wine_pipeline_stage_total",
			Help: "Pipeline stage outcomes.",
		},
		[]string{"stage", "outcome"},
	)

	// upstreamLatency observes each external model call attempt.
	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wine_upstream_call_seconds",
			Help:    "Latency of external model calls per attempt.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(stageOutcomes, upstreamLatency)
}
