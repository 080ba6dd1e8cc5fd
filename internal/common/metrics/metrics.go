// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	StrategyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_strategy_attempts_total",
			Help: "Strategy attempts by result (accepted, below_threshold, failed, skipped)",
		},
		[]string{"strategy", "result"},
	)

	SearchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_search_outcomes_total",
			Help: "Completed searches by final strategy label",
		},
		[]string{"strategy"},
	)

	MarketplaceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comps_marketplace_call_duration_seconds",
			Help:    "Duration of completed-items calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"strategy"},
	)

	ListingsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comps_listings_returned",
			Help:    "Number of listings in a final search result",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		},
	)
)
