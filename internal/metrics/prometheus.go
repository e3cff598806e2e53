package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts processed workflow jobs by kind and outcome.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pressmill_jobs_total",
			Help: "Total number of workflow jobs processed",
		},
		[]string{"kind", "outcome"},
	)

	// JobDuration tracks end-to-end step duration in seconds.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pressmill_job_duration_seconds",
			Help:    "Duration of workflow step executions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27m
		},
		[]string{"kind"},
	)

	// StepRetries counts retry attempts by job kind.
	StepRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pressmill_step_retries_total",
			Help: "Total number of workflow step retry attempts",
		},
		[]string{"kind"},
	)

	// WorkersActive tracks the number of currently busy worker goroutines.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pressmill_workers_active",
			Help: "Number of currently active worker goroutines",
		},
	)

	// BatchPolls counts status polls against the inference provider.
	BatchPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pressmill_batch_polls_total",
			Help: "Total number of batch status polls",
		},
	)

	// EventsEmitted counts follow-on events emitted by step functions.
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pressmill_events_emitted_total",
			Help: "Total number of events emitted by workflow steps",
		},
		[]string{"event"},
	)
)
