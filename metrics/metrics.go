package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketing",
			Name:      "messages_processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketing",
			Name:      "messages_processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "ticketing",
			Name:       "messages_processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)

	// ExpirationJobsScheduled counts delayed expiration jobs added to the queue
	ExpirationJobsScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ticketing",
			Name:      "expiration_jobs_scheduled_total",
			Help:      "The total number of expiration jobs scheduled",
		},
	)

	// ExpirationJobsFired counts delayed expiration jobs that reached their fire time
	ExpirationJobsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ticketing",
			Name:      "expiration_jobs_fired_total",
			Help:      "The total number of expiration jobs fired",
		},
	)
)
