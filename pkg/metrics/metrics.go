// Package metrics provides Prometheus metrics for the collect API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LifecycleTransitionsTotal tracks lifecycle transitions by entity and outcome
	LifecycleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collect",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of lifecycle transitions by entity, operation and status",
		},
		[]string{"entity", "operation", "status"},
	)

	// LifecycleTransitionDuration tracks transition duration in seconds
	LifecycleTransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collect",
			Subsystem: "lifecycle",
			Name:      "transition_duration_seconds",
			Help:      "Duration of lifecycle transitions in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"entity", "operation"},
	)

	// ReferenceAttemptsTotal tracks reference allocation attempts by entity type
	ReferenceAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collect",
			Subsystem: "reference",
			Name:      "attempts_total",
			Help:      "Total number of reference allocation attempts by entity type",
		},
		[]string{"entity_type"},
	)

	// ReferenceFallbacksTotal tracks allocations that exhausted the sequential attempts
	ReferenceFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collect",
			Subsystem: "reference",
			Name:      "fallbacks_total",
			Help:      "Total number of reference allocations that fell back to a random suffix",
		},
		[]string{"entity_type"},
	)

	// ReferenceFailuresTotal tracks allocations where even the fallback collided
	ReferenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collect",
			Subsystem: "reference",
			Name:      "failures_total",
			Help:      "Total number of failed reference allocations",
		},
		[]string{"entity_type"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collect",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "collect",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// SweepRunsTotal tracks overdue-pickup sweep runs by status
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collect",
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of overdue pickup sweep runs",
		},
		[]string{"status"},
	)

	// SweepOverduePickups tracks overdue pickups flagged per sweep
	SweepOverduePickups = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "collect",
			Subsystem: "sweep",
			Name:      "overdue_pickups_total",
			Help:      "Total number of overdue pickups flagged by the sweep",
		},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collect",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	// RedisOperationDuration tracks Redis operation duration
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collect",
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"operation"},
	)
)

// RecordTransition records a lifecycle transition metric
func RecordTransition(entity, operation, status string, durationSeconds float64) {
	LifecycleTransitionsTotal.WithLabelValues(entity, operation, status).Inc()
	LifecycleTransitionDuration.WithLabelValues(entity, operation).Observe(durationSeconds)
}

// RecordReferenceAttempts records attempts consumed by one allocation
func RecordReferenceAttempts(entityType string, attempts int) {
	ReferenceAttemptsTotal.WithLabelValues(entityType).Add(float64(attempts))
}

// RecordReferenceFallback records an allocation that used the random suffix
func RecordReferenceFallback(entityType string) {
	ReferenceFallbacksTotal.WithLabelValues(entityType).Inc()
}

// RecordReferenceFailure records an allocation failure
func RecordReferenceFailure(entityType string) {
	ReferenceFailuresTotal.WithLabelValues(entityType).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

// RecordSweepRun records an overdue pickup sweep run
func RecordSweepRun(status string, overdue int) {
	SweepRunsTotal.WithLabelValues(status).Inc()
	SweepOverduePickups.Add(float64(overdue))
}
