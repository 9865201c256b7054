// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CriteriaEvaluationsTotal tracks criteria evaluations by outcome
	CriteriaEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "criteria",
			Name:      "evaluations_total",
			Help:      "Total number of criteria evaluations by result",
		},
		[]string{"environment", "result"},
	)

	// CriteriaEvaluationDuration tracks criteria evaluation duration
	CriteriaEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "criteria",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of criteria evaluations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// RelayCallsTotal tracks relay calls by type and status
	RelayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "relay",
			Name:      "calls_total",
			Help:      "Total number of relay calls by type and status",
		},
		[]string{"type", "status"},
	)

	// RelayCallDuration tracks relay call duration
	RelayCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "relay",
			Name:      "call_duration_seconds",
			Help:      "Duration of relay calls in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// AuthorizationDecisionsTotal tracks authorization outcomes
	AuthorizationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "authorization",
			Name:      "decisions_total",
			Help:      "Total number of authorization decisions by action and outcome",
		},
		[]string{"action", "router", "outcome"},
	)

	// PermissionCacheRequests tracks permission cache lookups
	PermissionCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "authorization",
			Name:      "cache_requests_total",
			Help:      "Total number of permission cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// MetricRecordsDropped tracks evaluation records dropped by the sink
	MetricRecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sink",
			Name:      "records_dropped_total",
			Help:      "Total number of evaluation records dropped because the sink buffer was full",
		},
	)

	// MetricRecordsPersisted tracks evaluation records written by the sink
	MetricRecordsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sink",
			Name:      "records_persisted_total",
			Help:      "Total number of evaluation records persisted by status",
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// RecordEvaluation records a criteria evaluation outcome
func RecordEvaluation(environment string, result bool, durationSeconds float64) {
	outcome := "false"
	if result {
		outcome = "true"
	}
	CriteriaEvaluationsTotal.WithLabelValues(environment, outcome).Inc()
	CriteriaEvaluationDuration.Observe(durationSeconds)
}

// RecordRelayCall records a relay call outcome
func RecordRelayCall(relayType, status string, durationSeconds float64) {
	RelayCallsTotal.WithLabelValues(relayType, status).Inc()
	RelayCallDuration.Observe(durationSeconds)
}

// RecordAuthorization records an authorization decision
func RecordAuthorization(action, router, outcome string) {
	AuthorizationDecisionsTotal.WithLabelValues(action, router, outcome).Inc()
}

// RecordPermissionCache records a permission cache lookup outcome
func RecordPermissionCache(outcome string) {
	PermissionCacheRequests.WithLabelValues(outcome).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
