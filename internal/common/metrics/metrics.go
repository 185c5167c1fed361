// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_stage_completed_total",
			Help: "Total number of pipeline stage executions that completed",
		},
		[]string{"task_type"},
	)

	StageFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_stage_failed_total",
			Help: "Total number of pipeline stage executions that fell back",
		},
		[]string{"task_type", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pharmacy_stage_duration_seconds",
			Help: "Duration of pipeline stage execution in seconds",
		},
		[]string{"task_type"},
	)

	RequestsByIntent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_requests_total",
			Help: "Chat turns by resolved intent",
		},
		[]string{"intent"},
	)

	ExtractionSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_extraction_source_total",
			Help: "Structured requests by producer (llm or fallback) and fallback reason",
		},
		[]string{"source", "reason"},
	)

	DispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_dispatch_outcomes_total",
			Help: "Dispatcher results by status and code",
		},
		[]string{"status", "code"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pharmacy_backend_call_duration_seconds",
			Help:    "Duration of backend operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_notifications_total",
			Help: "Admin notifications by sink and outcome",
		},
		[]string{"sink", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pharmacy_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_circuit_breaker_failures_total",
			Help: "Calls that failed or were rejected by a circuit breaker",
		},
		[]string{"name"},
	)
)
