// Package metrics holds the Prometheus collectors shared by the gateway
// processes. Everything registers on the default registry through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mnp"

var (
	// HTTP ingress
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~65s
		},
		[]string{"method", "route"},
	)

	// Dispatcher
	DispatchedJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "jobs_total",
			Help:      "Requests handed to operation handlers, by family and outcome",
		},
		[]string{"family", "outcome"},
	)

	LeaseContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "lease_contention_total",
			Help:      "Due rows skipped because another worker held their lease",
		},
		[]string{"family"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "transitions_total",
			Help:      "Persisted status_nc transitions by request type and target state",
		},
		[]string{"request_type", "state"},
	)

	// Central Node
	CNCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cn",
			Name:      "call_duration_seconds",
			Help:      "Latency of SOAP calls to the Central Node",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"operation", "result"},
	)

	CNBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cn",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per endpoint (0 closed, 1 open, 2 half-open)",
		},
		[]string{"endpoint"},
	)

	// BSS callbacks
	CallbackDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bss",
			Name:      "callback_deliveries_total",
			Help:      "BSS webhook delivery attempts by source kind and result",
		},
		[]string{"source_kind", "result"},
	)

	// Italy
	ItalyFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "italy",
			Name:      "files_total",
			Help:      "Italy exchange files by direction, message type and result",
		},
		[]string{"direction", "message_type", "result"},
	)

	ItalyActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "italy",
			Name:      "actions_total",
			Help:      "Italy scheduled actions by final status",
		},
		[]string{"status"},
	)
)
