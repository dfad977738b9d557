// ABOUTME: Prometheus collectors for authentication, task operations and HTTP traffic
// ABOUTME: Package-level vectors registered once through RegisterCollectors

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aa_tracker"

var (
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "auth_attempts_total", Help: "Init-data authentication attempts by outcome."},
		[]string{"outcome"},
	)
	TaskOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "task_operations_total", Help: "Task store operations by operation and outcome."},
		[]string{"op", "outcome"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by route and status code.", Buckets: prometheus.DefBuckets},
		[]string{"route", "code"},
	)
)

var registerOnce sync.Once

// RegisterCollectors adds every collector to reg. Calls after the first are no-ops.
func RegisterCollectors(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(AuthAttempts)
		reg.MustRegister(TaskOperations)
		reg.MustRegister(HTTPRequestDuration)
	})
}
