package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics records pool operation activity.
type LendingMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	accruals   prometheus.Counter
}

var (
	lendingMetricsOnce sync.Once
	lendingRegistry    *LendingMetrics
)

// Lending returns the lazily-initialised metrics registry used to record pool
// operations.
func Lending() *LendingMetrics {
	lendingMetricsOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "pool",
				Name:      "operations_total",
				Help:      "Total pool operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lendpool",
				Subsystem: "pool",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for pool operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			accruals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lendpool",
				Subsystem: "pool",
				Name:      "accruals_total",
				Help:      "Count of reserve index accruals applied.",
			}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.latency,
			lendingRegistry.accruals,
		)
	})
	return lendingRegistry
}

// ObserveOperation records one pool operation with its outcome and duration.
func (m *LendingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(strings.ToLower(operation))
	if operation == "" {
		operation = "unknown"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(seconds)
}

// RecordAccrual increments the reserve accrual counter.
func (m *LendingMetrics) RecordAccrual() {
	if m == nil {
		return
	}
	m.accruals.Inc()
}
