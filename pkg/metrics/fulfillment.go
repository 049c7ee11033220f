package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records timing and outcomes for order fulfillment and
// stock allocation.
type FulfillmentMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	oversell prometheus.Counter
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fulfillment_duration_seconds",
		Help:    "Duration of fulfillment operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_success",
		Help: "Successful fulfillment operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_failure",
		Help: "Failed fulfillment operations.",
	}, []string{"operation"})
	oversell := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_oversell_rejections",
		Help: "Allocations rejected because stock was insufficient.",
	})
	reg.MustRegister(duration, success, failure, oversell)
	return &FulfillmentMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		oversell: oversell,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *FulfillmentMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *FulfillmentMetrics) IncSuccess(operation string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *FulfillmentMetrics) IncFailure(operation string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncOversellRejection counts an allocation refused for lack of stock.
func (m *FulfillmentMetrics) IncOversellRejection() {
	if m == nil || m.oversell == nil {
		return
	}
	m.oversell.Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
