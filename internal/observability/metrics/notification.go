package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Circuit breaker state values reported by the state gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// NotificationMetrics contains metrics for alert delivery.
// All methods are safe to call on a nil receiver.
type NotificationMetrics struct {
	Notifications       *prometheus.CounterVec   // by transport, result
	Attempts            *prometheus.CounterVec   // by transport
	Duration            *prometheus.HistogramVec // by transport
	CircuitBreakerState *prometheus.GaugeVec     // by transport
}

// NewNotificationMetrics creates and registers notification metrics on registry.
func NewNotificationMetrics(registry prometheus.Registerer) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Total number of dispatch calls by transport and result (sent, skipped, failed)",
		}, []string{"transport", "result"}),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notification_attempts_total",
			Help:      "Total number of transport send attempts, including retries",
		}, []string{"transport"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "notification_duration_seconds",
			Help:      "Time taken by a dispatch call including retries",
			Buckets:   durationBuckets,
		}, []string{"transport"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "notification_circuit_breaker_state",
			Help:      "Transport circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"transport"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

// RecordDispatch counts one dispatch outcome and its duration.
func (m *NotificationMetrics) RecordDispatch(transport, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(transport, result).Inc()
	if result != NotifySkipped {
		m.Duration.WithLabelValues(transport).Observe(d.Seconds())
	}
}

// RecordAttempt counts one transport send attempt.
func (m *NotificationMetrics) RecordAttempt(transport string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(transport).Inc()
}

// SetBreakerState publishes the circuit breaker state for transport.
func (m *NotificationMetrics) SetBreakerState(transport string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(transport).Set(float64(state))
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Notifications.Describe(ch)
	m.Attempts.Describe(ch)
	m.Duration.Describe(ch)
	m.CircuitBreakerState.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Notifications.Collect(ch)
	m.Attempts.Collect(ch)
	m.Duration.Collect(ch)
	m.CircuitBreakerState.Collect(ch)
}
