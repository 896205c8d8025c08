package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics contains metrics for the MQTT ingestion subscriber.
// All methods are safe to call on a nil receiver.
type MQTTMetrics struct {
	ConnectionStatus prometheus.Gauge
	MessagesReceived prometheus.Counter
	MessagesDropped  *prometheus.CounterVec // by reason
	LastConnectTime  prometheus.Gauge
	MessageSize      prometheus.Histogram
}

// NewMQTTMetrics creates and registers MQTT metrics on registry.
func NewMQTTMetrics(registry prometheus.Registerer) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "mqtt_connection_status",
			Help:      "Current MQTT connection status (1 for connected, 0 for disconnected)",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mqtt_messages_received_total",
			Help:      "Total number of detection messages received over MQTT",
		}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mqtt_messages_dropped_total",
			Help:      "Total number of MQTT messages not ingested, by reason",
		}, []string{"reason"}),
		LastConnectTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "mqtt_last_connect_timestamp_seconds",
			Help:      "Unix timestamp of the last successful MQTT connection",
		}),
		MessageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "mqtt_message_size_bytes",
			Help:      "Size of received MQTT payloads in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// SetConnected updates the connection gauge.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.ConnectionStatus.Set(1)
		m.LastConnectTime.Set(float64(time.Now().Unix()))
		return
	}
	m.ConnectionStatus.Set(0)
}

// RecordMessage counts one received payload.
func (m *MQTTMetrics) RecordMessage(size int) {
	if m == nil {
		return
	}
	m.MessagesReceived.Inc()
	m.MessageSize.Observe(float64(size))
}

// RecordDropped counts one payload that was not ingested.
func (m *MQTTMetrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(reason).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ConnectionStatus.Describe(ch)
	m.MessagesReceived.Describe(ch)
	m.MessagesDropped.Describe(ch)
	m.LastConnectTime.Describe(ch)
	m.MessageSize.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ConnectionStatus.Collect(ch)
	m.MessagesReceived.Collect(ch)
	m.MessagesDropped.Collect(ch)
	m.LastConnectTime.Collect(ch)
	m.MessageSize.Collect(ch)
}
