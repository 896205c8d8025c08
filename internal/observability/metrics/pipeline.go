package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains metrics for ingestion, approval and statistics.
// All methods are safe to call on a nil receiver.
type PipelineMetrics struct {
	DetectionsIngested *prometheus.CounterVec   // by result
	Approvals          *prometheus.CounterVec   // by resulting approval value
	StatisticsDuration *prometheus.HistogramVec // by group_by
}

// NewPipelineMetrics creates and registers pipeline metrics on registry.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		DetectionsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "detections_ingested_total",
			Help:      "Total number of ingestion calls by result (created, duplicate, rejected, error)",
		}, []string{"result"}),
		Approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "approvals_total",
			Help:      "Total number of approval transitions by resulting approval value",
		}, []string{"value"}),
		StatisticsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "statistics_duration_seconds",
			Help:      "Time taken to compute a statistics report",
			Buckets:   durationBuckets,
		}, []string{"group_by"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

// RecordIngest counts one ingestion outcome.
func (m *PipelineMetrics) RecordIngest(result string) {
	if m == nil {
		return
	}
	m.DetectionsIngested.WithLabelValues(result).Inc()
}

// RecordApprovals counts n transitions to value.
func (m *PipelineMetrics) RecordApprovals(value string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Approvals.WithLabelValues(value).Add(float64(n))
}

// ObserveStatistics records the duration of one report computation.
func (m *PipelineMetrics) ObserveStatistics(groupBy string, d time.Duration) {
	if m == nil {
		return
	}
	m.StatisticsDuration.WithLabelValues(groupBy).Observe(d.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DetectionsIngested.Describe(ch)
	m.Approvals.Describe(ch)
	m.StatisticsDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DetectionsIngested.Collect(ch)
	m.Approvals.Collect(ch)
	m.StatisticsDuration.Collect(ch)
}
