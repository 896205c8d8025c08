// Package metrics provides custom Prometheus metrics for the detection pipeline.
package metrics

// Namespace prefixes every metric name.
const Namespace = "securitas"

// Ingestion result label values.
const (
	IngestCreated   = "created"
	IngestDuplicate = "duplicate"
	IngestRejected  = "rejected"
	IngestError     = "error"
)

// Notification result label values.
const (
	NotifySent    = "sent"
	NotifySkipped = "skipped"
	NotifyFailed  = "failed"
)

// durationBuckets spans 10ms to 60s.
var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
