// Package observability registers the prometheus metrics for the
// recording and detection pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline counters. Register one instance per process.
type Metrics struct {
	WindowsExtracted      prometheus.Counter
	WindowsDropped        prometheus.Counter
	CandidatesDropped     prometheus.Counter
	ClassificationErrors  prometheus.Counter
	ClassificationTimeout prometheus.Counter
	CandidatesEmitted     prometheus.Counter
	DuplicatesSuppressed  prometheus.Counter
	DetectionsSaved       prometheus.Counter
	InsertRetries         prometheus.Counter
	InsertFailures        prometheus.Counter
	DeviceRestarts        prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers the pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		WindowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_windows_extracted_total",
			Help: "Number of audio windows extracted from the capture buffer.",
		}),
		WindowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_windows_dropped_total",
			Help: "Number of audio windows dropped due to a saturated analysis queue.",
		}),
		CandidatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_candidates_dropped_total",
			Help: "Number of detection candidates dropped due to a saturated candidate queue.",
		}),
		ClassificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_classification_errors_total",
			Help: "Number of windows dropped because classification failed.",
		}),
		ClassificationTimeout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_classification_timeouts_total",
			Help: "Number of classification calls that exceeded the timeout.",
		}),
		CandidatesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_candidates_emitted_total",
			Help: "Number of detection candidates above the confidence threshold.",
		}),
		DuplicatesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_duplicates_suppressed_total",
			Help: "Number of candidates suppressed by the duplicate filter.",
		}),
		DetectionsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_detections_saved_total",
			Help: "Number of detections persisted to the database.",
		}),
		InsertRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_insert_retries_total",
			Help: "Number of retried detection inserts.",
		}),
		InsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_insert_failures_total",
			Help: "Number of detections dropped after exhausting insert retries.",
		}),
		DeviceRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listener_device_restarts_total",
			Help: "Number of capture device reopen attempts after a device error.",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.WindowsExtracted, m.WindowsDropped, m.CandidatesDropped,
		m.ClassificationErrors, m.ClassificationTimeout, m.CandidatesEmitted,
		m.DuplicatesSuppressed, m.DetectionsSaved,
		m.InsertRetries, m.InsertFailures, m.DeviceRestarts,
	)

	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
