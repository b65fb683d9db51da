package service

import "github.com/prometheus/client_golang/prometheus"

// Upload outcomes reported on webcam_uploads_total.
const (
	OutcomeAccepted       = "accepted"
	OutcomeInvalidPayload = "invalid_payload"
	OutcomeTooLarge       = "too_large"
	OutcomeStorageFailure = "storage_failure"
)

// Secondary targets reported on webcam_upload_replication_failures_total.
const (
	TargetMirror     = "mirror"
	TargetCaptureLog = "capture_log"
)

// Metrics holds the ingest counters. A nil *Metrics records nothing.
type Metrics struct {
	uploads             *prometheus.CounterVec
	replicationFailures *prometheus.CounterVec
}

// NewMetrics creates the ingest counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webcam_uploads_total",
				Help: "Webcam uploads that reached the ingest pipeline, by outcome.",
			},
			[]string{"outcome"},
		),
		replicationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webcam_upload_replication_failures_total",
				Help: "Failures copying a stored upload to a secondary target.",
			},
			[]string{"target"},
		),
	}
	for _, c := range []prometheus.Collector{m.uploads, m.replicationFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) replicationFailed(target string) {
	if m == nil {
		return
	}
	m.replicationFailures.WithLabelValues(target).Inc()
}
