package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for draft persistence, boundary imports and
// submissions. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ImportsTotal       *prometheus.CounterVec
	ImportRowsSkipped  prometheus.Counter
	DraftFlushes       *prometheus.CounterVec
	FlushDuration      prometheus.Histogram
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
}

// New registers the metrics on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ImportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parcel_boundary_imports_total",
			Help: "Boundary imports by source and result",
		}, []string{"source", "result"}),
		ImportRowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "parcel_boundary_import_rows_skipped_total",
			Help: "CSV rows dropped during import",
		}),
		DraftFlushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parcel_draft_flushes_total",
			Help: "Debounced draft writes by result",
		}, []string{"result"}),
		FlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parcel_draft_flush_duration_seconds",
			Help:    "Duration of draft snapshot writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parcel_submissions_total",
			Help: "Submission attempts by outcome",
		}, []string{"outcome"}),
		SubmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parcel_submission_duration_seconds",
			Help:    "Duration of intake transport calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveImport records one import attempt.
func (m *Metrics) ObserveImport(source string, accepted bool, skipped int) {
	if m == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "failed"
	}
	m.ImportsTotal.WithLabelValues(source, result).Inc()
	m.ImportRowsSkipped.Add(float64(skipped))
}

// ObserveFlush records a draft write started at start.
func (m *Metrics) ObserveFlush(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DraftFlushes.WithLabelValues(result).Inc()
	m.FlushDuration.Observe(time.Since(start).Seconds())
}

// ObserveSubmission records a submission outcome. A zero start skips the
// duration, as validation failures never reach the transport.
func (m *Metrics) ObserveSubmission(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	if !start.IsZero() {
		m.SubmissionDuration.Observe(time.Since(start).Seconds())
	}
}
