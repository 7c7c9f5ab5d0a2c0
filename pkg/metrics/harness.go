package metrics

import (
	"strconv"

	"github.com/marmos91/fscheck/pkg/harness"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CaseMetrics records the outcome of every case in a run.
type CaseMetrics struct {
	outcomesTotal *prometheus.CounterVec
	caseDuration  *prometheus.HistogramVec
	lastRunFailed prometheus.Gauge
}

// NewCaseMetrics creates Prometheus collectors for case outcomes, labelled
// with the backend name.
//
// Returns nil if metrics are not enabled. RecordReport on a nil
// *CaseMetrics is a no-op.
func NewCaseMetrics(backend string) *CaseMetrics {
	if !IsEnabled() {
		return nil
	}
	return newCaseMetrics(GetRegistry(), backend)
}

func newCaseMetrics(reg prometheus.Registerer, backend string) *CaseMetrics {
	labels := prometheus.Labels{"backend": backend}

	return &CaseMetrics{
		outcomesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "fscheck_case_outcomes_total",
				Help:        "Total number of executed cases by case, size and status",
				ConstLabels: labels,
			},
			[]string{"case", "size", "status"},
		),
		caseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "fscheck_case_duration_seconds",
				Help:        "Duration of executed cases in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4.4min
			},
			[]string{"case"},
		),
		lastRunFailed: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name:        "fscheck_last_run_failed",
				Help:        "1 if the most recent run had a failing case, 0 otherwise",
				ConstLabels: labels,
			},
		),
	}
}

// RecordReport adds every outcome of report to the collectors.
func (m *CaseMetrics) RecordReport(report *harness.Report) {
	if m == nil || report == nil {
		return
	}

	for _, o := range report.Outcomes {
		m.outcomesTotal.WithLabelValues(o.Name, strconv.Itoa(o.Size), o.Status()).Inc()
		if !o.Skipped {
			m.caseDuration.WithLabelValues(o.Name).Observe(o.Duration.Seconds())
		}
	}

	if report.Failed() {
		m.lastRunFailed.Set(1)
	} else {
		m.lastRunFailed.Set(0)
	}
}
