package metrics

import (
	"time"

	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sutMetrics is the Prometheus implementation of sut.Metrics.
//
// It collects, per backend:
//   - Call counts by operation and status
//   - Call latency
//   - Payload bytes by direction
//   - Error counts by operation and contract code
type sutMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
}

// NewSUTMetrics creates a Prometheus-backed sut.Metrics labelled with the
// backend name.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes sut.NewMeteredClient fall back to its no-op implementation.
func NewSUTMetrics(backend string) sut.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newSUTMetrics(GetRegistry(), backend)
}

func newSUTMetrics(reg prometheus.Registerer, backend string) *sutMetrics {
	labels := prometheus.Labels{"backend": backend}

	return &sutMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "fscheck_sut_operations_total",
				Help:        "Total number of SUT calls by operation and status",
				ConstLabels: labels,
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "fscheck_sut_operation_duration_seconds",
				Help:        "Duration of SUT calls in seconds",
				ConstLabels: labels,
				Buckets: []float64{
					0.0001, // 100us
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
					5.0,    // 5s
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "fscheck_sut_bytes_transferred_total",
				Help:        "Total payload bytes moved through the SUT",
				ConstLabels: labels,
			},
			[]string{"direction"}, // read or write
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "fscheck_sut_errors_total",
				Help:        "Total number of SUT errors by operation and error code",
				ConstLabels: labels,
			},
			[]string{"operation", "code"},
		),
	}
}

// ObserveOperation implements sut.Metrics.ObserveOperation
func (m *sutMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.errorsTotal.WithLabelValues(operation, errorCode(err)).Inc()
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBytes implements sut.Metrics.RecordBytes
func (m *sutMetrics) RecordBytes(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

// errorCode labels err with its contract code, or "other" for errors that
// are not StoreErrors (context cancellation, panics turned into errors).
func errorCode(err error) string {
	if code, ok := sut.CodeOf(err); ok {
		return code.String()
	}
	return "other"
}
