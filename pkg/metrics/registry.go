// Package metrics exposes Prometheus metrics for a harness run: per-call
// SUT latency and outcome, payload bytes, and case results.
//
// All metrics are optional. Until InitRegistry is called the constructors
// return nil and callers fall back to no-op implementations.
//
// Usage:
//
//	metrics.InitRegistry()
//	client = sut.NewMeteredClient(client, metrics.NewSUTMetrics("s3"))
//
//	report := harness.RunStandardTests(ctx, client, opts)
//	metrics.NewCaseMetrics("s3").RecordReport(report)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is the global Prometheus registry for all fscheck metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to call
// multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true once InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
