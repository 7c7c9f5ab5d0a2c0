package config

import (
	"github.com/marmos91/fscheck/pkg/metrics"
	"github.com/marmos91/fscheck/pkg/sut"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// SUTMetrics observes backend calls (nil if disabled; sut.NewMeteredClient
	// treats nil as no-op)
	SUTMetrics sut.Metrics

	// CaseMetrics records case outcomes (nil if disabled; nil is a no-op)
	CaseMetrics *metrics.CaseMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Binds the metrics HTTP server
//   - Creates Prometheus-backed collectors labelled with the backend type
//
// If metrics are disabled every field of the result is nil.
//
// Parameters:
//   - cfg: The complete fscheck configuration
//
// Returns:
//   - *MetricsResult containing all metrics components
//   - error if the listen address cannot be bound
func InitializeMetrics(cfg *Config) (*MetricsResult, error) {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}, nil
	}

	metrics.InitRegistry()

	server, err := metrics.NewServer(metrics.ServerConfig{Addr: cfg.Metrics.Addr})
	if err != nil {
		return nil, err
	}

	return &MetricsResult{
		Server:      server,
		SUTMetrics:  metrics.NewSUTMetrics(cfg.Backend.Type),
		CaseMetrics: metrics.NewCaseMetrics(cfg.Backend.Type),
	}, nil
}
