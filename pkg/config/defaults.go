package config

import (
	"strings"

	"github.com/marmos91/fscheck/pkg/harness"
	"github.com/marmos91/fscheck/pkg/metrics"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backends themselves
//   - PropagationDelay is left alone: zero is meaningful there
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyBackendDefaults(&cfg.Backend)
	applyHarnessDefaults(&cfg.Harness)
	applyReportDefaults(&cfg.Report)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries the console result lines
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyBackendDefaults(cfg *BackendConfig) {
	if cfg.Type == "" {
		cfg.Type = BackendMemory
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.Bolt == nil {
		cfg.Bolt = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

func applyHarnessDefaults(cfg *HarnessConfig) {
	if cfg.MinSize == 0 {
		cfg.MinSize = harness.DefaultMinSize
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = harness.DefaultMaxSize
	}
	if cfg.SizeFactor == 0 {
		cfg.SizeFactor = harness.DefaultSizeFactor
	}
	if cfg.OffsetSamples == 0 {
		cfg.OffsetSamples = harness.DefaultOffsetSamples
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = harness.DefaultReadBufferSize
	}
}

func applyReportDefaults(cfg *ReportConfig) {
	if cfg.Format == "" {
		cfg.Format = harness.FormatJSON
	}
	cfg.Format = strings.ToLower(cfg.Format)
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = metrics.DefaultAddr
	}
}

// GetDefaultConfig returns a configuration with all defaults applied, as
// written by InitConfig.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Harness: HarnessConfig{
			PropagationDelay: harness.DefaultPropagationDelay,
		},
		Backend: BackendConfig{
			Filesystem: map[string]any{
				"root": "/tmp/fscheck",
			},
			Badger: map[string]any{
				"db_path": "/tmp/fscheck-badger",
			},
			Bolt: map[string]any{
				"path": "/tmp/fscheck.bolt",
			},
			S3: map[string]any{
				"region":     "us-east-1",
				"bucket":     "fscheck",
				"key_prefix": "fscheck/",
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
