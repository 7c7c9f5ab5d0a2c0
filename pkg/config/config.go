package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/fscheck/pkg/harness"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the complete fscheck configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FSCHECK_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Backend Configuration Pattern:
// Each backend defines its own configuration type in its package. The
// Backend section holds one map per backend type and only the map matching
// the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Backend selects and configures the system under test
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`

	// Harness tunes the test battery
	Harness HarnessConfig `mapstructure:"harness" yaml:"harness"`

	// Report controls the machine-readable result file and summary table
	Report ReportConfig `mapstructure:"report" yaml:"report"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// Backend types accepted by BackendConfig.Type.
const (
	BackendMemory     = "memory"
	BackendBadger     = "badger"
	BackendBolt       = "bolt"
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// BackendConfig specifies the system under test.
//
// The Type field determines which backend is created. Only the
// corresponding type-specific section is used.
type BackendConfig struct {
	// Type specifies which backend implementation to test
	// Valid values: memory, badger, bolt, filesystem, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger bolt filesystem s3"`

	// Memory contains memory.MemoryStoreConfig options
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains badger.BadgerStoreConfig options
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// Bolt contains bolt.BoltStoreConfig options
	Bolt map[string]any `mapstructure:"bolt" yaml:"bolt"`

	// Filesystem contains fs.FSStoreConfig options
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// S3 contains s3.S3StoreConfig options
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`

	// RateLimit paces calls to the backend, whatever its type
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures the token bucket in front of the backend.
type RateLimitConfig struct {
	// OpsPerSecond is the sustained call rate (0 = unlimited)
	OpsPerSecond uint `mapstructure:"ops_per_second" yaml:"ops_per_second"`

	// Burst is the bucket capacity (0 = one call at a time)
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// HarnessConfig mirrors harness.Options.
type HarnessConfig struct {
	// Seed feeds path names and offset sampling (0 = derive from the clock)
	Seed int64 `mapstructure:"seed" yaml:"seed"`

	// PropagationDelay is the wait before checks that expect eventual visibility
	PropagationDelay time.Duration `mapstructure:"propagation_delay" yaml:"propagation_delay" validate:"gte=0"`

	MinSize    int `mapstructure:"min_size" yaml:"min_size" validate:"gt=0"`
	MaxSize    int `mapstructure:"max_size" yaml:"max_size" validate:"gt=0"`
	SizeFactor int `mapstructure:"size_factor" yaml:"size_factor" validate:"gte=1"`

	// OffsetSamples is the number of single-byte reads per size
	OffsetSamples int `mapstructure:"offset_samples" yaml:"offset_samples" validate:"gt=0"`

	// ReadBufferSize is the buffer of the small-string and bigger-than-buffer cases
	ReadBufferSize int `mapstructure:"read_buffer_size" yaml:"read_buffer_size" validate:"gt=0"`

	// Skip lists case names reported as skipped without running
	Skip []string `mapstructure:"skip" yaml:"skip" validate:"dive,case_name"`
}

// ReportConfig controls run output.
type ReportConfig struct {
	// Path of the report file. Empty disables the file.
	Path string `mapstructure:"path" yaml:"path"`

	// Format of the report file
	// Valid values: json, yaml
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=json yaml"`

	// Table prints a summary table after the run
	Table bool `mapstructure:"table" yaml:"table"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled starts the metrics server for the duration of the run
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Addr is the listen address, e.g. ":9090"
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
}

// Options converts the section into harness options.
func (c HarnessConfig) Options() harness.Options {
	return harness.Options{
		Seed:             c.Seed,
		PropagationDelay: c.PropagationDelay,
		MinSize:          c.MinSize,
		MaxSize:          c.MaxSize,
		SizeFactor:       c.SizeFactor,
		OffsetSamples:    c.OffsetSamples,
		ReadBufferSize:   c.ReadBufferSize,
		Skip:             c.Skip,
	}
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"backend":       "backend.type",
	"rate-limit":    "backend.rate_limit.ops_per_second",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"seed":          "harness.seed",
	"delay":         "harness.propagation_delay",
	"min-size":      "harness.min_size",
	"max-size":      "harness.max_size",
	"samples":       "harness.offset_samples",
	"skip":          "harness.skip",
	"report":        "report.path",
	"report-format": "report.format",
	"table":         "report.table",
	"metrics":       "metrics.enabled",
	"metrics-addr":  "metrics.addr",
}

// envKeys are the scalar keys that can be set through FSCHECK_* variables.
// Viper only consults the environment for keys it already knows about.
var envKeys = []string{
	"logging.level", "logging.format", "logging.output",
	"backend.type", "backend.rate_limit.ops_per_second", "backend.rate_limit.burst",
	"harness.seed", "harness.propagation_delay", "harness.min_size", "harness.max_size",
	"harness.size_factor", "harness.offset_samples", "harness.read_buffer_size",
	"report.path", "report.format", "report.table",
	"metrics.enabled", "metrics.addr",
}

// Load loads configuration from flags, environment, file and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//   - flags: Parsed CLI flags to bind (nil when there are none). Only flags
//     named in flagKeys are bound; unchanged flags do not override the file.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if err := setupViper(v, configPath, flags); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variables, flags and config file
// lookup.
func setupViper(v *viper.Viper, configPath string, flags *pflag.FlagSet) error {
	// Example: FSCHECK_HARNESS_PROPAGATION_DELAY=2s
	v.SetEnvPrefix("FSCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	// Zero is a valid delay, so this default cannot live in ApplyDefaults.
	v.SetDefault("harness.propagation_delay", harness.DefaultPropagationDelay)

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/fscheck/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return nil
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		// An explicit path that does not exist is treated like a missing
		// default file.
		if configPath != "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fscheck")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "fscheck")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
