// Command fscheck runs the conformance and stress battery against a
// configured storage backend.
//
// Exit codes:
//
//	0  every case passed or was skipped
//	1  at least one case failed
//	2  configuration, setup or report error
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/config"
	"github.com/marmos91/fscheck/pkg/harness"
	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/spf13/pflag"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitError  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// newFlagSet declares the command-line flags. Names must match the keys
// config.Load binds.
func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("fscheck", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.StringP("config", "c", "", "Path to config file (default $XDG_CONFIG_HOME/fscheck/config.yaml)")
	flags.Bool("init-config", false, "Write a default config file to --config (or the default location) and exit")
	flags.Bool("force", false, "Overwrite an existing file with --init-config")

	flags.StringP("backend", "b", "", "Backend under test (memory, badger, bolt, filesystem, s3)")
	flags.Uint("rate-limit", 0, "Maximum backend calls per second (0 = unlimited)")
	flags.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.String("log-format", "", "Log format (text, json)")

	flags.Int64("seed", 0, "Random seed for paths and offsets (0 = derive from clock)")
	flags.Duration("delay", 0, "Propagation delay before eventual-visibility checks (default 1s)")
	flags.Int("min-size", 0, "Smallest sized-case fixture in bytes (default 10)")
	flags.Int("max-size", 0, "Largest sized-case fixture in bytes (default 1000000)")
	flags.Int("samples", 0, "Single-byte reads per size (default 10000)")
	flags.StringSlice("skip", nil, "Case names to report as skipped")

	flags.String("report", "", "Write a machine-readable report to this path")
	flags.String("report-format", "", "Report format (json, yaml)")
	flags.Bool("table", false, "Print a summary table after the run")

	flags.Bool("metrics", false, "Serve Prometheus metrics during the run")
	flags.String("metrics-addr", "", "Metrics listen address (default :9090)")

	return flags
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet(stderr)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	configPath, _ := flags.GetString("config")
	if initConfig, _ := flags.GetBool("init-config"); initConfig {
		force, _ := flags.GetBool("force")
		return writeDefaultConfig(configPath, force, stdout, stderr)
	}

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	closeLog, err := configureLogging(cfg.Logging, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, cfg, stdout)
}

// execute builds the backend, runs the battery and emits the results.
func execute(ctx context.Context, cfg *config.Config, stdout io.Writer) int {
	m, err := config.InitializeMetrics(cfg)
	if err != nil {
		logger.Error("Failed to initialize metrics: %v", err)
		return exitError
	}
	if m.Server != nil {
		serverCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := m.Server.Start(serverCtx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	client, err := config.CreateClient(ctx, &cfg.Backend)
	if err != nil {
		logger.Error("%v", err)
		return exitError
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close %s backend: %v", cfg.Backend.Type, err)
		}
	}()

	opts := cfg.Harness.Options()
	opts.Backend = cfg.Backend.Type
	opts.Output = stdout

	logger.Info("Testing %s backend (max size %d, propagation delay %s)",
		cfg.Backend.Type, opts.MaxSize, opts.PropagationDelay)

	report := harness.RunStandardTests(ctx, sut.NewMeteredClient(client, m.SUTMetrics), opts)
	m.CaseMetrics.RecordReport(report)

	logger.Info("Run %s finished: %d passed, %d failed, %d skipped (seed %d)",
		report.RunID, report.Summary.Passed, report.Summary.Failed, report.Summary.Skipped, report.Seed)

	if ctx.Err() != nil {
		logger.Warn("Run interrupted; remaining cases were skipped")
	}

	code := exitOK
	if report.Failed() {
		code = exitFailed
	}

	if cfg.Report.Path != "" {
		if err := report.WriteReport(cfg.Report.Path, cfg.Report.Format); err != nil {
			logger.Error("%v", err)
			code = exitError
		} else {
			logger.Info("Report written to %s", cfg.Report.Path)
		}
	}

	if cfg.Report.Table {
		report.WriteTable(stdout)
	}

	return code
}

func writeDefaultConfig(path string, force bool, stdout, stderr io.Writer) int {
	var err error
	if path == "" {
		path, err = config.InitConfig(force)
	} else {
		err = config.InitConfigToPath(path, force)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	_, _ = fmt.Fprintf(stdout, "Configuration written to %s\n", path)
	return exitOK
}

// configureLogging applies the logging section. The returned function
// closes the log file, if one was opened.
func configureLogging(cfg config.LoggingConfig, stderr io.Writer) (func(), error) {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)

	switch cfg.Output {
	case "stderr":
		logger.SetOutput(stderr)
		return func() {}, nil
	case "stdout":
		logger.SetOutput(os.Stdout)
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return func() {
		logger.SetOutput(stderr)
		_ = f.Close()
	}, nil
}
