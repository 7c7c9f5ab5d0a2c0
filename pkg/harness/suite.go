// Package harness drives a fixed battery of conformance and stress cases
// against any sut.Client and reports one outcome per case.
//
// The battery runs strictly sequentially: eight fixed cases, then four sized
// cases for every escalation size. A failing case never stops the run.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"time"

	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut"
)

// Default option values.
const (
	DefaultPropagationDelay = time.Second
	DefaultMinSize          = 10
	DefaultMaxSize          = 1_000_000
	DefaultSizeFactor       = 10
	DefaultOffsetSamples    = 10_000
	DefaultReadBufferSize   = 200
)

// Options tunes a run.
type Options struct {
	// Seed feeds path names and offset sampling. 0 derives one from the clock;
	// the seed actually used is recorded in the report.
	Seed int64

	// PropagationDelay is the wait between a mutation and the check that
	// reads it back in the cases that expect eventual visibility.
	PropagationDelay time.Duration

	// MinSize, MaxSize and SizeFactor define the escalation sizes.
	MinSize    int
	MaxSize    int
	SizeFactor int

	// OffsetSamples is the number of single-byte reads per size.
	OffsetSamples int

	// ReadBufferSize is the read buffer of the small-string and
	// bigger-than-buffer cases.
	ReadBufferSize int

	// Skip lists case names that are reported as skipped without running.
	Skip []string

	// Backend labels the report.
	Backend string

	// Output receives the console lines. nil discards them.
	Output io.Writer
}

// DefaultOptions returns the standard battery settings.
func DefaultOptions() Options {
	return Options{
		PropagationDelay: DefaultPropagationDelay,
		MinSize:          DefaultMinSize,
		MaxSize:          DefaultMaxSize,
		SizeFactor:       DefaultSizeFactor,
		OffsetSamples:    DefaultOffsetSamples,
		ReadBufferSize:   DefaultReadBufferSize,
	}
}

// withDefaults fills zero sizing fields. The delay is kept as given, since
// zero is a meaningful value for synchronous backends.
func (o Options) withDefaults() Options {
	if o.MinSize == 0 {
		o.MinSize = DefaultMinSize
	}
	if o.MaxSize == 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.SizeFactor == 0 {
		o.SizeFactor = DefaultSizeFactor
	}
	if o.OffsetSamples == 0 {
		o.OffsetSamples = DefaultOffsetSamples
	}
	if o.ReadBufferSize == 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
	return o
}

// suite is the state shared by the cases of one run.
type suite struct {
	ctx      context.Context
	client   sut.Client
	opts     Options
	rng      *rand.Rand
	namer    *Namer
	reporter *Reporter
	report   *Report
}

// RunStandardTests runs the battery once against client.
//
// Cancelling ctx stops the run before the next case; that case and all
// remaining ones are recorded as skipped. The returned report is never nil.
func RunStandardTests(ctx context.Context, client sut.Client, opts Options) *Report {
	opts = opts.withDefaults()
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	s := &suite{
		ctx:      ctx,
		client:   client,
		opts:     opts,
		rng:      rng,
		namer:    NewNamer(rng),
		reporter: NewReporter(opts.Output),
		report:   newReport(opts.Backend, opts.Seed),
	}

	logger.Debug("harness: starting run %s (seed=%d, sizes=%v)",
		s.report.RunID, opts.Seed, Sizes(opts.MinSize, opts.MaxSize, opts.SizeFactor))

	start := time.Now()
	for _, c := range fixedCases() {
		s.execute(c, 0)
	}
	for _, size := range Sizes(opts.MinSize, opts.MaxSize, opts.SizeFactor) {
		for _, c := range sizedCases() {
			s.execute(c, size)
		}
	}
	s.report.Duration = time.Since(start)

	logger.Debug("harness: run %s finished in %s: %d passed, %d failed, %d skipped",
		s.report.RunID, s.report.Duration, s.report.Summary.Passed, s.report.Summary.Failed, s.report.Summary.Skipped)

	return s.report
}

// execute runs one case and records its outcome.
func (s *suite) execute(c testCase, size int) {
	outcome := TestOutcome{
		Name:        c.name,
		Description: c.description(s, size),
		Size:        size,
	}

	s.reporter.Begin(outcome.Description)

	switch {
	case s.ctx.Err() != nil:
		outcome.Skipped = true
		outcome.Message = "run cancelled"
	case slices.Contains(s.opts.Skip, c.name):
		outcome.Skipped = true
		outcome.Message = "skipped by configuration"
	default:
		start := time.Now()
		err := s.protect(c, size)
		outcome.Duration = time.Since(start)

		switch {
		case err == nil:
			outcome.Passed = true
		case s.ctx.Err() != nil && errors.Is(err, s.ctx.Err()):
			outcome.Skipped = true
			outcome.Message = "run cancelled"
		default:
			outcome.Kind = KindOf(err)
			outcome.Message = err.Error()
			logger.Warn("harness: %s (size=%d) failed with %s error: %v", c.name, size, outcome.Kind, err)
		}
	}

	s.reporter.End(outcome)
	s.report.add(outcome)
}

// protect runs the case and turns a panic into an operation error.
func (s *suite) protect(c testCase, size int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CaseError{Kind: KindOperation, Op: c.name, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()

	logger.Debug("harness: running %s (size=%d)", c.name, size)
	return c.run(s, size)
}

// propagate waits for the configured propagation delay.
func (s *suite) propagate() error {
	if err := sleep(s.ctx, s.opts.PropagationDelay); err != nil {
		return operationError("propagate", "", err)
	}
	return nil
}
