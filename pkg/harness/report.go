package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Summary counts outcomes by status.
type Summary struct {
	Total   int `json:"total" yaml:"total"`
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Report is the machine-readable result of one run.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Backend   string        `json:"backend,omitempty" yaml:"backend,omitempty"`
	Seed      int64         `json:"seed" yaml:"seed"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
	Outcomes  []TestOutcome `json:"outcomes" yaml:"outcomes"`
	Summary   Summary       `json:"summary" yaml:"summary"`
}

// Report formats accepted by WriteReport.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func newReport(backend string, seed int64) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Backend:   backend,
		Seed:      seed,
		StartedAt: time.Now().UTC(),
		Outcomes:  []TestOutcome{},
	}
}

func (r *Report) add(o TestOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Summary.Total++
	switch {
	case o.Skipped:
		r.Summary.Skipped++
	case o.Passed:
		r.Summary.Passed++
	default:
		r.Summary.Failed++
	}
}

// Failed reports whether any case failed. Skipped cases do not count.
func (r *Report) Failed() bool {
	return r.Summary.Failed > 0
}

// Encode writes the report to w in format (json or yaml).
func (r *Report) Encode(w io.Writer, format string) error {
	switch format {
	case FormatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(r)
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

// WriteReport encodes the report and atomically replaces the file at path,
// so a reader never sees a half-written report.
func (r *Report) WriteReport(path, format string) error {
	var buf bytes.Buffer
	if err := r.Encode(&buf, format); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// WriteTable renders one row per outcome followed by the totals.
func (r *Report) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.Header("Case", "Size", "Status", "Duration", "Message")

	for _, o := range r.Outcomes {
		size := ""
		if o.Size > 0 {
			size = strconv.Itoa(o.Size)
		}
		table.Append([]string{o.Name, size, o.Status(), o.Duration.Round(time.Microsecond).String(), o.Message})
	}
	table.Render()

	_, _ = fmt.Fprintf(w, "run %s: %d total, %d passed, %d failed, %d skipped (seed %d)\n",
		r.RunID, r.Summary.Total, r.Summary.Passed, r.Summary.Failed, r.Summary.Skipped, r.Seed)
}
