package harness

import "time"

// TestOutcome is the result of one executed case.
type TestOutcome struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// Size is the fixture size of sized cases, 0 otherwise.
	Size int `json:"size,omitempty" yaml:"size,omitempty"`

	Passed  bool      `json:"passed" yaml:"passed"`
	Skipped bool      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`

	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// Failed reports whether the case ran and did not pass.
func (o TestOutcome) Failed() bool {
	return !o.Passed && !o.Skipped
}

// Status is "passed", "failed" or "skipped".
func (o TestOutcome) Status() string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Passed:
		return "passed"
	}
	return "failed"
}
