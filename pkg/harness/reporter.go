package harness

import (
	"fmt"
	"io"
)

// Reporter prints one console line per case: the description, then
// "passed", "FAILED: <message>" or "skipped".
type Reporter struct {
	w io.Writer
}

// NewReporter writes to w. A nil w discards output.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w}
}

// Begin prints the description before the case runs, so a hanging backend
// shows which case it hangs in.
func (r *Reporter) Begin(description string) {
	_, _ = fmt.Fprint(r.w, description)
}

// End completes the line started by Begin.
func (r *Reporter) End(o TestOutcome) {
	switch {
	case o.Skipped:
		_, _ = fmt.Fprintln(r.w, "skipped")
	case o.Passed:
		_, _ = fmt.Fprintln(r.w, "passed")
	default:
		_, _ = fmt.Fprintf(r.w, "FAILED: %s\n", o.Message)
	}
}
