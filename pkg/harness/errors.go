package harness

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a case failed.
type ErrorKind string

const (
	// KindSetup means a fixture could not be prepared (bad path, bad sizes).
	KindSetup ErrorKind = "setup"

	// KindOperation means the SUT returned an unexpected error.
	KindOperation ErrorKind = "operation"

	// KindInvariant means the SUT succeeded but its observable state is wrong.
	KindInvariant ErrorKind = "invariant"
)

// CaseError is the error a case stops at.
type CaseError struct {
	Kind    ErrorKind
	Op      string
	Path    string
	Err     error
	Message string
}

func (e *CaseError) Error() string {
	target := e.Op
	if e.Path != "" {
		target += " " + e.Path
	}

	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", target, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", target, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", target, e.Err)
	}
	return target
}

func (e *CaseError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a CaseError. Anything else is treated as an
// operation error.
func KindOf(err error) ErrorKind {
	var caseErr *CaseError
	if errors.As(err, &caseErr) {
		return caseErr.Kind
	}
	return KindOperation
}

func setupError(op, path, format string, args ...any) *CaseError {
	return &CaseError{Kind: KindSetup, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}

func operationError(op, path string, err error) *CaseError {
	return &CaseError{Kind: KindOperation, Op: op, Path: path, Err: err}
}

func invariantError(op, path, format string, args ...any) *CaseError {
	return &CaseError{Kind: KindInvariant, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}
