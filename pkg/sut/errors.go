package sut

import "errors"

// StoreError is the error type returned by backends for contract-level
// failures.
//
// Backends should return a StoreError for every condition the contract
// names, so callers can tell an expected refusal (e.g. ErrNotFound on a
// non-recursive mkdir) apart from a genuine backend failure.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the path the operation was applied to (if applicable)
	Path string
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode categorizes a StoreError.
type ErrorCode int

const (
	// ErrNotFound indicates the path (or one of its ancestors) does not exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates the path already exists
	ErrAlreadyExists

	// ErrNotEmpty indicates a directory still has children
	ErrNotEmpty

	// ErrIsDirectory indicates a file operation was applied to a directory
	ErrIsDirectory

	// ErrNotDirectory indicates a path component used as a directory is a file
	ErrNotDirectory

	// ErrInvalidArgument indicates malformed input: bad path, negative
	// offset or size, removal of the root
	ErrInvalidArgument

	// ErrIOError indicates a failure inside the backend itself
	ErrIOError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrAlreadyExists:
		return "already exists"
	case ErrNotEmpty:
		return "directory not empty"
	case ErrIsDirectory:
		return "is a directory"
	case ErrNotDirectory:
		return "not a directory"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrIOError:
		return "i/o error"
	default:
		return "unknown error"
	}
}

// NewError builds a StoreError whose message is the code's description.
func NewError(code ErrorCode, path string) *StoreError {
	return &StoreError{Code: code, Message: code.String(), Path: path}
}

// CodeOf extracts the ErrorCode of err. The second result is false when err
// is not (and does not wrap) a StoreError.
func CodeOf(err error) (ErrorCode, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNotFound reports whether err is an ErrNotFound StoreError.
func IsNotFound(err error) bool { return hasCode(err, ErrNotFound) }

// IsAlreadyExists reports whether err is an ErrAlreadyExists StoreError.
func IsAlreadyExists(err error) bool { return hasCode(err, ErrAlreadyExists) }

// IsNotEmpty reports whether err is an ErrNotEmpty StoreError.
func IsNotEmpty(err error) bool { return hasCode(err, ErrNotEmpty) }

// IsDirectoryError reports whether err is an ErrIsDirectory StoreError.
func IsDirectoryError(err error) bool { return hasCode(err, ErrIsDirectory) }

// IsNotDirectory reports whether err is an ErrNotDirectory StoreError.
func IsNotDirectory(err error) bool { return hasCode(err, ErrNotDirectory) }

// IsInvalidArgument reports whether err is an ErrInvalidArgument StoreError.
func IsInvalidArgument(err error) bool { return hasCode(err, ErrInvalidArgument) }
