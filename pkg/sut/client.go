// Package sut defines the operation contract of the storage backend under test.
//
// The harness only ever talks to a backend through Client. Reference
// implementations live in the sub-packages (memory, badger, bolt, fs, s3) and
// all of them are checked against the same contract suite in sut/testing.
package sut

import (
	"context"
	"os"
	"time"
)

// Client is the filesystem-like operation set exposed by a backend.
//
// Paths are absolute and slash-separated (see Clean). Every method must be
// safe to call after a previous call on the same path has returned; the
// harness never issues concurrent calls.
type Client interface {
	// CreateDirectory creates exactly one path component.
	//
	// Missing ancestors are never created: if the parent does not exist the
	// call fails with ErrNotFound and the target must not be reported as a
	// directory afterwards.
	CreateDirectory(ctx context.Context, path string, mode os.FileMode) error

	// RemoveDirectory removes an empty directory.
	RemoveDirectory(ctx context.Context, path string) error

	// IsDirectory reports whether path is a directory in the latest
	// committed state. A missing path is (false, nil).
	IsDirectory(ctx context.Context, path string) (bool, error)

	// WriteAt writes data at offset, creating the file if absent.
	//
	// Writing past the end extends the file to offset+len(data); the gap
	// reads back as zeros and previously written ranges are left untouched.
	WriteAt(ctx context.Context, path string, data []byte, offset int64) (int, error)

	// ReadAt reads up to len(p) bytes starting at offset.
	//
	// The returned count is min(len(p), size-offset), or 0 at or beyond the
	// end of the file. Short reads are not errors.
	ReadAt(ctx context.Context, path string, p []byte, offset int64) (int, error)

	// GetAttributes returns a snapshot of the attributes of path.
	GetAttributes(ctx context.Context, path string) (*Attributes, error)

	// Truncate sets the size of a file. Growing zero-fills.
	Truncate(ctx context.Context, path string, size int64) error

	// Open opens path with os.O_* flags. O_CREATE creates a missing file and
	// O_TRUNC on a writable open resets the size to zero.
	Open(ctx context.Context, path string, flags int) (*Handle, error)

	// Close releases backend resources.
	Close() error
}

// Attributes is a read-only snapshot returned by GetAttributes.
type Attributes struct {
	Path        string
	Size        int64
	IsDirectory bool
	Mode        os.FileMode
	ModTime     time.Time
}

// Handle is returned by Open. It carries no payload; the harness only cares
// about the side effects of opening.
type Handle struct {
	Path  string
	Flags int
}

// DirectorySize is the size reported for directories by the reference backends.
const DirectorySize = 4096
