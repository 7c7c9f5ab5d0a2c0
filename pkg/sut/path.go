package sut

import (
	"os"
	"path"
	"strings"
)

const (
	// MaxPathLen is the longest path a backend must accept.
	MaxPathLen = 4096

	// MaxNameLen is the longest single path component.
	MaxNameLen = 255

	// Root is the root directory. It always exists and cannot be removed.
	Root = "/"
)

// Clean validates p and returns its normalized form.
//
// A valid path is absolute, at most MaxPathLen bytes, has no component
// longer than MaxNameLen and contains no NUL byte (the KV backends use NUL
// as a key separator).
func Clean(p string) (string, error) {
	if p == "" || p[0] != '/' {
		return "", &StoreError{Code: ErrInvalidArgument, Message: "path must be absolute", Path: p}
	}
	if len(p) > MaxPathLen {
		return "", &StoreError{Code: ErrInvalidArgument, Message: "path too long", Path: p}
	}
	if strings.IndexByte(p, 0) >= 0 {
		return "", &StoreError{Code: ErrInvalidArgument, Message: "path contains NUL", Path: p}
	}

	cleaned := path.Clean(p)
	for _, name := range strings.Split(cleaned, "/") {
		if len(name) > MaxNameLen {
			return "", &StoreError{Code: ErrInvalidArgument, Message: "path component too long", Path: p}
		}
	}
	return cleaned, nil
}

// Parent returns the parent directory of a cleaned path. The parent of the
// root is the root.
func Parent(p string) string {
	return path.Dir(p)
}

// OpenAction is what a backend must do to honor an Open call.
type OpenAction struct {
	Create   bool
	Truncate bool
}

// Writable reports whether flags request write access.
func Writable(flags int) bool {
	return flags&(os.O_WRONLY|os.O_RDWR) != 0
}

// ResolveOpen turns Open flags plus the current state of the path into the
// action a backend has to take, or the contract error to return.
//
// O_TRUNC without write access is ignored, matching POSIX where the result
// is unspecified and most systems leave the file alone.
func ResolveOpen(p string, flags int, exists, isDir bool) (OpenAction, error) {
	var action OpenAction

	if isDir {
		if Writable(flags) {
			return action, NewError(ErrIsDirectory, p)
		}
		return action, nil
	}

	if !exists {
		if flags&os.O_CREATE == 0 {
			return action, NewError(ErrNotFound, p)
		}
		action.Create = true
		return action, nil
	}

	if flags&os.O_CREATE != 0 && flags&os.O_EXCL != 0 {
		return action, NewError(ErrAlreadyExists, p)
	}
	if flags&os.O_TRUNC != 0 && Writable(flags) {
		action.Truncate = true
	}
	return action, nil
}
