package memory

import (
	"os"
	"strings"
	"time"

	"github.com/marmos91/fscheck/pkg/sut"
)

// entry is a file or a directory. Directories carry no data.
type entry struct {
	dir     bool
	data    []byte
	mode    os.FileMode
	modTime time.Time
}

func (e *entry) attributes(p string) *sut.Attributes {
	if e.dir {
		return &sut.Attributes{Path: p, Size: sut.DirectorySize, IsDirectory: true, Mode: e.mode, ModTime: e.modTime}
	}
	return &sut.Attributes{Path: p, Size: int64(len(e.data)), Mode: e.mode, ModTime: e.modTime}
}

// tree is the visible state of the store. It is not synchronized.
type tree struct {
	entries map[string]*entry
}

func newTree() *tree {
	return &tree{
		entries: map[string]*entry{
			sut.Root: {dir: true, mode: os.ModeDir | 0o755, modTime: time.Now()},
		},
	}
}

func (t *tree) requireParentDir(p string) error {
	parent := sut.Parent(p)
	e, ok := t.entries[parent]
	if !ok {
		return sut.NewError(sut.ErrNotFound, parent)
	}
	if !e.dir {
		return sut.NewError(sut.ErrNotDirectory, parent)
	}
	return nil
}

func (t *tree) hasChildren(p string) bool {
	prefix := p + "/"
	for k := range t.entries {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (t *tree) mkdir(p string, mode os.FileMode, now time.Time) error {
	if _, ok := t.entries[p]; ok {
		return sut.NewError(sut.ErrAlreadyExists, p)
	}
	if err := t.requireParentDir(p); err != nil {
		return err
	}
	t.entries[p] = &entry{dir: true, mode: os.ModeDir | mode.Perm(), modTime: now}
	return nil
}

func (t *tree) rmdir(p string) error {
	if p == sut.Root {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "cannot remove root", Path: p}
	}
	e, ok := t.entries[p]
	if !ok {
		return sut.NewError(sut.ErrNotFound, p)
	}
	if !e.dir {
		return sut.NewError(sut.ErrNotDirectory, p)
	}
	if t.hasChildren(p) {
		return sut.NewError(sut.ErrNotEmpty, p)
	}
	delete(t.entries, p)
	return nil
}

// file returns the file at p, creating it when create is set.
func (t *tree) file(p string, create bool, now time.Time) (*entry, error) {
	e, ok := t.entries[p]
	if ok {
		if e.dir {
			return nil, sut.NewError(sut.ErrIsDirectory, p)
		}
		return e, nil
	}
	if !create {
		return nil, sut.NewError(sut.ErrNotFound, p)
	}
	if err := t.requireParentDir(p); err != nil {
		return nil, err
	}
	e = &entry{mode: 0o644, modTime: now}
	t.entries[p] = e
	return e, nil
}

func (t *tree) writeAt(p string, data []byte, offset int64, now time.Time) error {
	e, err := t.file(p, true, now)
	if err != nil {
		return err
	}

	end := offset + int64(len(data))
	if end > int64(len(e.data)) {
		grown := make([]byte, end)
		copy(grown, e.data)
		e.data = grown
	}
	copy(e.data[offset:], data)
	e.modTime = now
	return nil
}

func (t *tree) readAt(p string, buf []byte, offset int64) (int, error) {
	e, ok := t.entries[p]
	if !ok {
		return 0, sut.NewError(sut.ErrNotFound, p)
	}
	if e.dir {
		return 0, sut.NewError(sut.ErrIsDirectory, p)
	}
	if offset >= int64(len(e.data)) {
		return 0, nil
	}
	return copy(buf, e.data[offset:]), nil
}

func (t *tree) truncate(p string, size int64, now time.Time) error {
	e, err := t.file(p, false, now)
	if err != nil {
		return err
	}
	resize(e, size)
	e.modTime = now
	return nil
}

func (t *tree) open(p string, flags int, now time.Time) error {
	e, ok := t.entries[p]
	action, err := sut.ResolveOpen(p, flags, ok, ok && e.dir)
	if err != nil {
		return err
	}

	switch {
	case action.Create:
		_, err := t.file(p, true, now)
		return err
	case action.Truncate:
		resize(e, 0)
		e.modTime = now
	}
	return nil
}

// resize shrinks or zero-extends e.data. Shrinking reallocates so the
// dropped bytes cannot reappear through a later grow.
func resize(e *entry, size int64) {
	cur := int64(len(e.data))
	switch {
	case size < cur:
		shrunk := make([]byte, size)
		copy(shrunk, e.data)
		e.data = shrunk
	case size > cur:
		grown := make([]byte, size)
		copy(grown, e.data)
		e.data = grown
	}
}
