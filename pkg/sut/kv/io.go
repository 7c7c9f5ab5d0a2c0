package kv

import (
	"context"
	"time"

	"github.com/marmos91/fscheck/pkg/sut"
)

// WriteAt writes data at offset, creating the file when it does not exist.
//
// Only the chunks overlapping [offset, offset+len(data)) are read and
// rewritten. Chunks in a gap before offset are left absent and read as zeros.
func (s *Store) WriteAt(ctx context.Context, path string, data []byte, offset int64) (int, error) {
	p, err := prepare(ctx, path)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: p}
	}

	err = s.backend.Update(func(txn Txn) error {
		n, err := s.fileForWrite(txn, p)
		if err != nil {
			return err
		}

		if err := s.writeChunks(txn, p, data, offset); err != nil {
			return err
		}

		if end := offset + int64(len(data)); end > n.Size {
			n.Size = end
		}
		n.ModTime = time.Now()
		return putNode(txn, keyFile(p), n)
	})
	if err != nil {
		return 0, wrapBackendErr(err, p)
	}
	return len(data), nil
}

// fileForWrite returns the node of an existing file or a fresh node for a new
// one, enforcing that the parent is a directory.
func (s *Store) fileForWrite(txn Txn, p string) (*node, error) {
	kind, n, err := lookup(txn, p)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindDir:
		return nil, sut.NewError(sut.ErrIsDirectory, p)
	case kindFile:
		return n, nil
	}

	if err := requireParentDir(txn, p); err != nil {
		return nil, err
	}
	return &node{Mode: 0o644, ModTime: time.Now()}, nil
}

func (s *Store) writeChunks(txn Txn, p string, data []byte, offset int64) error {
	for pos := int64(0); pos < int64(len(data)); {
		abs := offset + pos
		index := abs / s.chunkSize
		within := abs % s.chunkSize
		n := min(s.chunkSize-within, int64(len(data))-pos)

		key := keyChunk(p, index)
		chunk, _, err := txn.Get(key)
		if err != nil {
			return err
		}
		if need := within + n; int64(len(chunk)) < need {
			grown := make([]byte, need)
			copy(grown, chunk)
			chunk = grown
		}
		copy(chunk[within:], data[pos:pos+n])

		if err := txn.Set(key, chunk); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

// ReadAt fills p from offset. Missing or short chunks read as zeros.
func (s *Store) ReadAt(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	p, err := prepare(ctx, path)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: p}
	}

	var count int
	err = s.backend.View(func(txn Txn) error {
		kind, n, err := lookup(txn, p)
		if err != nil {
			return err
		}
		switch kind {
		case kindNone:
			return sut.NewError(sut.ErrNotFound, p)
		case kindDir:
			return sut.NewError(sut.ErrIsDirectory, p)
		}

		if offset >= n.Size {
			return nil
		}
		want := min(int64(len(buf)), n.Size-offset)

		for pos := int64(0); pos < want; {
			abs := offset + pos
			index := abs / s.chunkSize
			within := abs % s.chunkSize
			span := min(s.chunkSize-within, want-pos)
			dst := buf[pos : pos+span]

			chunk, _, err := txn.Get(keyChunk(p, index))
			if err != nil {
				return err
			}
			copied := 0
			if within < int64(len(chunk)) {
				copied = copy(dst, chunk[within:])
			}
			clear(dst[copied:])
			pos += span
		}
		count = int(want)
		return nil
	})
	if err != nil {
		return 0, wrapBackendErr(err, p)
	}
	return count, nil
}

// Truncate resizes a file.
func (s *Store) Truncate(ctx context.Context, path string, size int64) error {
	p, err := prepare(ctx, path)
	if err != nil {
		return err
	}
	if size < 0 {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative size", Path: p}
	}

	err = s.backend.Update(func(txn Txn) error {
		kind, n, err := lookup(txn, p)
		if err != nil {
			return err
		}
		switch kind {
		case kindNone:
			return sut.NewError(sut.ErrNotFound, p)
		case kindDir:
			return sut.NewError(sut.ErrIsDirectory, p)
		}
		return s.resize(txn, p, n, size)
	})
	return wrapBackendErr(err, p)
}

// resize drops chunk data beyond size and stores the new node.
//
// Chunks never hold bytes past the end of the file, so growing only has to
// update the node: the new range reads back as zeros.
func (s *Store) resize(txn Txn, p string, n *node, size int64) error {
	if size < n.Size {
		keys, err := txn.Keys(keyChunkPrefix(p), 0)
		if err != nil {
			return err
		}

		lastIndex := size / s.chunkSize
		lastLen := size % s.chunkSize
		for _, key := range keys {
			index := chunkIndex(key)
			switch {
			case index > lastIndex, index == lastIndex && lastLen == 0:
				if err := txn.Delete(key); err != nil {
					return err
				}
			case index == lastIndex:
				chunk, found, err := txn.Get(key)
				if err != nil {
					return err
				}
				if found && int64(len(chunk)) > lastLen {
					if err := txn.Set(key, chunk[:lastLen]); err != nil {
						return err
					}
				}
			}
		}
	}

	n.Size = size
	n.ModTime = time.Now()
	return putNode(txn, keyFile(p), n)
}

// Open applies the create and truncate side effects of flags.
func (s *Store) Open(ctx context.Context, path string, flags int) (*sut.Handle, error) {
	p, err := prepare(ctx, path)
	if err != nil {
		return nil, err
	}

	err = s.backend.Update(func(txn Txn) error {
		kind, n, err := lookup(txn, p)
		if err != nil {
			return err
		}

		action, err := sut.ResolveOpen(p, flags, kind != kindNone, kind == kindDir)
		if err != nil {
			return err
		}

		switch {
		case action.Create:
			if err := requireParentDir(txn, p); err != nil {
				return err
			}
			return putNode(txn, keyFile(p), &node{Mode: 0o644, ModTime: time.Now()})
		case action.Truncate:
			return s.resize(txn, p, n, 0)
		}
		return nil
	})
	if err != nil {
		return nil, wrapBackendErr(err, p)
	}
	return &sut.Handle{Path: p, Flags: flags}, nil
}
