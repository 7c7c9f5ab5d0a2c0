// Package kv implements the sut.Client contract on top of any ordered,
// transactional key-value store.
//
// File content is split into fixed-size chunks stored under their own keys,
// so a write or a read only touches the chunks overlapping its range. Chunks
// that were never written read back as zeros, which gives sparse-file
// semantics for free.
//
// The badger and bolt packages provide Backend implementations.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/fscheck/pkg/sut"
)

// DefaultChunkSize is used when Config.ChunkSize is zero.
const DefaultChunkSize = 64 * 1024

// Txn is a single transaction on the underlying key-value store.
//
// Values returned by Get and keys returned by Keys must remain valid after
// the transaction ends (implementations copy them).
type Txn interface {
	// Get returns the value for key; found is false when the key is absent.
	Get(key []byte) (value []byte, found bool, err error)

	// Set stores value under key.
	Set(key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// Keys returns all keys starting with prefix, in key order. A positive
	// limit stops the scan after that many keys.
	Keys(prefix []byte, limit int) ([][]byte, error)
}

// Backend is a transactional key-value store.
type Backend interface {
	View(fn func(txn Txn) error) error
	Update(fn func(txn Txn) error) error
	Close() error
}

// Config controls the chunking of file content.
type Config struct {
	// ChunkSize is the maximum number of content bytes stored per key
	ChunkSize int64 `mapstructure:"chunk_size"`
}

// Store is a sut.Client backed by a Backend.
type Store struct {
	backend   Backend
	chunkSize int64
}

// node is the persisted form of a file or directory.
type node struct {
	Size    int64       `json:"size"`
	Mode    os.FileMode `json:"mode"`
	ModTime time.Time   `json:"mtime"`
}

type nodeKind int

const (
	kindNone nodeKind = iota
	kindDir
	kindFile
)

var _ sut.Client = (*Store)(nil)

// New creates a Store over backend.
func New(backend Backend, cfg Config) *Store {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Store{backend: backend, chunkSize: chunkSize}
}

// ChunkSize returns the effective chunk size.
func (s *Store) ChunkSize() int64 {
	return s.chunkSize
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// ============================================================================
// Node helpers
// ============================================================================

func getNode(txn Txn, key []byte) (*node, bool, error) {
	raw, found, err := txn.Get(key)
	if err != nil || !found {
		return nil, found, err
	}
	var n node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, false, fmt.Errorf("decode node %q: %w", key, err)
	}
	return &n, true, nil
}

func putNode(txn Txn, key []byte, n *node) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode node %q: %w", key, err)
	}
	return txn.Set(key, raw)
}

// lookup resolves p to its kind and node. The root is a synthesized directory.
func lookup(txn Txn, p string) (nodeKind, *node, error) {
	if p == sut.Root {
		return kindDir, &node{Mode: os.ModeDir | 0o755}, nil
	}

	n, found, err := getNode(txn, keyDir(p))
	if err != nil {
		return kindNone, nil, err
	}
	if found {
		return kindDir, n, nil
	}

	n, found, err = getNode(txn, keyFile(p))
	if err != nil {
		return kindNone, nil, err
	}
	if found {
		return kindFile, n, nil
	}
	return kindNone, nil, nil
}

// requireParentDir checks that the parent of p exists and is a directory.
func requireParentDir(txn Txn, p string) error {
	parent := sut.Parent(p)
	kind, _, err := lookup(txn, parent)
	if err != nil {
		return err
	}
	switch kind {
	case kindNone:
		return sut.NewError(sut.ErrNotFound, parent)
	case kindFile:
		return sut.NewError(sut.ErrNotDirectory, parent)
	}
	return nil
}

// wrapBackendErr turns non-contract errors into ErrIOError.
func wrapBackendErr(err error, p string) error {
	if err == nil {
		return nil
	}
	var storeErr *sut.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &sut.StoreError{Code: sut.ErrIOError, Message: err.Error(), Path: p}
}

func prepare(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sut.Clean(p)
}

// ============================================================================
// Directory operations
// ============================================================================

// CreateDirectory creates a single directory. Missing ancestors are an error.
func (s *Store) CreateDirectory(ctx context.Context, path string, mode os.FileMode) error {
	p, err := prepare(ctx, path)
	if err != nil {
		return err
	}
	if p == sut.Root {
		return sut.NewError(sut.ErrAlreadyExists, p)
	}

	err = s.backend.Update(func(txn Txn) error {
		if err := requireParentDir(txn, p); err != nil {
			return err
		}
		kind, _, err := lookup(txn, p)
		if err != nil {
			return err
		}
		if kind != kindNone {
			return sut.NewError(sut.ErrAlreadyExists, p)
		}
		return putNode(txn, keyDir(p), &node{
			Size:    sut.DirectorySize,
			Mode:    os.ModeDir | mode.Perm(),
			ModTime: time.Now(),
		})
	})
	return wrapBackendErr(err, p)
}

// RemoveDirectory removes an empty directory.
func (s *Store) RemoveDirectory(ctx context.Context, path string) error {
	p, err := prepare(ctx, path)
	if err != nil {
		return err
	}
	if p == sut.Root {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "cannot remove root", Path: p}
	}

	err = s.backend.Update(func(txn Txn) error {
		kind, _, err := lookup(txn, p)
		if err != nil {
			return err
		}
		switch kind {
		case kindNone:
			return sut.NewError(sut.ErrNotFound, p)
		case kindFile:
			return sut.NewError(sut.ErrNotDirectory, p)
		}

		for _, prefix := range [][]byte{keyChildDirs(p), keyChildFiles(p)} {
			keys, err := txn.Keys(prefix, 1)
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				return sut.NewError(sut.ErrNotEmpty, p)
			}
		}
		return txn.Delete(keyDir(p))
	})
	return wrapBackendErr(err, p)
}

// IsDirectory reports whether path is a directory.
func (s *Store) IsDirectory(ctx context.Context, path string) (bool, error) {
	p, err := prepare(ctx, path)
	if err != nil {
		return false, err
	}

	var isDir bool
	err = s.backend.View(func(txn Txn) error {
		kind, _, err := lookup(txn, p)
		isDir = kind == kindDir
		return err
	})
	return isDir, wrapBackendErr(err, p)
}

// GetAttributes returns the attributes of path.
func (s *Store) GetAttributes(ctx context.Context, path string) (*sut.Attributes, error) {
	p, err := prepare(ctx, path)
	if err != nil {
		return nil, err
	}

	var attr *sut.Attributes
	err = s.backend.View(func(txn Txn) error {
		kind, n, err := lookup(txn, p)
		if err != nil {
			return err
		}
		switch kind {
		case kindNone:
			return sut.NewError(sut.ErrNotFound, p)
		case kindDir:
			attr = &sut.Attributes{Path: p, Size: sut.DirectorySize, IsDirectory: true, Mode: n.Mode, ModTime: n.ModTime}
		default:
			attr = &sut.Attributes{Path: p, Size: n.Size, Mode: n.Mode, ModTime: n.ModTime}
		}
		return nil
	})
	if err != nil {
		return nil, wrapBackendErr(err, p)
	}
	return attr, nil
}
