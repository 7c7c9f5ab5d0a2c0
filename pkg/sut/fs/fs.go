// Package fs implements sut.Client on top of a local directory.
//
// Store paths map one to one onto host paths below the configured root, so
// the tree can be inspected with ordinary tools after a run. Open file
// descriptors are kept in a small LRU cache because the harness issues
// thousands of single-byte reads against the same file.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut"
)

// FSStoreConfig configures the filesystem backend.
type FSStoreConfig struct {
	// Root is the host directory backing the store root. Created if missing.
	Root string `mapstructure:"root" validate:"required"`

	// FDCacheSize bounds the number of cached open files (0 = DefaultFDCacheSize).
	FDCacheSize int `mapstructure:"fd_cache_size" validate:"gte=0"`
}

// FSStore implements sut.Client on the local filesystem.
//
// Thread Safety:
// Calls are serialized by a mutex so that the stat-then-act sequences used
// to classify errors are not interleaved.
type FSStore struct {
	root string
	fds  *FDCache
	mu   sync.Mutex
}

var _ sut.Client = (*FSStore)(nil)

// NewFSStore creates the root directory if needed and returns the store.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cfg: Root directory and descriptor cache size
//
// Returns:
//   - *FSStore: Initialized store
//   - error: Returns error if the root cannot be created or ctx is cancelled
func NewFSStore(ctx context.Context, cfg FSStoreConfig) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("filesystem root is required")
	}

	if err := os.MkdirAll(cfg.Root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}

	return &FSStore{
		root: cfg.Root,
		fds:  NewFDCache(cfg.FDCacheSize),
	}, nil
}

// Close closes all cached file descriptors.
func (s *FSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, capacity := s.fds.Stats()
	logger.Debug("Filesystem store closing %d of %d cached descriptors", open, capacity)
	return s.fds.Close()
}

// ============================================================================
// Helpers
// ============================================================================

func (s *FSStore) hostPath(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

func (s *FSStore) begin(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := sut.Clean(path)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	return p, nil
}

// mapError translates host errors into contract errors.
func mapError(err error, p string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return sut.NewError(sut.ErrNotFound, p)
	case errors.Is(err, syscall.ENOTEMPTY):
		return sut.NewError(sut.ErrNotEmpty, p)
	case errors.Is(err, iofs.ErrExist):
		return sut.NewError(sut.ErrAlreadyExists, p)
	case errors.Is(err, syscall.ENOTDIR):
		return sut.NewError(sut.ErrNotDirectory, p)
	case errors.Is(err, syscall.EISDIR):
		return sut.NewError(sut.ErrIsDirectory, p)
	}
	return &sut.StoreError{Code: sut.ErrIOError, Message: err.Error(), Path: p}
}

// stat returns the host FileInfo, or nil when nothing exists at p.
func (s *FSStore) stat(p string) (os.FileInfo, error) {
	info, err := os.Stat(s.hostPath(p))
	if err == nil {
		return info, nil
	}
	if errors.Is(err, iofs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return nil, nil
	}
	return nil, mapError(err, p)
}

// file returns a cached read-write descriptor for p.
func (s *FSStore) file(p string, create bool) (*os.File, error) {
	if f, ok := s.fds.Get(p); ok {
		return f, nil
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(s.hostPath(p), flags, 0644)
	if err != nil {
		return nil, mapError(err, p)
	}
	if err := s.fds.Put(p, f); err != nil {
		_ = f.Close()
		return nil, mapError(err, p)
	}
	return f, nil
}

// ============================================================================
// Directory operations
// ============================================================================

func (s *FSStore) CreateDirectory(ctx context.Context, path string, mode os.FileMode) error {
	p, err := s.begin(ctx, path)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if p == sut.Root {
		return sut.NewError(sut.ErrAlreadyExists, p)
	}
	return mapError(os.Mkdir(s.hostPath(p), mode.Perm()), p)
}

func (s *FSStore) RemoveDirectory(ctx context.Context, path string) error {
	p, err := s.begin(ctx, path)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if p == sut.Root {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "cannot remove root", Path: p}
	}

	info, err := s.stat(p)
	if err != nil {
		return err
	}
	if info == nil {
		return sut.NewError(sut.ErrNotFound, p)
	}
	if !info.IsDir() {
		return sut.NewError(sut.ErrNotDirectory, p)
	}
	return mapError(os.Remove(s.hostPath(p)), p)
}

func (s *FSStore) IsDirectory(ctx context.Context, path string) (bool, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	info, err := s.stat(p)
	if err != nil {
		return false, err
	}
	return info != nil && info.IsDir(), nil
}

func (s *FSStore) GetAttributes(ctx context.Context, path string) (*sut.Attributes, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	info, err := s.stat(p)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, sut.NewError(sut.ErrNotFound, p)
	}

	attr := &sut.Attributes{Path: p, Size: info.Size(), Mode: info.Mode(), ModTime: info.ModTime()}
	if info.IsDir() {
		attr.IsDirectory = true
		attr.Size = sut.DirectorySize
	}
	return attr, nil
}

// ============================================================================
// File operations
// ============================================================================

func (s *FSStore) WriteAt(ctx context.Context, path string, data []byte, offset int64) (int, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: p}
	}
	if err := s.requireNotDir(p); err != nil {
		return 0, err
	}

	f, err := s.file(p, true)
	if err != nil {
		return 0, err
	}
	n, err := f.WriteAt(data, offset)
	if err != nil {
		return n, mapError(err, p)
	}
	return n, nil
}

func (s *FSStore) ReadAt(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: p}
	}
	if err := s.requireNotDir(p); err != nil {
		return 0, err
	}

	f, err := s.file(p, false)
	if err != nil {
		return 0, err
	}
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, mapError(err, p)
	}
	return n, nil
}

func (s *FSStore) Truncate(ctx context.Context, path string, size int64) error {
	p, err := s.begin(ctx, path)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if size < 0 {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative size", Path: p}
	}

	info, err := s.stat(p)
	if err != nil {
		return err
	}
	if info == nil {
		return sut.NewError(sut.ErrNotFound, p)
	}
	if info.IsDir() {
		return sut.NewError(sut.ErrIsDirectory, p)
	}
	return mapError(os.Truncate(s.hostPath(p), size), p)
}

func (s *FSStore) Open(ctx context.Context, path string, flags int) (*sut.Handle, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	info, err := s.stat(p)
	if err != nil {
		return nil, err
	}

	action, err := sut.ResolveOpen(p, flags, info != nil, info != nil && info.IsDir())
	if err != nil {
		return nil, err
	}

	switch {
	case action.Create:
		if _, err := s.file(p, true); err != nil {
			return nil, err
		}
	case action.Truncate:
		if err := os.Truncate(s.hostPath(p), 0); err != nil {
			return nil, mapError(err, p)
		}
	}
	return &sut.Handle{Path: p, Flags: flags}, nil
}

func (s *FSStore) requireNotDir(p string) error {
	info, err := s.stat(p)
	if err != nil {
		return err
	}
	if info != nil && info.IsDir() {
		return sut.NewError(sut.ErrIsDirectory, p)
	}
	return nil
}
