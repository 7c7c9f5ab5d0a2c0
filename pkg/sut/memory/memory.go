// Package memory implements an in-memory sut.Client.
//
// The store keeps the whole tree in a map keyed by cleaned path. It has two
// modes:
//   - Synchronous (CommitDelay == 0): every call takes effect before it
//     returns, and contract errors are returned to the caller.
//   - Delayed commit (CommitDelay > 0): mutations are acknowledged right
//     away and only become visible once CommitDelay has elapsed, the way an
//     eventually consistent remote store behaves. Contract errors found when
//     a mutation is finally applied are logged and dropped.
//
// The delayed mode exists to exercise callers that must wait for writes to
// propagate before reading them back.
package memory

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut"
)

// MemoryStoreConfig configures the in-memory backend.
type MemoryStoreConfig struct {
	// CommitDelay is how long a mutation stays invisible after being
	// acknowledged. Zero means synchronous.
	CommitDelay time.Duration `mapstructure:"commit_delay" validate:"gte=0"`
}

// MemoryStore implements sut.Client in memory.
//
// Thread Safety:
// All operations are serialized by a single mutex. Pending mutations are
// applied in acknowledgement order at the start of every call, so a reader
// never observes a later mutation without the earlier ones.
type MemoryStore struct {
	mu      sync.Mutex
	tree    *tree
	pending []pendingMutation

	commitDelay time.Duration

	// now is replaceable in tests
	now func() time.Time
}

// pendingMutation is an acknowledged but not yet visible change.
type pendingMutation struct {
	due   time.Time
	op    string
	path  string
	apply func(t *tree) error
}

var _ sut.Client = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store whose tree contains only the root.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - cfg: Commit behaviour
//
// Returns:
//   - *MemoryStore: Initialized store
//   - error: Only returns error if context is cancelled
func NewMemoryStore(ctx context.Context, cfg MemoryStoreConfig) (*MemoryStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryStore{
		tree:        newTree(),
		commitDelay: cfg.CommitDelay,
		now:         time.Now,
	}, nil
}

// Close discards pending mutations. The store remains usable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) > 0 {
		logger.Debug("memory store: dropping %d pending mutation(s) on close", len(s.pending))
	}
	s.pending = nil
	return nil
}

// ============================================================================
// Commit pipeline
// ============================================================================

// settle applies every pending mutation whose deadline has passed.
// Caller must hold s.mu.
func (s *MemoryStore) settle() {
	now := s.now()
	applied := 0
	for _, m := range s.pending {
		if now.Before(m.due) {
			break
		}
		if err := m.apply(s.tree); err != nil {
			logger.Debug("memory store: deferred %s %s dropped: %v", m.op, m.path, err)
		}
		applied++
	}
	if applied > 0 {
		s.pending = s.pending[applied:]
	}
}

// mutate runs apply now, or queues it when a commit delay is configured.
// Caller must hold s.mu.
func (s *MemoryStore) mutate(op, p string, apply func(t *tree) error) error {
	if s.commitDelay <= 0 {
		return apply(s.tree)
	}

	s.pending = append(s.pending, pendingMutation{
		due:   s.now().Add(s.commitDelay),
		op:    op,
		path:  p,
		apply: apply,
	})
	return nil
}

// begin validates the call and brings the tree up to date.
func (s *MemoryStore) begin(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := sut.Clean(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.settle()
	return p, nil
}

// ============================================================================
// sut.Client
// ============================================================================

func (s *MemoryStore) CreateDirectory(ctx context.Context, path string, mode os.FileMode) error {
	p, err := s.begin(ctx, path)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	return s.mutate("mkdir", p, func(t *tree) error {
		return t.mkdir(p, mode, s.now())
	})
}

func (s *MemoryStore) RemoveDirectory(ctx context.Context, path string) error {
	p, err := s.begin(ctx, path)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	return s.mutate("rmdir", p, func(t *tree) error {
		return t.rmdir(p)
	})
}

func (s *MemoryStore) IsDirectory(ctx context.Context, path string) (bool, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	e, ok := s.tree.entries[p]
	return ok && e.dir, nil
}

// WriteAt copies data before returning, so the caller may reuse its buffer
// even when the write is still pending.
func (s *MemoryStore) WriteAt(ctx context.Context, path string, data []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: path}
	}
	p, err := s.begin(ctx, path)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	owned := make([]byte, len(data))
	copy(owned, data)

	if err := s.mutate("write", p, func(t *tree) error {
		return t.writeAt(p, owned, offset, s.now())
	}); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (s *MemoryStore) ReadAt(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: path}
	}
	p, err := s.begin(ctx, path)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	return s.tree.readAt(p, buf, offset)
}

func (s *MemoryStore) GetAttributes(ctx context.Context, path string) (*sut.Attributes, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	e, ok := s.tree.entries[p]
	if !ok {
		return nil, sut.NewError(sut.ErrNotFound, p)
	}
	return e.attributes(p), nil
}

func (s *MemoryStore) Truncate(ctx context.Context, path string, size int64) error {
	if size < 0 {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative size", Path: path}
	}
	p, err := s.begin(ctx, path)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	return s.mutate("truncate", p, func(t *tree) error {
		return t.truncate(p, size, s.now())
	})
}

// Open resolves flags against the visible tree. Opens that create or
// truncate are mutations and follow the commit delay.
func (s *MemoryStore) Open(ctx context.Context, path string, flags int) (*sut.Handle, error) {
	p, err := s.begin(ctx, path)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	handle := &sut.Handle{Path: p, Flags: flags}
	if flags&(os.O_CREATE|os.O_TRUNC) == 0 {
		e, ok := s.tree.entries[p]
		if _, err := sut.ResolveOpen(p, flags, ok, ok && e.dir); err != nil {
			return nil, err
		}
		return handle, nil
	}

	if err := s.mutate("open", p, func(t *tree) error {
		return t.open(p, flags, s.now())
	}); err != nil {
		return nil, err
	}
	return handle, nil
}
