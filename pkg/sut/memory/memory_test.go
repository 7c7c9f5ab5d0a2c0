package memory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/marmos91/fscheck/pkg/sut"
	suttesting "github.com/marmos91/fscheck/pkg/sut/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	suite := &suttesting.ClientTestSuite{
		NewClient: func(t *testing.T) sut.Client {
			store, err := NewMemoryStore(context.Background(), MemoryStoreConfig{})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

// fakeClock drives a delayed store without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newDelayedStore(t *testing.T, delay time.Duration) (*MemoryStore, *fakeClock) {
	t.Helper()
	store, err := NewMemoryStore(context.Background(), MemoryStoreConfig{CommitDelay: delay})
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store.now = clock.now
	return store, clock
}

func TestMemoryStore_CommitDelayHidesMutations(t *testing.T) {
	ctx := context.Background()
	store, clock := newDelayedStore(t, 500*time.Millisecond)

	require.NoError(t, store.CreateDirectory(ctx, "/late", 0o755))

	isDir, err := store.IsDirectory(ctx, "/late")
	require.NoError(t, err)
	assert.False(t, isDir, "directory must not be visible before the delay")

	clock.advance(499 * time.Millisecond)
	isDir, err = store.IsDirectory(ctx, "/late")
	require.NoError(t, err)
	assert.False(t, isDir)

	clock.advance(time.Millisecond)
	isDir, err = store.IsDirectory(ctx, "/late")
	require.NoError(t, err)
	assert.True(t, isDir, "directory must be visible once the delay elapsed")
}

func TestMemoryStore_CommitDelayPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store, clock := newDelayedStore(t, time.Second)

	require.NoError(t, store.CreateDirectory(ctx, "/dir", 0o755))
	n, err := store.WriteAt(ctx, "/dir/file", []byte("payload"), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = store.GetAttributes(ctx, "/dir/file")
	assert.True(t, sut.IsNotFound(err))

	clock.advance(time.Second)
	attr, err := store.GetAttributes(ctx, "/dir/file")
	require.NoError(t, err)
	assert.Equal(t, int64(7), attr.Size)
}

func TestMemoryStore_CommitDelayCopiesWriteBuffer(t *testing.T) {
	ctx := context.Background()
	store, clock := newDelayedStore(t, time.Second)

	buf := []byte("first")
	_, err := store.WriteAt(ctx, "/f", buf, 0)
	require.NoError(t, err)
	copy(buf, "XXXXX")

	clock.advance(time.Second)
	out := make([]byte, 5)
	n, err := store.ReadAt(ctx, "/f", out, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", string(out[:n]))
}

func TestMemoryStore_CommitDelayDropsFailedMutations(t *testing.T) {
	ctx := context.Background()
	store, clock := newDelayedStore(t, time.Second)

	// Acknowledged even though the parent does not exist.
	_, err := store.WriteAt(ctx, "/missing/file", []byte("x"), 0)
	require.NoError(t, err)

	clock.advance(time.Second)
	_, err = store.GetAttributes(ctx, "/missing/file")
	assert.True(t, sut.IsNotFound(err))
	assert.Empty(t, store.pending)
}

func TestMemoryStore_CommitDelayValidatesArguments(t *testing.T) {
	ctx := context.Background()
	store, _ := newDelayedStore(t, time.Second)

	_, err := store.WriteAt(ctx, "/f", []byte("x"), -1)
	suttesting.AssertCode(t, sut.ErrInvalidArgument, err)

	err = store.CreateDirectory(ctx, "relative", 0o755)
	suttesting.AssertCode(t, sut.ErrInvalidArgument, err)
	assert.Empty(t, store.pending)
}

func TestMemoryStore_DelayedOpenTruncate(t *testing.T) {
	ctx := context.Background()
	store, clock := newDelayedStore(t, time.Second)

	_, err := store.WriteAt(ctx, "/f", []byte("content"), 0)
	require.NoError(t, err)
	clock.advance(time.Second)

	_, err = store.Open(ctx, "/f", os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	require.NoError(t, err)

	attr, err := store.GetAttributes(ctx, "/f")
	require.NoError(t, err)
	assert.Equal(t, int64(7), attr.Size, "truncate is still pending")

	clock.advance(time.Second)
	attr, err = store.GetAttributes(ctx, "/f")
	require.NoError(t, err)
	assert.Equal(t, int64(0), attr.Size)
}

func TestMemoryStore_CloseDropsPending(t *testing.T) {
	ctx := context.Background()
	store, clock := newDelayedStore(t, time.Second)

	require.NoError(t, store.CreateDirectory(ctx, "/never", 0o755))
	require.NoError(t, store.Close())

	clock.advance(time.Hour)
	isDir, err := store.IsDirectory(ctx, "/never")
	require.NoError(t, err)
	assert.False(t, isDir)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore(ctx, MemoryStoreConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}
