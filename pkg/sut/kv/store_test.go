package kv

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/fscheck/pkg/sut"
	suttesting "github.com/marmos91/fscheck/pkg/sut/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapBackend is a Backend over a plain map, used to test the Store logic
// without a database. Update runs on a copy that is swapped in on success,
// so a failed transaction leaves no trace.
type mapBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: make(map[string][]byte)}
}

type mapTxn struct {
	data     map[string][]byte
	readOnly bool
}

func (t *mapTxn) Get(key []byte) ([]byte, bool, error) {
	v, ok := t.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (t *mapTxn) Set(key, value []byte) error {
	if t.readOnly {
		return errors.New("read-only transaction")
	}
	t.data[string(key)] = bytes.Clone(value)
	return nil
}

func (t *mapTxn) Delete(key []byte) error {
	if t.readOnly {
		return errors.New("read-only transaction")
	}
	delete(t.data, string(key))
	return nil
}

func (t *mapTxn) Keys(prefix []byte, limit int) ([][]byte, error) {
	var keys []string
	for k := range t.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out, nil
}

func (b *mapBackend) View(fn func(Txn) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(&mapTxn{data: b.data, readOnly: true})
}

func (b *mapBackend) Update(fn func(Txn) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	working := make(map[string][]byte, len(b.data))
	for k, v := range b.data {
		working[k] = v
	}
	if err := fn(&mapTxn{data: working}); err != nil {
		return err
	}
	b.data = working
	return nil
}

func (b *mapBackend) Close() error { return nil }

func (b *mapBackend) keysWithPrefix(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func TestStoreContract(t *testing.T) {
	suite := &suttesting.ClientTestSuite{
		NewClient: func(t *testing.T) sut.Client {
			return New(newMapBackend(), Config{})
		},
	}
	suite.Run(t)
}

func TestStoreContract_TinyChunks(t *testing.T) {
	suite := &suttesting.ClientTestSuite{
		NewClient: func(t *testing.T) sut.Client {
			return New(newMapBackend(), Config{ChunkSize: 7})
		},
	}
	suite.Run(t)
}

func TestStore_DefaultChunkSize(t *testing.T) {
	s := New(newMapBackend(), Config{})
	assert.Equal(t, int64(DefaultChunkSize), s.ChunkSize())
}

func TestStore_SparseWriteStoresOnlyTouchedChunks(t *testing.T) {
	ctx := context.Background()
	backend := newMapBackend()
	s := New(backend, Config{ChunkSize: 16})

	_, err := s.WriteAt(ctx, "/sparse", []byte("tail"), 100)
	require.NoError(t, err)

	chunks := backend.keysWithPrefix(prefixChunk)
	require.Len(t, chunks, 1, "only the chunk holding the write should exist")
	assert.Equal(t, int64(100/16), chunkIndex([]byte(chunks[0])))

	buf := make([]byte, 104)
	n, err := s.ReadAt(ctx, "/sparse", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 104, n)
	assert.Equal(t, make([]byte, 100), buf[:100])
	assert.Equal(t, []byte("tail"), buf[100:])
}

func TestStore_TruncateDropsChunks(t *testing.T) {
	ctx := context.Background()
	backend := newMapBackend()
	s := New(backend, Config{ChunkSize: 10})

	_, err := s.WriteAt(ctx, "/t", bytes.Repeat([]byte("x"), 45), 0)
	require.NoError(t, err)
	require.Len(t, backend.keysWithPrefix(prefixChunk), 5)

	require.NoError(t, s.Truncate(ctx, "/t", 20))
	assert.Len(t, backend.keysWithPrefix(prefixChunk), 2)

	require.NoError(t, s.Truncate(ctx, "/t", 0))
	assert.Empty(t, backend.keysWithPrefix(prefixChunk))
}

func TestStore_FailedUpdateLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	backend := newMapBackend()
	s := New(backend, Config{})

	_, err := s.WriteAt(ctx, "/missing/child", []byte("x"), 0)
	require.Error(t, err)
	assert.Empty(t, backend.keysWithPrefix(""))
}

func TestStore_ChunkKeysDoNotCollide(t *testing.T) {
	// "/a" and "/a/b" must not share chunk keys.
	assert.False(t, bytes.HasPrefix(keyChunk("/a/b", 0), keyChunkPrefix("/a")))
	assert.Equal(t, int64(42), chunkIndex(keyChunk("/x", 42)))
}

func TestStore_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(newMapBackend(), Config{})
	err := s.CreateDirectory(ctx, "/d", 0o755)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_BackendErrorsBecomeIOErrors(t *testing.T) {
	err := wrapBackendErr(errors.New("disk on fire"), "/p")
	code, ok := sut.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, sut.ErrIOError, code)

	passthrough := sut.NewError(sut.ErrNotFound, "/p")
	assert.Same(t, passthrough, wrapBackendErr(passthrough, "/p"))
}
