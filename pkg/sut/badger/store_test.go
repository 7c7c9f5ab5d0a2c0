package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/fscheck/pkg/sut"
	suttesting "github.com/marmos91/fscheck/pkg/sut/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore_Contract(t *testing.T) {
	suite := &suttesting.ClientTestSuite{
		NewClient: func(t *testing.T) sut.Client {
			store, err := NewBadgerStore(context.Background(), BadgerStoreConfig{InMemory: true})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := BadgerStoreConfig{DBPath: filepath.Join(t.TempDir(), "db"), ChunkSize: 1024}

	store, err := NewBadgerStore(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, store.CreateDirectory(ctx, "/keep", 0o755))
	_, err = store.WriteAt(ctx, "/keep/file", []byte("persisted"), 2000)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewBadgerStore(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	isDir, err := store.IsDirectory(ctx, "/keep")
	require.NoError(t, err)
	assert.True(t, isDir)

	attr, err := store.GetAttributes(ctx, "/keep/file")
	require.NoError(t, err)
	assert.Equal(t, int64(2009), attr.Size)

	buf := make([]byte, 9)
	n, err := store.ReadAt(ctx, "/keep/file", buf, 2000)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(buf[:n]))
}

func TestBadgerStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerStore(context.Background(), BadgerStoreConfig{})
	assert.Error(t, err)
}
