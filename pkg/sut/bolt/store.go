// Package bolt provides a sut.Client backed by a Bolt database file.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut/kv"
)

var treeBucket = []byte("tree")

// BoltStoreConfig configures the Bolt backend.
type BoltStoreConfig struct {
	// Path is the database file.
	Path string `mapstructure:"path" validate:"required"`

	// ChunkSize is the content chunk size in bytes (0 = kv.DefaultChunkSize).
	ChunkSize int64 `mapstructure:"chunk_size" validate:"gte=0"`

	// Timeout bounds the wait for the file lock held by another process.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type backend struct {
	db *bolt.DB
}

// NewBoltStore opens the database, creating the tree bucket if needed.
func NewBoltStore(ctx context.Context, cfg BoltStoreConfig) (*kv.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("could not open Bolt database file %q: %w", cfg.Path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(treeBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not ensure database bucket exists: %w", err)
	}

	store := kv.New(&backend{db: db}, kv.Config{ChunkSize: cfg.ChunkSize})
	logger.Info("Bolt store initialized: path=%s, chunk_size=%d", cfg.Path, store.ChunkSize())
	return store, nil
}

func (b *backend) View(fn func(kv.Txn) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTxn{bucket: tx.Bucket(treeBucket)})
	})
}

func (b *backend) Update(fn func(kv.Txn) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTxn{bucket: tx.Bucket(treeBucket)})
	})
}

func (b *backend) Close() error {
	return b.db.Close()
}

// boltTxn adapts a bucket to kv.Txn. Bolt slices are only valid for the life
// of the transaction, so everything handed out is copied.
type boltTxn struct {
	bucket *bolt.Bucket
}

func (t *boltTxn) Get(key []byte) ([]byte, bool, error) {
	v := t.bucket.Get(key)
	if v == nil {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (t *boltTxn) Set(key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t *boltTxn) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

func (t *boltTxn) Keys(prefix []byte, limit int) ([][]byte, error) {
	var keys [][]byte
	c := t.bucket.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, bytes.Clone(k))
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys, nil
}
