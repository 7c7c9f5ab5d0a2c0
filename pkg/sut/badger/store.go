// Package badger provides a sut.Client backed by BadgerDB.
//
// The tree and the chunked file content live in a single Badger keyspace
// (see kv.Store for the key layout). Every Client call is one Badger
// transaction, so a call is either fully visible or not at all.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut/kv"
)

// BadgerStoreConfig configures the Badger backend.
type BadgerStoreConfig struct {
	// DBPath is the directory holding the database. Ignored when InMemory.
	DBPath string `mapstructure:"db_path" validate:"required_without=InMemory"`

	// InMemory keeps the whole database in memory (nothing touches disk).
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `mapstructure:"sync_writes"`

	// ChunkSize is the content chunk size in bytes (0 = kv.DefaultChunkSize).
	ChunkSize int64 `mapstructure:"chunk_size" validate:"gte=0"`

	// BlockCacheSizeMB is the Badger block cache size (0 = 64MB).
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
}

// backend adapts *badger.DB to kv.Backend.
type backend struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database and returns a
// kv.Store over it.
func NewBadgerStore(ctx context.Context, cfg BadgerStoreConfig) (*kv.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}

	opts = opts.WithLoggingLevel(badger.WARNING) // Reduce log noise
	opts = opts.WithCompression(options.None)    // Fixture content is cheap to store raw
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	store := kv.New(&backend{db: db}, kv.Config{ChunkSize: cfg.ChunkSize})
	logger.Info("Badger store initialized: path=%s, in_memory=%v, chunk_size=%d",
		cfg.DBPath, cfg.InMemory, store.ChunkSize())
	return store, nil
}

func (b *backend) View(fn func(kv.Txn) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (b *backend) Update(fn func(kv.Txn) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (b *backend) Close() error {
	return b.db.Close()
}

// badgerTxn adapts *badger.Txn to kv.Txn.
type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key []byte) ([]byte, bool, error) {
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *badgerTxn) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t *badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(key)
}

func (t *badgerTxn) Keys(prefix []byte, limit int) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := t.txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys, nil
}
