package config

import (
	"context"
	"fmt"

	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/internal/ratelimiter"
	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/marmos91/fscheck/pkg/sut/badger"
	"github.com/marmos91/fscheck/pkg/sut/bolt"
	"github.com/marmos91/fscheck/pkg/sut/fs"
	"github.com/marmos91/fscheck/pkg/sut/memory"
	"github.com/marmos91/fscheck/pkg/sut/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateClient creates the backend under test based on configuration.
//
// This factory function uses the Type field to determine which backend to
// create, then decodes the type-specific options from the corresponding map
// and passes them to the backend's constructor.
//
// Supported types:
//   - "memory": pkg/sut/memory (optionally with a commit delay)
//   - "badger": pkg/sut/badger (BadgerDB, on disk or in memory)
//   - "bolt": pkg/sut/bolt (Bolt file)
//   - "filesystem": pkg/sut/fs (local directory)
//   - "s3": pkg/sut/s3 (Amazon S3 or compatible storage)
//
// A non-zero RateLimit wraps the backend in a throttled client.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Backend configuration
//
// Returns:
//   - sut.Client: Initialized backend, owned by the caller
//   - error: Configuration or initialization error
func CreateClient(ctx context.Context, cfg *BackendConfig) (sut.Client, error) {
	logger.Debug("Creating %s backend", cfg.Type)

	client, err := createBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if rl := cfg.RateLimit; rl.OpsPerSecond > 0 {
		logger.Info("Pacing %s backend at %d ops/s (burst %d)", cfg.Type, rl.OpsPerSecond, rl.Burst)
		client = sut.NewThrottledClient(client, ratelimiter.New(rl.OpsPerSecond, rl.Burst))
	}
	return client, nil
}

func createBackend(ctx context.Context, cfg *BackendConfig) (sut.Client, error) {
	switch cfg.Type {
	case BackendMemory:
		var storeCfg memory.MemoryStoreConfig
		if err := decodeOptions("memory", cfg.Memory, &storeCfg); err != nil {
			return nil, err
		}
		store, err := memory.NewMemoryStore(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory backend: %w", err)
		}
		return store, nil

	case BackendBadger:
		var storeCfg badger.BadgerStoreConfig
		if err := decodeOptions("badger", cfg.Badger, &storeCfg); err != nil {
			return nil, err
		}
		store, err := badger.NewBadgerStore(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger backend: %w", err)
		}
		return store, nil

	case BackendBolt:
		var storeCfg bolt.BoltStoreConfig
		if err := decodeOptions("bolt", cfg.Bolt, &storeCfg); err != nil {
			return nil, err
		}
		store, err := bolt.NewBoltStore(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create bolt backend: %w", err)
		}
		return store, nil

	case BackendFilesystem:
		var storeCfg fs.FSStoreConfig
		if err := decodeOptions("filesystem", cfg.Filesystem, &storeCfg); err != nil {
			return nil, err
		}
		store, err := fs.NewFSStore(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem backend: %w", err)
		}
		return store, nil

	case BackendS3:
		var storeCfg s3.S3StoreConfig
		if err := decodeOptions("s3", cfg.S3, &storeCfg); err != nil {
			return nil, err
		}
		store, err := s3.NewS3Store(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 backend: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown backend type: %q", cfg.Type)
	}
}

// decodeOptions decodes a backend section into its configuration struct and
// validates it. Durations may be given as strings ("500ms").
func decodeOptions(name string, options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s config decoder: %w", name, err)
	}

	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("failed to decode %s backend config: %w", name, err)
	}

	if err := validateStruct(out); err != nil {
		return fmt.Errorf("%s backend: %w", name, err)
	}
	return nil
}
