package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/fscheck/pkg/harness"
)

func TestCreateClient_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &BackendConfig{
		Type:   BackendMemory,
		Memory: map[string]any{"commit_delay": "0s"},
	}

	client, err := CreateClient(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create memory backend: %v", err)
	}
	defer func() { _ = client.Close() }()

	report := harness.RunStandardTests(ctx, client, harness.Options{Seed: 1, MaxSize: 10, OffsetSamples: 10})
	if report.Failed() {
		t.Errorf("Expected memory backend to pass, got %+v", report.Summary)
	}
}

func TestCreateClient_MemoryBadDelay(t *testing.T) {
	cfg := &BackendConfig{
		Type:   BackendMemory,
		Memory: map[string]any{"commit_delay": "soon"},
	}

	if _, err := CreateClient(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unparsable commit_delay")
	}
}

func TestCreateClient_UnknownOption(t *testing.T) {
	cfg := &BackendConfig{
		Type:   BackendMemory,
		Memory: map[string]any{"max_size_bytes": 1024},
	}

	_, err := CreateClient(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for unknown option")
	}
	if !strings.Contains(err.Error(), "max_size_bytes") {
		t.Errorf("Expected error to name the unknown key, got: %v", err)
	}
}

func TestCreateClient_RateLimited(t *testing.T) {
	cfg := &BackendConfig{
		Type:      BackendMemory,
		Memory:    map[string]any{},
		RateLimit: RateLimitConfig{OpsPerSecond: 1, Burst: 1},
	}

	client, err := CreateClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create rate-limited backend: %v", err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The burst admits one call; the next must wait about a second.
	if _, err := client.IsDirectory(ctx, "/"); err != nil {
		t.Fatalf("First call should pass the limiter: %v", err)
	}
	if _, err := client.IsDirectory(ctx, "/"); err == nil {
		t.Fatal("Second call should be held back by the limiter")
	}
}

func TestCreateClient_BadgerInMemory(t *testing.T) {
	cfg := &BackendConfig{
		Type:   BackendBadger,
		Badger: map[string]any{"in_memory": true},
	}

	client, err := CreateClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger backend: %v", err)
	}
	_ = client.Close()
}

func TestCreateClient_BadgerMissingPath(t *testing.T) {
	cfg := &BackendConfig{Type: BackendBadger, Badger: map[string]any{}}

	_, err := CreateClient(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "required_without") {
		t.Errorf("Expected required_without error, got: %v", err)
	}
}

func TestCreateClient_Bolt(t *testing.T) {
	cfg := &BackendConfig{
		Type: BackendBolt,
		Bolt: map[string]any{
			"path":       filepath.Join(t.TempDir(), "fscheck.bolt"),
			"chunk_size": 4096,
			"timeout":    "1s",
		},
	}

	client, err := CreateClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create bolt backend: %v", err)
	}
	_ = client.Close()
}

func TestCreateClient_Filesystem(t *testing.T) {
	cfg := &BackendConfig{
		Type:       BackendFilesystem,
		Filesystem: map[string]any{"root": filepath.Join(t.TempDir(), "root")},
	}

	client, err := CreateClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem backend: %v", err)
	}
	_ = client.Close()
}

func TestCreateClient_FilesystemMissingRoot(t *testing.T) {
	cfg := &BackendConfig{Type: BackendFilesystem, Filesystem: map[string]any{}}

	_, err := CreateClient(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing root")
	}
	if !strings.Contains(err.Error(), "Root") {
		t.Errorf("Expected error to name Root, got: %v", err)
	}
}

func TestCreateClient_S3MissingBucket(t *testing.T) {
	cfg := &BackendConfig{
		Type: BackendS3,
		S3:   map[string]any{"region": "us-east-1"},
	}

	_, err := CreateClient(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "Bucket") {
		t.Errorf("Expected error to name Bucket, got: %v", err)
	}
}

func TestCreateClient_UnknownType(t *testing.T) {
	cfg := &BackendConfig{Type: "nfs"}

	_, err := CreateClient(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for unknown backend type")
	}
	if !strings.Contains(err.Error(), "unknown backend type") {
		t.Errorf("Expected 'unknown backend type' error, got: %v", err)
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result, err := InitializeMetrics(GetDefaultConfig())
	if err != nil {
		t.Fatalf("InitializeMetrics failed: %v", err)
	}
	if result.Server != nil || result.SUTMetrics != nil || result.CaseMetrics != nil {
		t.Errorf("Expected no metrics components when disabled, got %+v", result)
	}
}

func TestInitializeMetrics_Enabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = "127.0.0.1:0"

	result, err := InitializeMetrics(cfg)
	if err != nil {
		t.Fatalf("InitializeMetrics failed: %v", err)
	}
	defer func() { _ = result.Server.Stop(context.Background()) }()

	if result.Server == nil || result.SUTMetrics == nil || result.CaseMetrics == nil {
		t.Errorf("Expected all metrics components when enabled, got %+v", result)
	}
}
