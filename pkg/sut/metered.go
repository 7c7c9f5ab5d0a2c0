package sut

import (
	"context"
	"os"
	"time"
)

// Metrics receives one observation per Client call.
//
// A Prometheus implementation lives in pkg/metrics; a nil Metrics passed to
// NewMeteredClient is replaced by a no-op.
type Metrics interface {
	// ObserveOperation records the duration and outcome of a call.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records payload bytes moved, by direction ("read" or "write").
	RecordBytes(direction string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordBytes(direction string, bytes int64)                            {}

// meteredClient decorates a Client with Metrics observations.
type meteredClient struct {
	next    Client
	metrics Metrics
}

// NewMeteredClient wraps next so every call is reported to m.
func NewMeteredClient(next Client, m Metrics) Client {
	if m == nil {
		m = noopMetrics{}
	}
	return &meteredClient{next: next, metrics: m}
}

func (c *meteredClient) observe(op string, start time.Time, err error) {
	c.metrics.ObserveOperation(op, time.Since(start), err)
}

func (c *meteredClient) CreateDirectory(ctx context.Context, path string, mode os.FileMode) (err error) {
	start := time.Now()
	defer func() { c.observe("CreateDirectory", start, err) }()
	return c.next.CreateDirectory(ctx, path, mode)
}

func (c *meteredClient) RemoveDirectory(ctx context.Context, path string) (err error) {
	start := time.Now()
	defer func() { c.observe("RemoveDirectory", start, err) }()
	return c.next.RemoveDirectory(ctx, path)
}

func (c *meteredClient) IsDirectory(ctx context.Context, path string) (ok bool, err error) {
	start := time.Now()
	defer func() { c.observe("IsDirectory", start, err) }()
	return c.next.IsDirectory(ctx, path)
}

func (c *meteredClient) WriteAt(ctx context.Context, path string, data []byte, offset int64) (n int, err error) {
	start := time.Now()
	defer func() {
		c.observe("WriteAt", start, err)
		if n > 0 {
			c.metrics.RecordBytes("write", int64(n))
		}
	}()
	return c.next.WriteAt(ctx, path, data, offset)
}

func (c *meteredClient) ReadAt(ctx context.Context, path string, p []byte, offset int64) (n int, err error) {
	start := time.Now()
	defer func() {
		c.observe("ReadAt", start, err)
		if n > 0 {
			c.metrics.RecordBytes("read", int64(n))
		}
	}()
	return c.next.ReadAt(ctx, path, p, offset)
}

func (c *meteredClient) GetAttributes(ctx context.Context, path string) (attr *Attributes, err error) {
	start := time.Now()
	defer func() { c.observe("GetAttributes", start, err) }()
	return c.next.GetAttributes(ctx, path)
}

func (c *meteredClient) Truncate(ctx context.Context, path string, size int64) (err error) {
	start := time.Now()
	defer func() { c.observe("Truncate", start, err) }()
	return c.next.Truncate(ctx, path, size)
}

func (c *meteredClient) Open(ctx context.Context, path string, flags int) (h *Handle, err error) {
	start := time.Now()
	defer func() { c.observe("Open", start, err) }()
	return c.next.Open(ctx, path, flags)
}

func (c *meteredClient) Close() error {
	return c.next.Close()
}
