package sut

import (
	"context"
	"os"
)

// Limiter paces calls. *ratelimiter.RateLimiter satisfies it.
type Limiter interface {
	// Wait blocks until the next call may proceed or ctx is done.
	Wait(ctx context.Context) error
}

// throttledClient waits on a Limiter before every call.
type throttledClient struct {
	next    Client
	limiter Limiter
}

// NewThrottledClient wraps next so that calls are paced by limiter. A
// cancelled wait is returned as the call's error without reaching next.
func NewThrottledClient(next Client, limiter Limiter) Client {
	return &throttledClient{next: next, limiter: limiter}
}

func (c *throttledClient) CreateDirectory(ctx context.Context, path string, mode os.FileMode) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.next.CreateDirectory(ctx, path, mode)
}

func (c *throttledClient) RemoveDirectory(ctx context.Context, path string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.next.RemoveDirectory(ctx, path)
}

func (c *throttledClient) IsDirectory(ctx context.Context, path string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return c.next.IsDirectory(ctx, path)
}

func (c *throttledClient) WriteAt(ctx context.Context, path string, data []byte, offset int64) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.next.WriteAt(ctx, path, data, offset)
}

func (c *throttledClient) ReadAt(ctx context.Context, path string, p []byte, offset int64) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.next.ReadAt(ctx, path, p, offset)
}

func (c *throttledClient) GetAttributes(ctx context.Context, path string) (*Attributes, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GetAttributes(ctx, path)
}

func (c *throttledClient) Truncate(ctx context.Context, path string, size int64) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.next.Truncate(ctx, path, size)
}

func (c *throttledClient) Open(ctx context.Context, path string, flags int) (*Handle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.Open(ctx, path, flags)
}

func (c *throttledClient) Close() error {
	return c.next.Close()
}
