package harness

import (
	"context"
	"math/rand"
	"time"
)

// Sizes returns the escalation sequence minSize, minSize*factor, ... up to
// maxSize. A factor below 2 yields just minSize.
func Sizes(minSize, maxSize, factor int) []int {
	if minSize <= 0 || maxSize < minSize {
		return nil
	}

	sizes := []int{minSize}
	if factor < 2 {
		return sizes
	}
	for n := minSize; n <= maxSize/factor; {
		n *= factor
		sizes = append(sizes, n)
	}
	return sizes
}

// sampleOffset returns a uniform offset in [0, size-2], the range on which a
// GenerateString fixture matches OffsetByte. size must be at least 2.
func sampleOffset(rng *rand.Rand, size int) int64 {
	return rng.Int63n(int64(size - 1))
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
