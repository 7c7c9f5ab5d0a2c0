package harness

import (
	"context"

	"github.com/marmos91/fscheck/pkg/sut"
)

// ============================================================================
// Invariant checks
// ============================================================================

// expectDirectory checks that IsDirectory(p) reports want.
func expectDirectory(ctx context.Context, c sut.Client, p string, want bool) error {
	got, err := c.IsDirectory(ctx, p)
	if err != nil {
		return operationError("IsDirectory", p, err)
	}
	if got != want {
		if want {
			return invariantError("IsDirectory", p, "expected a directory")
		}
		return invariantError("IsDirectory", p, "expected no directory")
	}
	return nil
}

// expectSize checks the size reported by GetAttributes.
func expectSize(ctx context.Context, c sut.Client, p string, want int64) error {
	attr, err := c.GetAttributes(ctx, p)
	if err != nil {
		return operationError("GetAttributes", p, err)
	}
	if attr.Size != want {
		return invariantError("GetAttributes", p, "size is %d, expected %d", attr.Size, want)
	}
	return nil
}

// expectCount checks a byte count returned by the SUT.
func expectCount(op, p string, got, want int) error {
	if got != want {
		return invariantError(op, p, "transferred %d bytes, expected %d", got, want)
	}
	return nil
}

// expectBytes compares content byte for byte and reports the first mismatch.
func expectBytes(op, p string, got, want []byte) error {
	if len(got) != len(want) {
		return invariantError(op, p, "got %d bytes, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return invariantError(op, p, "byte %d is 0x%02x, expected 0x%02x", i, got[i], want[i])
		}
	}
	return nil
}

// ============================================================================
// Checked SUT calls
// ============================================================================

func mkdir(ctx context.Context, c sut.Client, p string) error {
	if err := c.CreateDirectory(ctx, p, 0o777); err != nil {
		return operationError("CreateDirectory", p, err)
	}
	return nil
}

// write writes all of data at offset.
func write(ctx context.Context, c sut.Client, p string, data []byte, offset int64) error {
	n, err := c.WriteAt(ctx, p, data, offset)
	if err != nil {
		return operationError("WriteAt", p, err)
	}
	return expectCount("WriteAt", p, n, len(data))
}

// read reads up to size bytes at offset and returns what came back.
func read(ctx context.Context, c sut.Client, p string, size int, offset int64) ([]byte, error) {
	buf := make([]byte, size)
	n, err := c.ReadAt(ctx, p, buf, offset)
	if err != nil {
		return nil, operationError("ReadAt", p, err)
	}
	if n < 0 || n > size {
		return nil, invariantError("ReadAt", p, "returned count %d for a %d-byte buffer", n, size)
	}
	return buf[:n], nil
}

// createTestFile writes a GenerateString fixture of size bytes at p.
func createTestFile(ctx context.Context, c sut.Client, p string, size int) error {
	return write(ctx, c, p, GenerateString(size), 0)
}
