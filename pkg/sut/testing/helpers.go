package testing

import (
	"testing"

	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCode checks that err is a StoreError with the expected code.
func AssertCode(t *testing.T, expected sut.ErrorCode, err error) {
	t.Helper()
	code, ok := sut.CodeOf(err)
	if !ok {
		t.Errorf("Expected StoreError %q, got %v", expected, err)
		return
	}
	assert.Equal(t, expected, code, "error code mismatch (err: %v)", err)
}

// mustMkdir creates a directory and fails the test if it errors.
func mustMkdir(t *testing.T, c sut.Client, path string) {
	t.Helper()
	require.NoError(t, c.CreateDirectory(testContext(), path, 0o755), "CreateDirectory %s should succeed", path)
}

// mustWriteAt writes data at offset and fails the test if it errors.
func mustWriteAt(t *testing.T, c sut.Client, path string, data []byte, offset int64) {
	t.Helper()
	n, err := c.WriteAt(testContext(), path, data, offset)
	require.NoError(t, err, "WriteAt should succeed")
	require.Equal(t, len(data), n, "WriteAt count mismatch")
}

// mustReadAt reads up to size bytes at offset and returns what was read.
func mustReadAt(t *testing.T, c sut.Client, path string, size int, offset int64) []byte {
	t.Helper()
	buf := make([]byte, size)
	n, err := c.ReadAt(testContext(), path, buf, offset)
	require.NoError(t, err, "ReadAt should succeed")
	return buf[:n]
}

// assertIsDirectory checks the directory state of path.
func assertIsDirectory(t *testing.T, c sut.Client, path string, expected bool) {
	t.Helper()
	isDir, err := c.IsDirectory(testContext(), path)
	require.NoError(t, err, "IsDirectory should not error")
	assert.Equal(t, expected, isDir, "IsDirectory(%s) mismatch", path)
}

// assertSize checks the reported size of path.
func assertSize(t *testing.T, c sut.Client, path string, expected int64) {
	t.Helper()
	attr, err := c.GetAttributes(testContext(), path)
	require.NoError(t, err, "GetAttributes should succeed")
	assert.Equal(t, expected, attr.Size, "size mismatch for %s", path)
}

// pattern returns size bytes of a recognisable non-zero pattern.
func pattern(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i%251) + seed | 1
	}
	return data
}
