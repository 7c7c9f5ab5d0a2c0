package testing

import (
	"bytes"
	"testing"

	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes all WriteAt tests.
func (suite *ClientTestSuite) RunWriteTests(t *testing.T) {
	t.Run("WriteAt_CreatesFile", suite.testWriteAtCreatesFile)
	t.Run("WriteAt_MissingParent", suite.testWriteAtMissingParent)
	t.Run("WriteAt_Directory", suite.testWriteAtDirectory)
	t.Run("WriteAt_SeekWrite", suite.testWriteAtSeekWrite)
	t.Run("WriteAt_Overwrite", suite.testWriteAtOverwrite)
	t.Run("WriteAt_SpansChunks", suite.testWriteAtSpansChunks)
	t.Run("WriteAt_NegativeOffset", suite.testWriteAtNegativeOffset)
}

// RunReadTests executes all ReadAt tests.
func (suite *ClientTestSuite) RunReadTests(t *testing.T) {
	t.Run("ReadAt_NotFound", suite.testReadAtNotFound)
	t.Run("ReadAt_CapacityLimited", suite.testReadAtCapacityLimited)
	t.Run("ReadAt_ShortAtEnd", suite.testReadAtShortAtEnd)
	t.Run("ReadAt_PastEnd", suite.testReadAtPastEnd)
	t.Run("ReadAt_SingleBytes", suite.testReadAtSingleBytes)
}

func (suite *ClientTestSuite) testWriteAtCreatesFile(t *testing.T) {
	c := suite.client(t)

	mustMkdir(t, c, "/bufdir")
	mustWriteAt(t, c, "/bufdir/file", []byte("this is a string"), 0)

	assertIsDirectory(t, c, "/bufdir/file", false)
	assertSize(t, c, "/bufdir/file", 16)
	assert.Equal(t, []byte("this is a string"), mustReadAt(t, c, "/bufdir/file", 200, 0))
}

func (suite *ClientTestSuite) testWriteAtMissingParent(t *testing.T) {
	c := suite.client(t)

	_, err := c.WriteAt(testContext(), "/nowhere/file", []byte("x"), 0)
	AssertCode(t, sut.ErrNotFound, err)
}

func (suite *ClientTestSuite) testWriteAtDirectory(t *testing.T) {
	c := suite.client(t)

	mustMkdir(t, c, "/adir")
	_, err := c.WriteAt(testContext(), "/adir", []byte("x"), 0)
	AssertCode(t, sut.ErrIsDirectory, err)
}

func (suite *ClientTestSuite) testWriteAtSeekWrite(t *testing.T) {
	c := suite.client(t)
	first := []byte("it was the best of times")
	second := []byte("it was the worst of times")

	mustWriteAt(t, c, "/skipwrite", first, 0)
	mustWriteAt(t, c, "/skipwrite", second, 100)

	assertSize(t, c, "/skipwrite", int64(100+len(second)))
	assert.Equal(t, first, mustReadAt(t, c, "/skipwrite", len(first), 0))
	assert.Equal(t, second, mustReadAt(t, c, "/skipwrite", len(second), 100))

	gap := mustReadAt(t, c, "/skipwrite", 100-len(first), int64(len(first)))
	assert.Equal(t, make([]byte, 100-len(first)), gap, "gap must read as zeros")
}

func (suite *ClientTestSuite) testWriteAtOverwrite(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/over", []byte("0123456789"), 0)
	mustWriteAt(t, c, "/over", []byte("abc"), 4)

	assertSize(t, c, "/over", 10)
	assert.Equal(t, []byte("0123abc789"), mustReadAt(t, c, "/over", 10, 0))
}

func (suite *ClientTestSuite) testWriteAtSpansChunks(t *testing.T) {
	c := suite.client(t)
	data := pattern(300*1024+17, 3)

	mustWriteAt(t, c, "/big", data, 0)
	assertSize(t, c, "/big", int64(len(data)))
	assert.True(t, bytes.Equal(data, mustReadAt(t, c, "/big", len(data), 0)), "content mismatch")

	// Unaligned overwrite across a chunk boundary.
	patch := pattern(70*1024, 7)
	mustWriteAt(t, c, "/big", patch, 60*1024)
	copy(data[60*1024:], patch)
	assert.True(t, bytes.Equal(data, mustReadAt(t, c, "/big", len(data), 0)), "content mismatch after patch")
}

func (suite *ClientTestSuite) testWriteAtNegativeOffset(t *testing.T) {
	c := suite.client(t)

	_, err := c.WriteAt(testContext(), "/neg", []byte("x"), -1)
	AssertCode(t, sut.ErrInvalidArgument, err)
}

func (suite *ClientTestSuite) testReadAtNotFound(t *testing.T) {
	c := suite.client(t)

	_, err := c.ReadAt(testContext(), "/missing", make([]byte, 10), 0)
	AssertCode(t, sut.ErrNotFound, err)
}

func (suite *ClientTestSuite) testReadAtCapacityLimited(t *testing.T) {
	c := suite.client(t)
	data := pattern(800, 1)

	mustWriteAt(t, c, "/cap", data, 0)
	got := mustReadAt(t, c, "/cap", 200, 200)
	assert.Equal(t, 200, len(got))
	assert.Equal(t, data[200:400], got)
}

func (suite *ClientTestSuite) testReadAtShortAtEnd(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/short", []byte("0123456789"), 0)
	assert.Equal(t, []byte("789"), mustReadAt(t, c, "/short", 100, 7))
}

func (suite *ClientTestSuite) testReadAtPastEnd(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/past", []byte("0123456789"), 0)
	assert.Empty(t, mustReadAt(t, c, "/past", 10, 10))
	assert.Empty(t, mustReadAt(t, c, "/past", 10, 1000))
}

func (suite *ClientTestSuite) testReadAtSingleBytes(t *testing.T) {
	c := suite.client(t)
	data := pattern(5000, 5)

	mustWriteAt(t, c, "/single", data, 0)
	for _, off := range []int{0, 1, 999, 4096, 4999} {
		got := mustReadAt(t, c, "/single", 1, int64(off))
		require.Len(t, got, 1)
		assert.Equal(t, data[off], got[0], "byte at %d", off)
	}
}
