package testing

import (
	"os"
	"testing"

	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTruncateTests executes all Truncate tests.
func (suite *ClientTestSuite) RunTruncateTests(t *testing.T) {
	t.Run("Truncate_ToZero", suite.testTruncateToZero)
	t.Run("Truncate_ZeroIdempotent", suite.testTruncateZeroIdempotent)
	t.Run("Truncate_Shrink", suite.testTruncateShrink)
	t.Run("Truncate_Grow", suite.testTruncateGrow)
	t.Run("Truncate_ShrinkThenWritePastEnd", suite.testTruncateShrinkThenWrite)
	t.Run("Truncate_NotFound", suite.testTruncateNotFound)
}

// RunOpenTests executes all Open tests.
func (suite *ClientTestSuite) RunOpenTests(t *testing.T) {
	t.Run("Open_CreateTruncateExisting", suite.testOpenCreateTruncateExisting)
	t.Run("Open_CreateMissing", suite.testOpenCreateMissing)
	t.Run("Open_ReadOnlyKeepsContent", suite.testOpenReadOnlyKeepsContent)
	t.Run("Open_NotFound", suite.testOpenNotFound)
	t.Run("Open_Exclusive", suite.testOpenExclusive)
	t.Run("Open_DirectoryForWrite", suite.testOpenDirectoryForWrite)
}

func (suite *ClientTestSuite) testTruncateToZero(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/trunc", pattern(1000, 2), 0)
	assertSize(t, c, "/trunc", 1000)

	require.NoError(t, c.Truncate(testContext(), "/trunc", 0))
	assertSize(t, c, "/trunc", 0)
	assert.Empty(t, mustReadAt(t, c, "/trunc", 10, 0))
}

func (suite *ClientTestSuite) testTruncateZeroIdempotent(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/empty", []byte("abc"), 0)
	require.NoError(t, c.Truncate(testContext(), "/empty", 0))
	require.NoError(t, c.Truncate(testContext(), "/empty", 0))
	assertSize(t, c, "/empty", 0)
}

func (suite *ClientTestSuite) testTruncateShrink(t *testing.T) {
	c := suite.client(t)
	data := pattern(200*1024, 4)

	mustWriteAt(t, c, "/shrink", data, 0)
	require.NoError(t, c.Truncate(testContext(), "/shrink", 70*1024+5))

	assertSize(t, c, "/shrink", 70*1024+5)
	assert.Equal(t, data[:70*1024+5], mustReadAt(t, c, "/shrink", len(data), 0))
}

func (suite *ClientTestSuite) testTruncateGrow(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/grow", []byte("abc"), 0)
	require.NoError(t, c.Truncate(testContext(), "/grow", 10))

	assertSize(t, c, "/grow", 10)
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00\x00\x00"), mustReadAt(t, c, "/grow", 10, 0))
}

func (suite *ClientTestSuite) testTruncateShrinkThenWrite(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/regrow", []byte("0123456789"), 0)
	require.NoError(t, c.Truncate(testContext(), "/regrow", 3))
	mustWriteAt(t, c, "/regrow", []byte("Z"), 8)

	// Bytes dropped by the truncate must not resurface.
	assert.Equal(t, []byte("012\x00\x00\x00\x00\x00Z"), mustReadAt(t, c, "/regrow", 20, 0))
}

func (suite *ClientTestSuite) testTruncateNotFound(t *testing.T) {
	c := suite.client(t)
	AssertCode(t, sut.ErrNotFound, c.Truncate(testContext(), "/missing", 0))
}

func (suite *ClientTestSuite) testOpenCreateTruncateExisting(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/opentrunc", pattern(4096, 6), 0)
	assertSize(t, c, "/opentrunc", 4096)

	h, err := c.Open(testContext(), "/opentrunc", os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	require.NoError(t, err)
	assert.Equal(t, "/opentrunc", h.Path)
	assertSize(t, c, "/opentrunc", 0)
}

func (suite *ClientTestSuite) testOpenCreateMissing(t *testing.T) {
	c := suite.client(t)

	_, err := c.Open(testContext(), "/fresh", os.O_WRONLY|os.O_CREATE)
	require.NoError(t, err)
	assertSize(t, c, "/fresh", 0)
	assertIsDirectory(t, c, "/fresh", false)
}

func (suite *ClientTestSuite) testOpenReadOnlyKeepsContent(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/ro", []byte("keep me"), 0)
	_, err := c.Open(testContext(), "/ro", os.O_RDONLY)
	require.NoError(t, err)
	assertSize(t, c, "/ro", 7)
}

func (suite *ClientTestSuite) testOpenNotFound(t *testing.T) {
	c := suite.client(t)

	_, err := c.Open(testContext(), "/absent", os.O_RDONLY)
	AssertCode(t, sut.ErrNotFound, err)
}

func (suite *ClientTestSuite) testOpenExclusive(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/excl", []byte("x"), 0)
	_, err := c.Open(testContext(), "/excl", os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	AssertCode(t, sut.ErrAlreadyExists, err)
}

func (suite *ClientTestSuite) testOpenDirectoryForWrite(t *testing.T) {
	c := suite.client(t)

	mustMkdir(t, c, "/opendir")
	_, err := c.Open(testContext(), "/opendir", os.O_RDWR)
	AssertCode(t, sut.ErrIsDirectory, err)
}
