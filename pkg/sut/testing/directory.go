package testing

import (
	"testing"

	"github.com/marmos91/fscheck/pkg/sut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDirectoryTests executes all directory operation tests.
func (suite *ClientTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("CreateDirectory_Basic", suite.testCreateDirectoryBasic)
	t.Run("CreateDirectory_NotRecursive", suite.testCreateDirectoryNotRecursive)
	t.Run("CreateDirectory_Nested", suite.testCreateDirectoryNested)
	t.Run("CreateDirectory_Exists", suite.testCreateDirectoryExists)
	t.Run("CreateDirectory_ParentIsFile", suite.testCreateDirectoryParentIsFile)
	t.Run("RemoveDirectory_Basic", suite.testRemoveDirectoryBasic)
	t.Run("RemoveDirectory_NotEmpty", suite.testRemoveDirectoryNotEmpty)
	t.Run("RemoveDirectory_NotFound", suite.testRemoveDirectoryNotFound)
	t.Run("RemoveDirectory_Root", suite.testRemoveDirectoryRoot)
	t.Run("IsDirectory_Root", suite.testIsDirectoryRoot)
	t.Run("IsDirectory_File", suite.testIsDirectoryFile)
	t.Run("GetAttributes_Directory", suite.testGetAttributesDirectory)
}

func (suite *ClientTestSuite) testCreateDirectoryBasic(t *testing.T) {
	c := suite.client(t)

	assertIsDirectory(t, c, "/dir", false)
	mustMkdir(t, c, "/dir")
	assertIsDirectory(t, c, "/dir", true)
}

func (suite *ClientTestSuite) testCreateDirectoryNotRecursive(t *testing.T) {
	c := suite.client(t)

	err := c.CreateDirectory(testContext(), "/a/b/c/d/e/f/g", 0o755)
	AssertCode(t, sut.ErrNotFound, err)

	assertIsDirectory(t, c, "/a/b/c/d/e/f/g", false)
	assertIsDirectory(t, c, "/a", false)
}

func (suite *ClientTestSuite) testCreateDirectoryNested(t *testing.T) {
	c := suite.client(t)

	for _, p := range []string{"/test", "/test/1", "/test/1/2"} {
		mustMkdir(t, c, p)
		assertIsDirectory(t, c, p, true)
	}
}

func (suite *ClientTestSuite) testCreateDirectoryExists(t *testing.T) {
	c := suite.client(t)

	mustMkdir(t, c, "/dup")
	err := c.CreateDirectory(testContext(), "/dup", 0o755)
	AssertCode(t, sut.ErrAlreadyExists, err)

	mustWriteAt(t, c, "/file", []byte("x"), 0)
	err = c.CreateDirectory(testContext(), "/file", 0o755)
	AssertCode(t, sut.ErrAlreadyExists, err)
}

func (suite *ClientTestSuite) testCreateDirectoryParentIsFile(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/plain", []byte("x"), 0)
	err := c.CreateDirectory(testContext(), "/plain/sub", 0o755)
	AssertCode(t, sut.ErrNotDirectory, err)
}

func (suite *ClientTestSuite) testRemoveDirectoryBasic(t *testing.T) {
	c := suite.client(t)

	mustMkdir(t, c, "/gone")
	assertIsDirectory(t, c, "/gone", true)

	require.NoError(t, c.RemoveDirectory(testContext(), "/gone"))
	assertIsDirectory(t, c, "/gone", false)

	_, err := c.GetAttributes(testContext(), "/gone")
	AssertCode(t, sut.ErrNotFound, err)
}

func (suite *ClientTestSuite) testRemoveDirectoryNotEmpty(t *testing.T) {
	c := suite.client(t)

	mustMkdir(t, c, "/full")
	mustWriteAt(t, c, "/full/file", []byte("data"), 0)
	AssertCode(t, sut.ErrNotEmpty, c.RemoveDirectory(testContext(), "/full"))

	mustMkdir(t, c, "/full2")
	mustMkdir(t, c, "/full2/sub")
	AssertCode(t, sut.ErrNotEmpty, c.RemoveDirectory(testContext(), "/full2"))

	// A sibling sharing the name prefix is not a child.
	mustMkdir(t, c, "/pre")
	mustMkdir(t, c, "/prefix")
	require.NoError(t, c.RemoveDirectory(testContext(), "/pre"))
	assertIsDirectory(t, c, "/prefix", true)
}

func (suite *ClientTestSuite) testRemoveDirectoryNotFound(t *testing.T) {
	c := suite.client(t)
	AssertCode(t, sut.ErrNotFound, c.RemoveDirectory(testContext(), "/missing"))
}

func (suite *ClientTestSuite) testRemoveDirectoryRoot(t *testing.T) {
	c := suite.client(t)
	AssertCode(t, sut.ErrInvalidArgument, c.RemoveDirectory(testContext(), "/"))
	assertIsDirectory(t, c, "/", true)
}

func (suite *ClientTestSuite) testIsDirectoryRoot(t *testing.T) {
	c := suite.client(t)
	assertIsDirectory(t, c, "/", true)
}

func (suite *ClientTestSuite) testIsDirectoryFile(t *testing.T) {
	c := suite.client(t)

	mustWriteAt(t, c, "/regular", []byte("content"), 0)
	assertIsDirectory(t, c, "/regular", false)
}

func (suite *ClientTestSuite) testGetAttributesDirectory(t *testing.T) {
	c := suite.client(t)

	mustMkdir(t, c, "/attrs")
	attr, err := c.GetAttributes(testContext(), "/attrs")
	require.NoError(t, err)
	assert.True(t, attr.IsDirectory)
	assert.Equal(t, "/attrs", attr.Path)
}
