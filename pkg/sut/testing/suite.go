// Package testing provides a reusable contract suite for sut.Client
// implementations.
//
// It tests the contract, not implementation details, so every backend in
// this repository runs the same suite:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &suttesting.ClientTestSuite{
//	        NewClient: func(t *testing.T) sut.Client {
//	            return mybackend.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
package testing

import (
	"context"
	"testing"

	"github.com/marmos91/fscheck/pkg/sut"
)

// ClientTestSuite runs the sut.Client contract against fresh client instances.
type ClientTestSuite struct {
	// NewClient creates a fresh, empty client for each test. The suite closes
	// it when the test ends.
	NewClient func(t *testing.T) sut.Client
}

// Run executes all tests in the suite.
func (suite *ClientTestSuite) Run(t *testing.T) {
	t.Run("DirectoryOperations", suite.RunDirectoryTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("ReadOperations", suite.RunReadTests)
	t.Run("TruncateOperations", suite.RunTruncateTests)
	t.Run("OpenOperations", suite.RunOpenTests)
}

func (suite *ClientTestSuite) client(t *testing.T) sut.Client {
	t.Helper()
	c := suite.NewClient(t)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
