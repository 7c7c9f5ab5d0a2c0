package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestObjectKeys(t *testing.T) {
	s := &S3Store{keyPrefix: "fscheck/"}

	assert.Equal(t, "fscheck/a/b", s.fileKey("/a/b"))
	assert.Equal(t, "fscheck/a/b/", s.dirKey("/a/b"))
	assert.Equal(t, "fscheck/", s.dirKey("/"))

	bare := &S3Store{}
	assert.Equal(t, "file", bare.fileKey("/file"))
	assert.Equal(t, "dir/", bare.dirKey("/dir"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("head: %w", &types.NotFound{})))
	assert.True(t, isNotFound(fmt.Errorf("get: %w", &types.NoSuchKey{})))
	assert.False(t, isNotFound(errors.New("connection reset")))
}

func TestNewS3Store_RequiresBucketAndRegion(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3Store(ctx, S3StoreConfig{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3Store(ctx, S3StoreConfig{Bucket: "b"})
	assert.ErrorContains(t, err, "region is required")
}
