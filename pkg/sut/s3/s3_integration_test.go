//go:build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/fscheck/pkg/sut"
	suttesting "github.com/marmos91/fscheck/pkg/sut/testing"
	"github.com/stretchr/testify/require"
)

// TestS3Store_Integration runs the client contract against a real
// S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./pkg/sut/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Store_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	base := S3StoreConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		MaxRetries:      3,
	}

	client, err := newClient(ctx, base)
	require.NoError(t, err)

	bucketName := "fscheck-test-bucket"
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	require.NoError(t, err, "failed to create test bucket")

	defer func() {
		paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucketName),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				break
			}
			for _, obj := range page.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(bucketName),
					Key:    obj.Key,
				})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: aws.String(bucketName),
		})
	}()

	// Every test gets its own key prefix, so they never see each other's objects.
	suite := &suttesting.ClientTestSuite{
		NewClient: func(t *testing.T) sut.Client {
			cfg := base
			cfg.Bucket = bucketName
			cfg.KeyPrefix = fmt.Sprintf("run-%d/", time.Now().UnixNano())
			store, err := NewS3Store(ctx, cfg)
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}
