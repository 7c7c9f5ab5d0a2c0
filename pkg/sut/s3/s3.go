// Package s3 implements sut.Client on Amazon S3 or an S3-compatible service.
package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/fscheck/internal/logger"
	"github.com/marmos91/fscheck/pkg/sut"
)

// S3Store implements sut.Client on an S3 bucket.
//
// Object Layout:
//   - File /a/b        -> object "<prefix>a/b" holding the whole content
//   - Directory /a     -> zero-byte marker object "<prefix>a/"
//   - Root             -> implicit, always exists
//
// Object storage has no partial writes, so WriteAt and Truncate are
// read-modify-write cycles over the whole object. ReadAt uses ranged GETs.
//
// Thread Safety:
// Safe for concurrent use, but two writers of the same file race with
// last-write-wins semantics.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3StoreConfig configures the S3 backend.
type S3StoreConfig struct {
	// Endpoint is a custom endpoint for S3-compatible services (Localstack, MinIO).
	Endpoint string `mapstructure:"endpoint"`

	Region string `mapstructure:"region" validate:"required"`
	Bucket string `mapstructure:"bucket" validate:"required"`

	// KeyPrefix is prepended to every object key, e.g. "fscheck/".
	KeyPrefix string `mapstructure:"key_prefix"`

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// ForcePathStyle enables path-style addressing. Always on with a custom endpoint.
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// MaxRetries is the maximum number of attempts per request (0 = 10).
	MaxRetries int `mapstructure:"max_retries"`
}

var _ sut.Client = (*S3Store)(nil)

// NewS3Store builds an S3 client from cfg and verifies bucket access. The
// bucket must already exist.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Connection settings
//
// Returns:
//   - *S3Store: Initialized store
//   - error: Returns error if the configuration is invalid or the bucket is unreachable
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s", cfg.Bucket, cfg.Region, cfg.KeyPrefix)

	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func newClient(ctx context.Context, cfg S3StoreConfig) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *S3Store) Close() error {
	return nil
}

// ============================================================================
// Object helpers
// ============================================================================

// fileKey maps a cleaned store path to its object key.
func (s *S3Store) fileKey(p string) string {
	return s.keyPrefix + strings.TrimPrefix(p, "/")
}

// dirKey maps a cleaned store path to its directory marker key.
func (s *S3Store) dirKey(p string) string {
	if p == sut.Root {
		return s.keyPrefix
	}
	return s.fileKey(p) + "/"
}

type objectKind int

const (
	kindNone objectKind = iota
	kindDir
	kindFile
)

type objectInfo struct {
	kind    objectKind
	size    int64
	modTime time.Time
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func ioError(err error, p string) error {
	return &sut.StoreError{Code: sut.ErrIOError, Message: err.Error(), Path: p}
}

// head resolves what lives at p. Files take precedence over markers.
func (s *S3Store) head(ctx context.Context, p string) (objectInfo, error) {
	if p == sut.Root {
		return objectInfo{kind: kindDir}, nil
	}

	for _, candidate := range []struct {
		key  string
		kind objectKind
	}{
		{s.fileKey(p), kindFile},
		{s.dirKey(p), kindDir},
	} {
		out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(candidate.key),
		})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return objectInfo{}, ioError(fmt.Errorf("failed to head object: %w", err), p)
		}

		info := objectInfo{kind: candidate.kind}
		if out.ContentLength != nil {
			info.size = *out.ContentLength
		}
		if out.LastModified != nil {
			info.modTime = *out.LastModified
		}
		return info, nil
	}
	return objectInfo{kind: kindNone}, nil
}

func (s *S3Store) requireParentDir(ctx context.Context, p string) error {
	parent := sut.Parent(p)
	info, err := s.head(ctx, parent)
	if err != nil {
		return err
	}
	switch info.kind {
	case kindNone:
		return sut.NewError(sut.ErrNotFound, parent)
	case kindFile:
		return sut.NewError(sut.ErrNotDirectory, parent)
	}
	return nil
}

func begin(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sut.Clean(path)
}

// ============================================================================
// Directory operations
// ============================================================================

func (s *S3Store) CreateDirectory(ctx context.Context, path string, mode os.FileMode) error {
	p, err := begin(ctx, path)
	if err != nil {
		return err
	}
	if p == sut.Root {
		return sut.NewError(sut.ErrAlreadyExists, p)
	}

	info, err := s.head(ctx, p)
	if err != nil {
		return err
	}
	if info.kind != kindNone {
		return sut.NewError(sut.ErrAlreadyExists, p)
	}
	if err := s.requireParentDir(ctx, p); err != nil {
		return err
	}

	if err := s.put(ctx, s.dirKey(p), nil); err != nil {
		return ioError(err, p)
	}
	return nil
}

func (s *S3Store) RemoveDirectory(ctx context.Context, path string) error {
	p, err := begin(ctx, path)
	if err != nil {
		return err
	}
	if p == sut.Root {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "cannot remove root", Path: p}
	}

	info, err := s.head(ctx, p)
	if err != nil {
		return err
	}
	switch info.kind {
	case kindNone:
		return sut.NewError(sut.ErrNotFound, p)
	case kindFile:
		return sut.NewError(sut.ErrNotDirectory, p)
	}

	marker := s.dirKey(p)
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(marker),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return ioError(fmt.Errorf("failed to list objects: %w", err), p)
	}
	for _, obj := range out.Contents {
		if aws.ToString(obj.Key) != marker {
			return sut.NewError(sut.ErrNotEmpty, p)
		}
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(marker),
	})
	if err != nil {
		return ioError(fmt.Errorf("failed to delete directory marker: %w", err), p)
	}
	return nil
}

func (s *S3Store) IsDirectory(ctx context.Context, path string) (bool, error) {
	p, err := begin(ctx, path)
	if err != nil {
		return false, err
	}
	info, err := s.head(ctx, p)
	if err != nil {
		return false, err
	}
	return info.kind == kindDir, nil
}

func (s *S3Store) GetAttributes(ctx context.Context, path string) (*sut.Attributes, error) {
	p, err := begin(ctx, path)
	if err != nil {
		return nil, err
	}
	info, err := s.head(ctx, p)
	if err != nil {
		return nil, err
	}

	switch info.kind {
	case kindNone:
		return nil, sut.NewError(sut.ErrNotFound, p)
	case kindDir:
		return &sut.Attributes{Path: p, Size: sut.DirectorySize, IsDirectory: true, Mode: os.ModeDir | 0o755, ModTime: info.modTime}, nil
	}
	return &sut.Attributes{Path: p, Size: info.size, Mode: 0o644, ModTime: info.modTime}, nil
}
