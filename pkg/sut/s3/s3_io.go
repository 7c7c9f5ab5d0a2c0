package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/fscheck/pkg/sut"
)

func (s *S3Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// getAll downloads the whole object at key.
func (s *S3Store) getAll(ctx context.Context, key string, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteAt is a read-modify-write of the whole object.
func (s *S3Store) WriteAt(ctx context.Context, path string, data []byte, offset int64) (int, error) {
	p, err := begin(ctx, path)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: p}
	}

	info, err := s.head(ctx, p)
	if err != nil {
		return 0, err
	}

	var existing []byte
	switch info.kind {
	case kindDir:
		return 0, sut.NewError(sut.ErrIsDirectory, p)
	case kindNone:
		if err := s.requireParentDir(ctx, p); err != nil {
			return 0, err
		}
	case kindFile:
		existing, err = s.getAll(ctx, s.fileKey(p), info.size)
		if err != nil {
			return 0, ioError(err, p)
		}
	}

	end := offset + int64(len(data))
	if end > int64(len(existing)) {
		grown := make([]byte, end)
		copy(grown, existing)
		existing = grown
	}
	copy(existing[offset:], data)

	if err := s.put(ctx, s.fileKey(p), existing); err != nil {
		return 0, ioError(err, p)
	}
	return len(data), nil
}

// ReadAt issues a single ranged GET clamped to the object size.
func (s *S3Store) ReadAt(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	p, err := begin(ctx, path)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative offset", Path: p}
	}

	info, err := s.head(ctx, p)
	if err != nil {
		return 0, err
	}
	switch info.kind {
	case kindNone:
		return 0, sut.NewError(sut.ErrNotFound, p)
	case kindDir:
		return 0, sut.NewError(sut.ErrIsDirectory, p)
	}

	if offset >= info.size || len(buf) == 0 {
		return 0, nil
	}
	want := min(int64(len(buf)), info.size-offset)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(p)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+want-1)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, sut.NewError(sut.ErrNotFound, p)
		}
		// The object shrank between HEAD and GET.
		if strings.Contains(err.Error(), "InvalidRange") {
			return 0, nil
		}
		return 0, ioError(fmt.Errorf("failed to read from S3: %w", err), p)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, buf[:want])
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, ioError(fmt.Errorf("failed to read object body: %w", err), p)
	}
	return n, nil
}

// Truncate rewrites the object at the new size.
func (s *S3Store) Truncate(ctx context.Context, path string, size int64) error {
	p, err := begin(ctx, path)
	if err != nil {
		return err
	}
	if size < 0 {
		return &sut.StoreError{Code: sut.ErrInvalidArgument, Message: "negative size", Path: p}
	}

	info, err := s.head(ctx, p)
	if err != nil {
		return err
	}
	switch info.kind {
	case kindNone:
		return sut.NewError(sut.ErrNotFound, p)
	case kindDir:
		return sut.NewError(sut.ErrIsDirectory, p)
	}
	if size == info.size {
		return nil
	}

	var existing []byte
	if size > 0 {
		existing, err = s.getAll(ctx, s.fileKey(p), info.size)
		if err != nil {
			return ioError(err, p)
		}
	}
	resized := make([]byte, size)
	copy(resized, existing)

	if err := s.put(ctx, s.fileKey(p), resized); err != nil {
		return ioError(err, p)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, path string, flags int) (*sut.Handle, error) {
	p, err := begin(ctx, path)
	if err != nil {
		return nil, err
	}

	info, err := s.head(ctx, p)
	if err != nil {
		return nil, err
	}

	action, err := sut.ResolveOpen(p, flags, info.kind != kindNone, info.kind == kindDir)
	if err != nil {
		return nil, err
	}

	if action.Create {
		if err := s.requireParentDir(ctx, p); err != nil {
			return nil, err
		}
	}
	if action.Create || (action.Truncate && info.size > 0) {
		if err := s.put(ctx, s.fileKey(p), nil); err != nil {
			return nil, ioError(err, p)
		}
	}
	return &sut.Handle{Path: p, Flags: flags}, nil
}
