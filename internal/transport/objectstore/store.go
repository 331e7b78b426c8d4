// Package objectstore fetches scan input from S3-compatible storage.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kailas-cloud/scanguard/internal/domain"
)

// DefaultMaxObjectBytes applies when Config.MaxObjectBytes is zero.
const DefaultMaxObjectBytes = 8 << 20

// Config holds the S3 connection settings.
type Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	MaxObjectBytes int64
	Transport      http.RoundTripper
}

// Store reads objects through minio.
type Store struct {
	client   *minio.Client
	maxBytes int64
}

// New creates an object store client.
func New(cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("object store endpoint is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	maxBytes := cfg.MaxObjectBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &Store{client: client, maxBytes: maxBytes}, nil
}

// MaxObjectBytes returns the fetch limit.
func (s *Store) MaxObjectBytes() int64 { return s.maxBytes }

// Fetch returns the object body as text.
// Missing objects yield domain.ErrObjectNotFound, oversized ones domain.ErrObjectTooLarge.
func (s *Store) Fetch(ctx context.Context, bucket, key string) (string, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", classify(bucket, key, err)
	}
	if info.Size > s.maxBytes {
		return "", fmt.Errorf("%s/%s is %d bytes, limit %d: %w", bucket, key, info.Size, s.maxBytes, domain.ErrObjectTooLarge)
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", classify(bucket, key, err)
	}
	defer func() { _ = obj.Close() }()

	// The object may have grown since the stat.
	data, err := io.ReadAll(io.LimitReader(obj, s.maxBytes+1))
	if err != nil {
		return "", classify(bucket, key, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%s/%s exceeds %d bytes: %w", bucket, key, s.maxBytes, domain.ErrObjectTooLarge)
	}
	return string(data), nil
}

// HealthCheck verifies the endpoint answers.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	return nil
}

func classify(bucket, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%s/%s: %w", bucket, key, domain.ErrObjectNotFound)
	}
	return fmt.Errorf("fetch %s/%s: %w", bucket, key, err)
}
