// Package object scans content stored in an object store.
package object

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

// ErrInvalidLocation signals an empty bucket or key.
var ErrInvalidLocation = errors.New("bucket and key are required")

// Service fetches an object and runs it through the pipeline.
type Service struct {
	fetcher   Fetcher
	processor Processor
}

// New creates an object scan service. A nil fetcher leaves object scans unconfigured.
func New(fetcher Fetcher, processor Processor) *Service {
	return &Service{fetcher: fetcher, processor: processor}
}

// Scan fetches bucket/key and scans its content under the key's name.
// Fetch errors are returned; scan failures come back as a degraded Outcome.
func (s *Service) Scan(
	ctx context.Context, bucket, key string, creds domain.CredentialProvider, opts pipeline.Options,
) (pipeline.Outcome, error) {
	if s.fetcher == nil {
		return pipeline.Outcome{}, fmt.Errorf("object store: %w", domain.ErrNotConfigured)
	}
	bucket = strings.TrimSpace(bucket)
	key = strings.TrimSpace(key)
	if bucket == "" || key == "" {
		return pipeline.Outcome{}, ErrInvalidLocation
	}

	content, err := s.fetcher.Fetch(ctx, bucket, key)
	if err != nil {
		return pipeline.Outcome{}, fmt.Errorf("fetch object: %w", err)
	}
	return s.processor.Process(ctx, content, key, creds, opts), nil
}
