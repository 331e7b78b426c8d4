package scan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/domain"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
	"github.com/kailas-cloud/scanguard/internal/metrics"
)

// RetryPolicy configures RetryingDetector. Attempts <= 1 disables retries.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// retryable is implemented by detector errors that know whether a repeat can succeed.
type retryable interface {
	Retryable() bool
}

// RetryingDetector repeats transient detector failures with linear backoff.
// Transport errors and errors reporting Retryable() are repeated; everything
// else, including auth failures, is returned on the first attempt.
type RetryingDetector struct {
	inner  domscan.Detector
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetryingDetector wraps a detector with a retry policy.
func NewRetryingDetector(inner domscan.Detector, policy RetryPolicy, logger *zap.Logger) *RetryingDetector {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &RetryingDetector{inner: inner, policy: policy, logger: logger}
}

// Scan calls the inner detector up to Attempts times.
func (d *RetryingDetector) Scan(
	ctx context.Context, token string, docs []domdoc.Document,
) ([]domscan.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= d.policy.Attempts; attempt++ {
		results, err := d.inner.Scan(ctx, token, docs)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if attempt == d.policy.Attempts || !shouldRetry(err) {
			break
		}

		metrics.DetectorRetriesTotal.Inc()
		d.logger.Info("Retrying detector request",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.policy.Attempts),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(d.policy.Backoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return errors.Is(err, domain.ErrDetectorTransport)
}
