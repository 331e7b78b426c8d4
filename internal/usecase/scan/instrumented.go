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

// InstrumentedDetector wraps a Detector with logging, metrics and per-request usage.
// It sits directly above the network client, so cache hits are not counted as calls.
type InstrumentedDetector struct {
	inner  domscan.Detector
	logger *zap.Logger
}

// NewInstrumentedDetector wraps a detector with observability.
func NewInstrumentedDetector(inner domscan.Detector, logger *zap.Logger) *InstrumentedDetector {
	return &InstrumentedDetector{inner: inner, logger: logger}
}

// Scan delegates to the inner detector and records the call.
func (d *InstrumentedDetector) Scan(
	ctx context.Context, token string, docs []domdoc.Document,
) ([]domscan.Result, error) {
	start := time.Now()
	results, err := d.inner.Scan(ctx, token, docs)
	duration := time.Since(start)

	status := callStatus(err)
	metrics.DetectorRequestsTotal.WithLabelValues(status).Inc()
	metrics.DetectorRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
	metrics.DetectorDocumentsTotal.Add(float64(len(docs)))
	domain.UsageFromContext(ctx).AddCall(len(docs))

	if err != nil {
		d.logger.Warn("Detector request failed",
			zap.Int("documents", len(docs)),
			zap.Duration("duration", duration),
			zap.String("status", status),
			zap.Error(err),
		)
		return nil, err //nolint:wrapcheck // decorator keeps the inner error chain intact
	}

	breaks := 0
	for _, r := range results {
		for _, pb := range r.PolicyBreaks {
			metrics.PolicyBreaksTotal.WithLabelValues(pb.Kind).Inc()
			breaks++
		}
	}

	d.logger.Debug("Detector request completed",
		zap.Int("documents", len(docs)),
		zap.Duration("duration", duration),
		zap.Int("policy_breaks", breaks),
	)
	return results, nil
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrDetectorTransport):
		return "transport_error"
	case errors.Is(err, domain.ErrDetectorUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
