// Package pipeline sequences document building, scanning and redaction for one
// unit of content, and degrades to unscanned content when any step fails.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/domain/chunk"
	"github.com/kailas-cloud/scanguard/internal/domain/redaction"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
	"github.com/kailas-cloud/scanguard/internal/metrics"
)

// DefaultConcurrency bounds parallel Process calls in ProcessAll.
const DefaultConcurrency = 8

// Options controls a single Process call.
type Options struct {
	// Redact rewrites detected spans; otherwise content is returned untouched with the scan result.
	Redact bool
}

// Item is one unit of content for ProcessAll.
type Item struct {
	Content string
	Name    string
}

// Outcome is the terminal result for one unit of content.
// Err is set when the content could not be scanned; Content is then the original.
type Outcome struct {
	ScanID     uuid.UUID
	Name       string
	Content    string
	Redactions []redaction.Redaction
	Result     *domscan.Result
	Err        error
}

// Degraded reports whether the content went through unscanned.
func (o Outcome) Degraded() bool { return o.Err != nil }

// Detected reports whether the detector found at least one policy break.
func (o Outcome) Detected() bool { return o.Result != nil && !o.Result.Empty() }

// Service is the pipeline coordinator.
type Service struct {
	builder     DocumentBuilder
	scanner     Scanner
	redactor    Redactor
	concurrency int
	logger      *zap.Logger
}

// New creates a pipeline service.
func New(builder DocumentBuilder, scanner Scanner, redactor Redactor, logger *zap.Logger) *Service {
	return &Service{
		builder:     builder,
		scanner:     scanner,
		redactor:    redactor,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
}

// WithConcurrency sets the ProcessAll fan-out limit.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Process scans content and, when opts.Redact is set, redacts every detected span.
// It never fails: builder and scanner errors yield an Outcome with the original
// content and Err set.
func (s *Service) Process(
	ctx context.Context, content, name string, creds domain.CredentialProvider, opts Options,
) Outcome {
	start := time.Now()
	out := Outcome{ScanID: uuid.New(), Name: name, Content: content}

	if content == "" {
		out.Result = &domscan.Result{}
		s.audit(out, 0, time.Since(start))
		return out
	}

	docs, chunks, err := s.builder.BuildChunks(content, name)
	if err != nil {
		return s.degrade(out, err, time.Since(start))
	}

	results, err := s.scanner.Scan(ctx, docs, creds)
	if err != nil {
		return s.degrade(out, err, time.Since(start))
	}

	agg := s.scanner.Aggregate(results)
	out.Result = &agg

	if opts.Redact && !agg.Empty() {
		if chunks == nil {
			out.Content, out.Redactions = s.redactor.Redact(content, results[0])
		} else {
			out.Content, out.Redactions = s.redactChunks(out.ScanID, content, chunks, results)
		}
	}

	s.audit(out, len(docs), time.Since(start))
	return out
}

// ProcessAll runs Process for every item concurrently and returns outcomes in input order.
func (s *Service) ProcessAll(
	ctx context.Context, items []Item, creds domain.CredentialProvider, opts Options,
) []Outcome {
	out := make([]Outcome, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, it := range items {
		g.Go(func() error {
			out[i] = s.Process(ctx, it.Content, it.Name, creds, opts)
			return nil
		})
	}
	_ = g.Wait() // Process never fails

	return out
}

// redactChunks maps every chunk's matches back onto content and redacts them in place.
// If the result no longer parses, every detected original is replaced literally instead.
func (s *Service) redactChunks(
	scanID uuid.UUID, content string, chunks []chunk.Chunk, results []domscan.Result,
) (string, []redaction.Redaction) {
	redacted, reds := s.redactor.RedactChunks(content, chunks, results)
	if len(reds) == 0 {
		return content, nil
	}
	if json.Valid([]byte(redacted)) {
		return redacted, reds
	}

	s.logger.Warn("Redacted content is not valid JSON, replacing originals literally",
		zap.String("scan_id", scanID.String()),
		zap.Int("chunks", len(chunks)),
	)
	originals := make([]string, len(reds))
	for i, r := range reds {
		originals[i] = r.Original
	}
	return s.redactor.RedactLiteral(content, originals), reds
}

func (s *Service) degrade(out Outcome, err error, elapsed time.Duration) Outcome {
	out.Err = err
	out.Redactions = nil
	out.Result = nil

	metrics.ScanOutcomesTotal.WithLabelValues("degraded").Inc()
	s.logger.Warn("scan_degraded",
		zap.String("scan_id", out.ScanID.String()),
		zap.String("name", out.Name),
		zap.Int("content_bytes", len(out.Content)),
		zap.String("reason", degradeReason(err)),
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)
	return out
}

// audit emits the canonical scan line. Matched text is never logged.
func (s *Service) audit(out Outcome, documents int, elapsed time.Duration) {
	result := "clean"
	if out.Detected() {
		result = "detected"
	}
	metrics.ScanOutcomesTotal.WithLabelValues(result).Inc()
	metrics.RedactionsTotal.Add(float64(len(out.Redactions)))

	breaks := 0
	var policies []string
	if out.Result != nil {
		breaks = len(out.Result.PolicyBreaks)
		policies = out.Result.Policies()
	}
	s.logger.Info("scan_completed",
		zap.String("scan_id", out.ScanID.String()),
		zap.String("name", out.Name),
		zap.Int("content_bytes", len(out.Content)),
		zap.Int("documents", documents),
		zap.Int("policy_breaks", breaks),
		zap.Strings("policies", policies),
		zap.Int("redactions", len(out.Redactions)),
		zap.Duration("duration", elapsed),
	)
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTooManyChunks):
		return "too_many_chunks"
	case errors.Is(err, domain.ErrUnsupportedRoot), errors.Is(err, domain.ErrMalformedJSON):
		return "unchunkable_content"
	case errors.Is(err, domain.ErrInvalidDocument), errors.Is(err, domain.ErrDocumentTooLarge):
		return "invalid_document"
	case errors.Is(err, domain.ErrCredentialUnavailable):
		return "credential_unavailable"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrDetectorTransport):
		return "detector_transport"
	case errors.Is(err, domain.ErrDetectorUnavailable):
		return "detector_unavailable"
	default:
		return "error"
	}
}
