package scanguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/domain/redaction"
	"github.com/kailas-cloud/scanguard/internal/transport/detector"
	documentuc "github.com/kailas-cloud/scanguard/internal/usecase/document"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
	scanuc "github.com/kailas-cloud/scanguard/internal/usecase/scan"
)

// defaultName names content scanned without a name.
const defaultName = "content"

// Internal interfaces for substitution in tests.
type pipelineRunner interface {
	Process(ctx context.Context, content, name string, creds domain.CredentialProvider, opts pipeline.Options) pipeline.Outcome
	ProcessAll(ctx context.Context, items []pipeline.Item, creds domain.CredentialProvider, opts pipeline.Options) []pipeline.Outcome
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Client is the scanguard library entry point. It is safe for concurrent use.
type Client struct {
	pipe     pipelineRunner
	creds    domain.CredentialProvider
	detector healthChecker
	obs      *observer
}

// New creates a Client. WithDetector (or WithCredentialProvider plus a base URL) is required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		limits:        domain.DefaultScanLimits(),
		retryAttempts: 1,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" {
		return nil, errors.New("scanguard: detector base url required (use WithDetector)")
	}
	if cfg.creds == nil {
		return nil, errors.New("scanguard: detector credentials required (use WithDetector or WithCredentialProvider)")
	}
	if cfg.limits.MaxDocumentBytes <= 0 || cfg.limits.MaxDocuments <= 0 {
		return nil, fmt.Errorf("scanguard: invalid limits %d bytes / %d documents",
			cfg.limits.MaxDocumentBytes, cfg.limits.MaxDocuments)
	}
	unit, err := redaction.ParseUnit(cfg.offsetUnit)
	if err != nil {
		return nil, fmt.Errorf("scanguard: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	client := detector.NewClient(detector.Config{
		BaseURL:    cfg.baseURL,
		Timeout:    cfg.timeout,
		HTTPClient: cfg.httpClient,
	})
	det := scanuc.NewRetryingDetector(client, scanuc.RetryPolicy{
		Attempts: cfg.retryAttempts,
		Backoff:  cfg.retryBackoff,
	}, obs.logger)

	pipe := pipeline.New(
		documentuc.NewBuilder(cfg.limits),
		scanuc.New(det),
		redaction.Engine{Marker: cfg.marker, Unit: unit},
		obs.logger,
	).WithConcurrency(cfg.concurrency)

	return &Client{
		pipe:     pipe,
		creds:    cfg.creds,
		detector: client,
		obs:      obs,
	}, nil
}

// Scan scans content and, with opts.Redact, replaces every detected span.
// An empty name becomes "content".
// It never fails: a scan error is reported in Outcome.Err with the content untouched.
func (c *Client) Scan(ctx context.Context, content, name string, opts ScanOptions) Outcome {
	start := time.Now()
	if name == "" {
		name = defaultName
	}
	out := toOutcome(c.pipe.Process(ctx, content, name, c.creds, pipeline.Options{Redact: opts.Redact}))
	c.obs.observe("scan", start, out)
	return out
}

// ScanAll scans every item concurrently and returns outcomes in input order.
// Unnamed items are named "item_{index}".
func (c *Client) ScanAll(ctx context.Context, items []Item, opts ScanOptions) []Outcome {
	start := time.Now()
	in := make([]pipeline.Item, len(items))
	for i, it := range items {
		name := it.Name
		if name == "" {
			name = fmt.Sprintf("item_%d", i)
		}
		in[i] = pipeline.Item{Content: it.Content, Name: name}
	}

	outs := c.pipe.ProcessAll(ctx, in, c.creds, pipeline.Options{Redact: opts.Redact})
	result := make([]Outcome, len(outs))
	for i, o := range outs {
		result[i] = toOutcome(o)
		c.obs.observe("scan_all", start, result[i])
	}
	return result
}

// Ping checks that the detector is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.detector.HealthCheck(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
