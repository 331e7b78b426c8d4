package scanguard

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/domain"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	creds      CredentialProvider
	httpClient *http.Client
	timeout    time.Duration

	limits      domain.ScanLimits
	marker      string
	offsetUnit  string
	concurrency int

	retryAttempts int
	retryBackoff  time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithDetector sets the detector base URL and a static API key.
// An empty key keeps a provider set by WithCredentialProvider.
func WithDetector(baseURL, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
		if apiKey != "" {
			c.creds = domain.StaticCredential(apiKey)
		}
	})
}

// WithCredentialProvider replaces the static API key with a provider
// that is asked for a token on every scan.
func WithCredentialProvider(p CredentialProvider) Option {
	return optionFunc(func(c *clientConfig) {
		c.creds = p
	})
}

// WithLimits sets the per-document byte limit and the documents-per-call limit.
// Defaults: 1 MiB and 20.
func WithLimits(maxDocumentBytes, maxDocuments int) Option {
	return optionFunc(func(c *clientConfig) {
		c.limits = domain.ScanLimits{
			MaxDocumentBytes: maxDocumentBytes,
			MaxDocuments:     maxDocuments,
		}
	})
}

// WithMarker sets the replacement text for redacted spans. Default: "REDACTED".
func WithMarker(marker string) Option {
	return optionFunc(func(c *clientConfig) {
		c.marker = marker
	})
}

// WithOffsetUnit sets how detector offsets are counted: "byte" (default) or "rune".
func WithOffsetUnit(unit string) Option {
	return optionFunc(func(c *clientConfig) {
		c.offsetUnit = unit
	})
}

// WithHTTPClient sets the HTTP client used for detector calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-call detector timeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithRetry retries rate-limited and 5xx detector calls.
// Attempts counts the first call. Default: no retries.
func WithRetry(attempts int, backoff time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryAttempts = attempts
		c.retryBackoff = backoff
	})
}

// WithConcurrency bounds parallel scans in ScanAll. Default: 8.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithLogger enables structured logging. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
