// Package detector is the HTTP client for a multiscan-compatible secret detection service.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/scanguard/internal/domain"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
)

const (
	multiscanPath = "/v1/multiscan"
	healthPath    = "/v1/health"

	// DefaultTimeout applies when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4 << 10
)

// Config holds detector client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
}

// Client talks to the detector over HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// NewClient creates a detector client. A custom HTTPClient keeps its own timeout.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "scanguard"
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      hc,
		userAgent: ua,
	}
}

// StatusError is a non-2xx detector response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("detector returned %d", e.Code)
	}
	return fmt.Sprintf("detector returned %d: %s", e.Code, e.Body)
}

// Unwrap classifies every status failure as domain.ErrDetectorUnavailable.
func (e *StatusError) Unwrap() error { return domain.ErrDetectorUnavailable }

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

type scanDocument struct {
	Filename string `json:"filename,omitempty"`
	Document string `json:"document"`
}

type scanResult struct {
	PolicyBreakCount int           `json:"policy_break_count"`
	Policies         []string      `json:"policies"`
	PolicyBreaks     []policyBreak `json:"policy_breaks"`
}

type policyBreak struct {
	Type     string  `json:"type"`
	Policy   string  `json:"policy"`
	Validity string  `json:"validity,omitempty"`
	Matches  []match `json:"matches"`
}

type match struct {
	Type       string `json:"type"`
	Match      string `json:"match"`
	IndexStart *int   `json:"index_start"`
	IndexEnd   *int   `json:"index_end"`
	LineStart  *int   `json:"line_start,omitempty"`
	LineEnd    *int   `json:"line_end,omitempty"`
}

// Scan implements scan.Detector with one multiscan request for all documents.
func (c *Client) Scan(ctx context.Context, token string, docs []domdoc.Document) ([]domscan.Result, error) {
	payload := make([]scanDocument, len(docs))
	for i, d := range docs {
		payload[i] = scanDocument{Filename: d.Name(), Document: d.Body()}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal multiscan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+multiscanPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build multiscan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError("multiscan", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var raw []scanResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		if ctx.Err() != nil {
			return nil, transportError("read multiscan response", err)
		}
		return nil, fmt.Errorf("decode multiscan response: %w: %w", err, domain.ErrDetectorUnavailable)
	}

	out := make([]domscan.Result, len(raw))
	for i, r := range raw {
		out[i] = toResult(r)
	}
	return out, nil
}

// HealthCheck verifies the detector answers its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError("health", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func toResult(r scanResult) domscan.Result {
	breaks := make([]domscan.PolicyBreak, 0, len(r.PolicyBreaks))
	for _, pb := range r.PolicyBreaks {
		matches := make([]domscan.Match, len(pb.Matches))
		for j, m := range pb.Matches {
			matches[j] = domscan.Match{
				Start:   offset(m.IndexStart),
				End:     offset(m.IndexEnd),
				Kind:    m.Type,
				Policy:  pb.Policy,
				Snippet: m.Match,
			}
		}
		breaks = append(breaks, domscan.PolicyBreak{
			Policy:   pb.Policy,
			Kind:     pb.Type,
			Validity: pb.Validity,
			Matches:  matches,
		})
	}
	return domscan.Result{PolicyBreaks: breaks}
}

func offset(v *int) int {
	if v == nil {
		return domscan.NoOffset
	}
	return *v
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: extractDetail(b)}
}

// extractDetail prefers the "detail" field of a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return strings.TrimSpace(string(body))
}

func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, err, domain.ErrDetectorTransport)
}
