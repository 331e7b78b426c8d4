package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/scanguard/internal/domain"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
)

func mustDoc(t *testing.T, name, body string) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(name, body, 0)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return d
}

func TestScan_SendsDocumentsAndParsesResults(t *testing.T) {
	var gotAuth string
	var gotBody []scanDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/multiscan" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"policy_break_count": 1, "policies": ["Secrets detection"], "policy_breaks": [
				{"type": "GitHub Token", "policy": "Secrets detection", "validity": "valid", "matches": [
					{"type": "apikey", "match": "ghp_x", "index_start": 13, "index_end": 52, "line_start": 1, "line_end": 1}
				]}
			]},
			{"policy_break_count": 0, "policies": [], "policy_breaks": []}
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	results, err := c.Scan(context.Background(), "tok", []domdoc.Document{
		mustDoc(t, "a.txt", "first"),
		mustDoc(t, "b.txt", "second"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotBody) != 2 || gotBody[0].Filename != "a.txt" || gotBody[1].Document != "second" {
		t.Errorf("unexpected request body %+v", gotBody)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[1].Empty() {
		t.Errorf("second result should be clean")
	}
	pb := results[0].PolicyBreaks[0]
	if pb.Kind != "GitHub Token" || pb.Policy != "Secrets detection" || pb.Validity != "valid" {
		t.Errorf("unexpected policy break %+v", pb)
	}
	m := pb.Matches[0]
	want := domscan.Match{Start: 13, End: 52, Kind: "apikey", Policy: "Secrets detection", Snippet: "ghp_x"}
	if m != want {
		t.Errorf("match = %+v, want %+v", m, want)
	}
}

func TestScan_MissingOffsets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"policy_breaks": [{"type": "x", "policy": "p", "matches": [{"type": "t", "match": "m"}]}]}]`))
	}))
	defer srv.Close()

	results, err := NewClient(Config{BaseURL: srv.URL}).Scan(context.Background(), "tok",
		[]domdoc.Document{mustDoc(t, "a", "b")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := results[0].PolicyBreaks[0].Matches[0]
	if m.Start != domscan.NoOffset || m.End != domscan.NoOffset || m.HasSpan() {
		t.Errorf("expected missing offsets, got %+v", m)
	}
}

func TestScan_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		body      string
		retryable bool
		wantBody  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Invalid API key."}`, false, "Invalid API key."},
		{"rate limited", http.StatusTooManyRequests, "slow down", true, "slow down"},
		{"server error", http.StatusBadGateway, "", true, ""},
		{"bad request", http.StatusBadRequest, `{"detail":"too many documents"}`, false, "too many documents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Config{BaseURL: srv.URL}).Scan(context.Background(), "tok",
				[]domdoc.Document{mustDoc(t, "a", "b")})
			if !errors.Is(err, domain.ErrDetectorUnavailable) {
				t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
			}
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StatusError, got %T", err)
			}
			if se.Code != tt.code || se.Body != tt.wantBody || se.Retryable() != tt.retryable {
				t.Errorf("unexpected status error %+v (retryable=%v)", se, se.Retryable())
			}
		})
	}
}

func TestScan_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Scan(context.Background(), "tok",
		[]domdoc.Document{mustDoc(t, "a", "b")})
	if !errors.Is(err, domain.ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
	}
}

func TestScan_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}).Scan(
		context.Background(), "tok", []domdoc.Document{mustDoc(t, "a", "b")})
	if !errors.Is(err, domain.ErrDetectorTransport) {
		t.Fatalf("expected ErrDetectorTransport, got %v", err)
	}
}

func TestScan_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: url}).Scan(context.Background(), "tok",
		[]domdoc.Document{mustDoc(t, "a", "b")})
	if !errors.Is(err, domain.ErrDetectorTransport) {
		t.Fatalf("expected ErrDetectorTransport, got %v", err)
	}
}

func TestScan_CancelledContextNotTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Config{BaseURL: srv.URL}).Scan(ctx, "tok", []domdoc.Document{mustDoc(t, "a", "b")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrDetectorTransport) {
		t.Error("cancellation must not look like a transport failure")
	}
}

func TestHealthCheck(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"detail":"Valid API key."}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unhealthy.Store(true)
	if err := c.HealthCheck(context.Background()); !errors.Is(err, domain.ErrDetectorUnavailable) {
		t.Fatalf("expected ErrDetectorUnavailable, got %v", err)
	}
}
