// Package chi serves the scanguard HTTP API on a go-chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/domain"
	domchat "github.com/kailas-cloud/scanguard/internal/domain/chat"
	"github.com/kailas-cloud/scanguard/internal/logger"
	chatuc "github.com/kailas-cloud/scanguard/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/scanguard/internal/usecase/health"
	objectuc "github.com/kailas-cloud/scanguard/internal/usecase/object"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

const (
	// DefaultMaxBatchItems bounds POST /v1/scan/batch.
	DefaultMaxBatchItems = 100
	// DefaultMaxBodyBytes bounds every request body.
	DefaultMaxBodyBytes = 16 << 20

	// DetectorTokenHeader lets a caller supply its own detector token for one request.
	DetectorTokenHeader = "X-Detector-Token"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	pipeline      Pipeline
	objects       ObjectScanner
	chat          ChatGateway
	health        HealthReporter
	creds         domain.CredentialProvider
	logger        *zap.Logger
	maxBatchItems int
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. objects and chat may be nil when not configured.
func NewServer(
	p Pipeline,
	objects ObjectScanner,
	chat ChatGateway,
	health HealthReporter,
	creds domain.CredentialProvider,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline:      p,
		objects:       objects,
		chat:          chat,
		health:        health,
		creds:         creds,
		logger:        logger,
		maxBatchItems: DefaultMaxBatchItems,
		maxBodyBytes:  DefaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(objectuc.ErrInvalidLocation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(chatuc.ErrNoMessages, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrObjectNotFound, http.StatusNotFound, CodeObjectNotFound),
		sentinelHandler(domain.ErrObjectTooLarge, http.StatusRequestEntityTooLarge, CodeObjectTooLarge),
		sentinelHandler(domain.ErrModelProvider, http.StatusBadGateway, CodeModelProviderError),
		sentinelHandler(domain.ErrNotConfigured, http.StatusNotImplemented, CodeNotConfigured),
	}
	return s
}

// WithMaxBatchItems sets the batch size limit.
func (s *Server) WithMaxBatchItems(n int) *Server {
	if n > 0 {
		s.maxBatchItems = n
	}
	return s
}

// WithMaxBodyBytes sets the request body limit.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Routes registers every handler on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/scan", s.Scan)
	r.Post("/v1/scan/batch", s.ScanBatch)
	r.Post("/v1/scan/object", s.ScanObject)
	r.Post("/v1/chat/completions", s.ChatCompletions)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})
}

// Scan handles POST /v1/scan. Degraded outcomes are still 200.
func (s *Server) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !s.decode(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "content"
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out := s.pipeline.Process(ctx, req.Content, name, s.credentials(r), pipeline.Options{Redact: req.Redact})

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, outcomeToResponse(out))
}

// ScanBatch handles POST /v1/scan/batch.
func (s *Server) ScanBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchScanRequest
	if !s.decode(w, r, &req) {
		return
	}

	if len(req.Items) == 0 || len(req.Items) > s.maxBatchItems {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("items count must be between 1 and %d", s.maxBatchItems))
		return
	}

	items := make([]pipeline.Item, len(req.Items))
	for i, it := range req.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = "item_" + strconv.Itoa(i)
		}
		items[i] = pipeline.Item{Content: it.Content, Name: name}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	outs := s.pipeline.ProcessAll(ctx, items, s.credentials(r), pipeline.Options{Redact: req.Redact})

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, BatchScanResponse{Items: outcomesToResponse(outs)})
}

// ScanObject handles POST /v1/scan/object.
func (s *Server) ScanObject(w http.ResponseWriter, r *http.Request) {
	if s.objects == nil {
		s.handleDomainError(w, r, fmt.Errorf("object store: %w", domain.ErrNotConfigured))
		return
	}

	var req ObjectScanRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.objects.Scan(ctx, req.Bucket, req.Key, s.credentials(r), pipeline.Options{Redact: req.Redact})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, outcomeToResponse(out))
}

// ChatCompletions handles POST /v1/chat/completions. Redaction is on unless the
// request turns it off.
func (s *Server) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		s.handleDomainError(w, r, fmt.Errorf("chat model: %w", domain.ErrNotConfigured))
		return
	}

	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}

	msgs := make([]domchat.Message, len(req.Messages))
	for i, m := range req.Messages {
		if !domchat.ValidRole(m.Role) {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				fmt.Sprintf("messages[%d]: unsupported role %q", i, m.Role))
			return
		}
		msgs[i] = domchat.Message{Role: m.Role, Content: m.Content}
	}

	redact := true
	if req.Redact != nil {
		redact = *req.Redact
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.chat.Complete(ctx, chatuc.Request{Model: req.Model, Messages: msgs, Redact: redact}, s.credentials(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, ChatResponse{
		Message:      ChatMessage{Role: resp.Message.Role, Content: resp.Message.Content},
		PromptScans:  outcomesToResponse(resp.PromptScans),
		ResponseScan: outcomeToResponse(resp.ResponseScan),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// credentials prefers a caller-supplied detector token over the configured provider.
func (s *Server) credentials(r *http.Request) domain.CredentialProvider {
	tok := strings.TrimSpace(r.Header.Get(DetectorTokenHeader))
	if tok == "" {
		return s.creds
	}
	return domain.StaticCredential(tok)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.ScanUsage) {
	calls, documents, cached := usage.Snapshot()
	w.Header().Set("X-Detector-Calls", strconv.Itoa(calls))
	w.Header().Set("X-Detector-Documents", strconv.Itoa(documents))
	if cached > 0 {
		w.Header().Set("X-Detector-Cached-Documents", strconv.Itoa(cached))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		objectuc.ErrInvalidLocation,
		chatuc.ErrNoMessages,
		domain.ErrUnsupportedRoot,
		domain.ErrUnsupportedChunkContent,
		domain.ErrMalformedJSON,
		domain.ErrChunkMismatch,
		domain.ErrTooManyChunks,
		domain.ErrDocumentTooLarge,
		domain.ErrInvalidDocument,
		domain.ErrQuotaExceeded,
		domain.ErrCredentialUnavailable,
		domain.ErrDetectorTransport,
		domain.ErrDetectorUnavailable,
		domain.ErrModelProvider,
		domain.ErrObjectNotFound,
		domain.ErrObjectTooLarge,
		domain.ErrNotConfigured,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// degradedCode classifies why an outcome went through unscanned.
func degradedCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrTooManyChunks):
		return CodeTooManyChunks
	case errors.Is(err, domain.ErrUnsupportedRoot), errors.Is(err, domain.ErrMalformedJSON),
		errors.Is(err, domain.ErrUnsupportedChunkContent), errors.Is(err, domain.ErrChunkMismatch):
		return CodeUnchunkableContent
	case errors.Is(err, domain.ErrInvalidDocument), errors.Is(err, domain.ErrDocumentTooLarge):
		return CodeInvalidDocument
	case errors.Is(err, domain.ErrCredentialUnavailable):
		return CodeCredentialMissing
	case errors.Is(err, domain.ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, domain.ErrDetectorTransport):
		return CodeDetectorTransport
	case errors.Is(err, domain.ErrDetectorUnavailable):
		return CodeDetectorUnavailable
	default:
		return CodeScanFailed
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
