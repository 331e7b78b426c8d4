package chi

import (
	"github.com/kailas-cloud/scanguard/internal/domain/redaction"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

// ErrorCode is the machine-readable error code of an API error.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeNotFound            ErrorCode = "not_found"
	CodeMethodNotAllowed    ErrorCode = "method_not_allowed"
	CodeObjectNotFound      ErrorCode = "object_not_found"
	CodeObjectTooLarge      ErrorCode = "object_too_large"
	CodePayloadTooLarge     ErrorCode = "payload_too_large"
	CodeModelProviderError  ErrorCode = "model_provider_error"
	CodeNotConfigured       ErrorCode = "not_configured"
	CodeInternalError       ErrorCode = "internal_error"
	CodeTooManyChunks       ErrorCode = "too_many_chunks"
	CodeUnchunkableContent  ErrorCode = "unchunkable_content"
	CodeInvalidDocument     ErrorCode = "invalid_document"
	CodeCredentialMissing   ErrorCode = "credential_unavailable"
	CodeQuotaExceeded       ErrorCode = "quota_exceeded"
	CodeDetectorTransport   ErrorCode = "detector_transport_error"
	CodeDetectorUnavailable ErrorCode = "detector_unavailable"
	CodeScanFailed          ErrorCode = "scan_failed"
)

// ErrorResponse is the body of every error reply and of a degraded outcome's error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ScanRequest is the body of POST /v1/scan.
type ScanRequest struct {
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
	Redact  bool   `json:"redact,omitempty"`
}

// BatchItem is one entry of a batch scan.
type BatchItem struct {
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// BatchScanRequest is the body of POST /v1/scan/batch.
type BatchScanRequest struct {
	Items  []BatchItem `json:"items"`
	Redact bool        `json:"redact,omitempty"`
}

// BatchScanResponse carries outcomes in request order.
type BatchScanResponse struct {
	Items []OutcomeResponse `json:"items"`
}

// ObjectScanRequest is the body of POST /v1/scan/object.
type ObjectScanRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Redact bool   `json:"redact,omitempty"`
}

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /v1/chat/completions.
type ChatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
	Redact   *bool         `json:"redact,omitempty"`
}

// ChatResponse carries the model reply and the scans of both directions.
type ChatResponse struct {
	Message      ChatMessage       `json:"message"`
	PromptScans  []OutcomeResponse `json:"prompt_scans"`
	ResponseScan OutcomeResponse   `json:"response_scan"`
}

// OutcomeResponse is the wire form of a pipeline outcome. Matched text is never returned.
type OutcomeResponse struct {
	ScanID       string                `json:"scan_id"`
	Name         string                `json:"name,omitempty"`
	Content      string                `json:"content"`
	Detected     bool                  `json:"detected"`
	Degraded     bool                  `json:"degraded"`
	Error        *ErrorResponse        `json:"error,omitempty"`
	PolicyBreaks []PolicyBreakResponse `json:"policy_breaks"`
	Redactions   []RedactionResponse   `json:"redactions"`
}

// PolicyBreakResponse is one detector finding.
type PolicyBreakResponse struct {
	Policy   string          `json:"policy"`
	Kind     string          `json:"kind"`
	Validity string          `json:"validity,omitempty"`
	Matches  []MatchResponse `json:"matches"`
}

// MatchResponse locates a finding; End is inclusive, -1 when unreported.
type MatchResponse struct {
	Kind  string `json:"kind"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// RedactionResponse records one applied replacement as byte offsets into the submitted
// content, End exclusive. Document names the detector document that reported it.
type RedactionResponse struct {
	Document string `json:"document"`
	Kind     string `json:"kind"`
	Policy   string `json:"policy"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func outcomeToResponse(o pipeline.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		ScanID:       o.ScanID.String(),
		Name:         o.Name,
		Content:      o.Content,
		Detected:     o.Detected(),
		Degraded:     o.Degraded(),
		PolicyBreaks: []PolicyBreakResponse{},
		Redactions:   make([]RedactionResponse, 0, len(o.Redactions)),
	}
	if o.Err != nil {
		resp.Error = &ErrorResponse{Code: degradedCode(o.Err), Message: safeDomainMessage(o.Err)}
	}
	if o.Result != nil {
		resp.PolicyBreaks = policyBreaksToResponse(*o.Result)
	}
	for _, r := range o.Redactions {
		resp.Redactions = append(resp.Redactions, redactionToResponse(r))
	}
	return resp
}

func outcomesToResponse(outs []pipeline.Outcome) []OutcomeResponse {
	items := make([]OutcomeResponse, len(outs))
	for i, o := range outs {
		items[i] = outcomeToResponse(o)
	}
	return items
}

func policyBreaksToResponse(r domscan.Result) []PolicyBreakResponse {
	out := make([]PolicyBreakResponse, len(r.PolicyBreaks))
	for i, pb := range r.PolicyBreaks {
		matches := make([]MatchResponse, len(pb.Matches))
		for j, m := range pb.Matches {
			matches[j] = MatchResponse{Kind: m.Kind, Start: m.Start, End: m.End}
		}
		out[i] = PolicyBreakResponse{
			Policy:   pb.Policy,
			Kind:     pb.Kind,
			Validity: pb.Validity,
			Matches:  matches,
		}
	}
	return out
}

func redactionToResponse(r redaction.Redaction) RedactionResponse {
	return RedactionResponse{
		Document: r.Document,
		Kind:     r.Kind,
		Policy:   r.Policy,
		Start:    r.Start,
		End:      r.End,
	}
}
