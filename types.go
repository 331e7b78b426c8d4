package scanguard

import (
	"context"

	"github.com/kailas-cloud/scanguard/internal/domain/redaction"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

// NoOffset marks a match offset the detector did not report.
const NoOffset = domscan.NoOffset

// CredentialProvider supplies the detector bearer token.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// ScanOptions controls a single scan.
type ScanOptions struct {
	// Redact replaces detected spans in Outcome.Content.
	Redact bool
}

// Item is one unit of content for ScanAll.
type Item struct {
	Content string
	Name    string
}

// Match locates one flagged span in a scanned document.
// End is inclusive; both offsets are NoOffset when the detector did not report them.
type Match struct {
	Kind   string `json:"kind"`
	Policy string `json:"policy"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// PolicyBreak is one detector finding.
type PolicyBreak struct {
	Policy   string  `json:"policy"`
	Kind     string  `json:"kind"`
	Validity string  `json:"validity,omitempty"`
	Matches  []Match `json:"matches"`
}

// Redaction records one applied replacement as byte offsets into the
// unmodified content, End exclusive. The replaced text is never exposed.
type Redaction struct {
	Document string `json:"document"`
	Kind     string `json:"kind"`
	Policy   string `json:"policy"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Outcome is the result of scanning one unit of content.
// When Err is set the content went through unscanned and Content is the original.
type Outcome struct {
	ScanID       string        `json:"scan_id"`
	Name         string        `json:"name,omitempty"`
	Content      string        `json:"content"`
	PolicyBreaks []PolicyBreak `json:"policy_breaks"`
	Redactions   []Redaction   `json:"redactions"`
	Err          error         `json:"-"`
}

// Detected reports whether at least one policy break was found.
func (o Outcome) Detected() bool { return len(o.PolicyBreaks) > 0 }

// Degraded reports whether the content could not be scanned.
func (o Outcome) Degraded() bool { return o.Err != nil }

func toOutcome(o pipeline.Outcome) Outcome {
	out := Outcome{
		ScanID:       o.ScanID.String(),
		Name:         o.Name,
		Content:      o.Content,
		PolicyBreaks: []PolicyBreak{},
		Redactions:   make([]Redaction, 0, len(o.Redactions)),
		Err:          o.Err,
	}
	if o.Result != nil {
		for _, pb := range o.Result.PolicyBreaks {
			out.PolicyBreaks = append(out.PolicyBreaks, toPolicyBreak(pb))
		}
	}
	for _, r := range o.Redactions {
		out.Redactions = append(out.Redactions, toRedaction(r))
	}
	return out
}

func toPolicyBreak(pb domscan.PolicyBreak) PolicyBreak {
	matches := make([]Match, len(pb.Matches))
	for i, m := range pb.Matches {
		matches[i] = Match{Kind: m.Kind, Policy: m.Policy, Start: m.Start, End: m.End}
	}
	return PolicyBreak{
		Policy:   pb.Policy,
		Kind:     pb.Kind,
		Validity: pb.Validity,
		Matches:  matches,
	}
}

func toRedaction(r redaction.Redaction) Redaction {
	return Redaction{
		Document: r.Document,
		Kind:     r.Kind,
		Policy:   r.Policy,
		Start:    r.Start,
		End:      r.End,
	}
}
