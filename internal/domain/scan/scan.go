// Package scan holds detector findings: matches, policy breaks and per-document results.
package scan

// NoOffset marks a match offset the detector did not report.
const NoOffset = -1

// Match is one span flagged by a policy break.
// Start and End are offsets into the scanned document; End is inclusive.
type Match struct {
	Start   int
	End     int
	Kind    string
	Policy  string
	Snippet string
}

// HasSpan reports whether both offsets are present and ordered.
func (m Match) HasSpan() bool {
	return m.Start >= 0 && m.End >= m.Start
}

// Span returns half-open slice bounds [start, end) covering the flagged text.
func (m Match) Span() (start, end int) {
	return m.Start, m.End + 1
}

// PolicyBreak is the result of one detection rule.
type PolicyBreak struct {
	Policy   string
	Kind     string
	Validity string
	Matches  []Match
}

// Result is the detector's answer for one document.
// Document is empty for an aggregated result.
type Result struct {
	Document     string
	PolicyBreaks []PolicyBreak
}

// Empty reports whether no policy break was found.
func (r Result) Empty() bool { return len(r.PolicyBreaks) == 0 }

// MatchCount returns the total number of matches over all policy breaks.
func (r Result) MatchCount() int {
	n := 0
	for _, pb := range r.PolicyBreaks {
		n += len(pb.Matches)
	}
	return n
}

// Policies returns distinct policy names in first-seen order.
func (r Result) Policies() []string {
	seen := make(map[string]struct{}, len(r.PolicyBreaks))
	var out []string
	for _, pb := range r.PolicyBreaks {
		if _, ok := seen[pb.Policy]; ok {
			continue
		}
		seen[pb.Policy] = struct{}{}
		out = append(out, pb.Policy)
	}
	return out
}

// WithoutSnippets returns a copy with matched text cleared, safe to persist.
func (r Result) WithoutSnippets() Result {
	out := Result{Document: r.Document}
	if r.PolicyBreaks == nil {
		return out
	}
	out.PolicyBreaks = make([]PolicyBreak, len(r.PolicyBreaks))
	for i, pb := range r.PolicyBreaks {
		matches := make([]Match, len(pb.Matches))
		for j, m := range pb.Matches {
			m.Snippet = ""
			matches[j] = m
		}
		pb.Matches = matches
		out.PolicyBreaks[i] = pb
	}
	return out
}

// Aggregate flattens the policy breaks of all results, in order, into one Result.
// Spans are not deduplicated here.
func Aggregate(results []Result) Result {
	n := 0
	for _, r := range results {
		n += len(r.PolicyBreaks)
	}
	if n == 0 {
		return Result{}
	}
	out := Result{PolicyBreaks: make([]PolicyBreak, 0, n)}
	for _, r := range results {
		out.PolicyBreaks = append(out.PolicyBreaks, r.PolicyBreaks...)
	}
	return out
}
