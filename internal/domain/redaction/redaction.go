// Package redaction replaces detected spans in content with a fixed marker
// and records an audit trail of every replacement.
package redaction

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/domain/chunk"
	"github.com/kailas-cloud/scanguard/internal/domain/scan"
)

// Unit is the coordinate system of detector offsets.
type Unit string

// Supported offset units.
const (
	UnitByte Unit = "byte"
	UnitRune Unit = "rune"
)

// ParseUnit validates an offset unit name. Empty selects UnitByte.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case "", UnitByte:
		return UnitByte, nil
	case UnitRune:
		return UnitRune, nil
	default:
		return "", fmt.Errorf("unknown offset unit %q (want %q or %q)", s, UnitByte, UnitRune)
	}
}

// Redaction records one applied replacement.
// Start and End are byte offsets into the unmodified content, End exclusive.
type Redaction struct {
	Document string
	Kind     string
	Policy   string
	Start    int
	End      int
	Original string
}

// Engine applies scan results to content. The zero value uses DefaultMarker and byte offsets.
type Engine struct {
	Marker string
	Unit   Unit
}

// candidate is a replacement in byte coordinates of the original content.
type candidate struct {
	document string
	start    int
	end      int
	kind     string
	policy   string
}

type span struct{ start, end int }

// Redact replaces every matched span of result in content.
// Candidates are applied from the highest start offset down, so lower offsets stay valid
// against the working text. Identical spans are applied once; overlapping but different
// spans are each applied. Matches without offsets or outside content are skipped.
// Redactions are returned in application order.
func (e Engine) Redact(content string, result scan.Result) (string, []Redaction) {
	if result.Empty() {
		return content, nil
	}
	return e.apply(content, e.candidates(content, result))
}

// RedactChunks applies per-chunk results to the content the chunks were split from.
// results[i] holds offsets into chunks[i].Body; they are mapped back to content, so
// every Redaction points into content and bytes outside matched spans stay as they are.
// Matches that cover no byte copied from content are skipped.
func (e Engine) RedactChunks(content string, chunks []chunk.Chunk, results []scan.Result) (string, []Redaction) {
	var candidates []candidate
	for i := range min(len(chunks), len(results)) {
		for _, c := range e.candidates(chunks[i].Body, results[i]) {
			start, end, ok := chunks[i].SourceSpan(c.start, c.end)
			if !ok || end > len(content) {
				continue
			}
			c.start, c.end = start, end
			candidates = append(candidates, c)
		}
	}
	return e.apply(content, candidates)
}

// apply replaces candidate spans of content with the marker.
func (e Engine) apply(content string, candidates []candidate) (string, []Redaction) {
	if len(candidates) == 0 {
		return content, nil
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(b.start, a.start)
	})

	marker := e.marker()
	working := content
	applied := make(map[span]struct{}, len(candidates))
	redactions := make([]Redaction, 0, len(candidates))

	for _, c := range candidates {
		key := span{c.start, c.end}
		if _, dup := applied[key]; dup {
			continue
		}
		applied[key] = struct{}{}

		// Overlapping spans can run past the already shortened text.
		start, end := min(c.start, len(working)), min(c.end, len(working))
		working = working[:start] + marker + working[end:]

		redactions = append(redactions, Redaction{
			Document: c.document,
			Kind:     c.kind,
			Policy:   c.policy,
			Start:    c.start,
			End:      c.end,
			Original: content[c.start:c.end],
		})
	}
	return working, redactions
}

// RedactLiteral replaces every occurrence of each original string with the marker.
// Longer originals are replaced first so a shorter one cannot split a longer secret.
func (e Engine) RedactLiteral(content string, originals []string) string {
	uniq := make([]string, 0, len(originals))
	seen := make(map[string]struct{}, len(originals))
	for _, o := range originals {
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		uniq = append(uniq, o)
	}
	slices.SortStableFunc(uniq, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})

	marker := e.marker()
	for _, o := range uniq {
		content = strings.ReplaceAll(content, o, marker)
	}
	return content
}

func (e Engine) marker() string {
	if e.Marker == "" {
		return domain.DefaultMarker
	}
	return e.Marker
}

// candidates flattens matches into byte ranges of content, dropping unusable ones.
func (e Engine) candidates(content string, result scan.Result) []candidate {
	var runeOffsets []int
	if e.Unit == UnitRune {
		runeOffsets = byteOffsets(content)
	}

	out := make([]candidate, 0, result.MatchCount())
	for _, pb := range result.PolicyBreaks {
		for _, m := range pb.Matches {
			if !m.HasSpan() {
				continue
			}
			start, end := m.Span()

			if runeOffsets != nil {
				if end >= len(runeOffsets) {
					continue
				}
				start, end = runeOffsets[start], runeOffsets[end]
			}
			if end > len(content) {
				continue
			}
			out = append(out, candidate{
				document: result.Document,
				start:    start,
				end:      end,
				kind:     firstNonEmpty(pb.Kind, m.Kind),
				policy:   firstNonEmpty(pb.Policy, m.Policy),
			})
		}
	}
	return out
}

// byteOffsets maps every rune index of s, plus the end position, to its byte offset.
func byteOffsets(s string) []int {
	out := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		out = append(out, i)
	}
	return append(out, len(s))
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
