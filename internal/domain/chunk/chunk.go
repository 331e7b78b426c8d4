// Package chunk splits serialized JSON into size-bounded, independently parseable
// fragments and merges such fragments back into the original value.
//
// Only the root's direct children are distributed across chunks. Each child keeps
// its exact serialized bytes, and object keys keep their original order and escaping,
// so a merged chunk set decodes to a value deep-equal to the input. Every chunk records
// where its copied bytes came from, so offsets found in a chunk map back to the input.
package chunk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/kailas-cloud/scanguard/internal/domain"
)

// Chunk is one fragment of a split JSON value.
type Chunk struct {
	Index int
	Total int
	Body  string
	// Segments lists the runs of Body copied verbatim from the split input, in Body order.
	Segments []Segment
}

// Segment is a run of Len bytes at Body offset At that starts at Source in the split input.
type Segment struct {
	At     int
	Source int
	Len    int
}

// SourceSpan maps the half-open Body range [start, end) onto the split input.
// Bounds that fall on bytes Split added (delimiters, separators, colons) snap inward
// to the nearest copied byte. ok is false when the range holds no copied byte.
func (c Chunk) SourceSpan(start, end int) (from, to int, ok bool) {
	from, to = -1, -1
	for _, s := range c.Segments {
		if s.At+s.Len <= start || s.At >= end {
			continue
		}
		if from < 0 {
			from = s.Source + max(start-s.At, 0)
		}
		to = s.Source + min(end, s.At+s.Len) - s.At
	}
	if from < 0 {
		return 0, 0, false
	}
	return from, to, true
}

// Kind is the type of a JSON root that can be chunked.
type Kind int

const (
	// KindArray is a JSON array root.
	KindArray Kind = iota + 1
	// KindObject is a JSON object root.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// delimiterSize accounts for the enclosing [] or {} of every chunk.
const delimiterSize = 2

// member is a direct child of the root: an array element or an object entry.
// key holds the quoted object key as written and is nil for array elements.
// keyAt and valueAt are the offsets of key and value in the parsed input.
type member struct {
	key     []byte
	keyAt   int
	value   json.RawMessage
	valueAt int
}

// size is the member's serialized length inside a chunk, excluding separators.
func (m member) size() int {
	if m.key == nil {
		return len(m.value)
	}
	return len(m.key) + 1 + len(m.value)
}

type root struct {
	kind    Kind
	members []member
}

// Split parses serialized and packs the root's direct children into chunks of at most
// maxBytes. Input that already fits (or maxBytes <= 0) is returned as a single chunk equal
// to the input. A child that alone exceeds maxBytes is never split further: it is emitted
// as a single-child chunk above the limit.
func Split(serialized string, maxBytes int) ([]Chunk, error) {
	r, err := parse([]byte(serialized))
	if err != nil {
		return nil, err
	}

	if maxBytes <= 0 || len(serialized) <= maxBytes {
		return []Chunk{{
			Index:    0,
			Total:    1,
			Body:     serialized,
			Segments: []Segment{{At: 0, Source: 0, Len: len(serialized)}},
		}}, nil
	}

	var (
		chunks  []Chunk
		current []member
		size    = delimiterSize
	)

	flush := func() {
		body, segments := render(r.kind, current)
		chunks = append(chunks, Chunk{Index: len(chunks), Body: body, Segments: segments})
		current = nil
		size = delimiterSize
	}

	for _, m := range r.members {
		add := m.size()
		if len(current) > 0 {
			add++ // separator
		}
		if len(current) > 0 && size+add > maxBytes {
			flush()
			add = m.size()
		}
		current = append(current, m)
		size += add
	}
	if len(current) > 0 || len(chunks) == 0 {
		flush()
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks, nil
}

// Merge sorts chunks by index, parses every body and recombines them: array elements
// are concatenated, object entries are appended in chunk order.
// Keys are not checked for redefinition across chunks; Split never produces duplicates.
func Merge(chunks []Chunk) (json.RawMessage, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to merge: %w", domain.ErrUnsupportedChunkContent)
	}

	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var (
		kind    Kind
		members []member
	)
	for i, c := range sorted {
		r, err := parse([]byte(c.Body))
		if err != nil {
			if i == 0 && errors.Is(err, domain.ErrUnsupportedRoot) {
				return nil, fmt.Errorf("chunk %d: %w", c.Index, domain.ErrUnsupportedChunkContent)
			}
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		if i == 0 {
			kind = r.kind
		} else if r.kind != kind {
			return nil, fmt.Errorf("chunk %d is %s, first chunk is %s: %w",
				c.Index, r.kind, kind, domain.ErrChunkMismatch)
		}
		members = append(members, r.members...)
	}

	merged, _ := render(kind, members)
	return json.RawMessage(merged), nil
}

// parse walks the root of data and collects its direct children with their exact bytes
// and offsets.
func parse(data []byte) (root, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return root{}, fmt.Errorf("read root: %v: %w", err, domain.ErrMalformedJSON)
	}

	var r root
	switch tok {
	case json.Delim('['):
		r.kind = KindArray
	case json.Delim('{'):
		r.kind = KindObject
	default:
		return root{}, fmt.Errorf("root is %s: %w", describe(tok), domain.ErrUnsupportedRoot)
	}

	for dec.More() {
		var m member
		if r.kind == KindObject {
			from := int(dec.InputOffset())
			kt, err := dec.Token()
			if err != nil {
				return root{}, fmt.Errorf("read key: %v: %w", err, domain.ErrMalformedJSON)
			}
			if _, ok := kt.(string); !ok {
				return root{}, fmt.Errorf("object key is %s: %w", describe(kt), domain.ErrMalformedJSON)
			}
			end := int(dec.InputOffset())
			m.keyAt = from + skipSeparators(data[from:end])
			m.key = data[m.keyAt:end]
		}
		if err := dec.Decode(&m.value); err != nil {
			return root{}, fmt.Errorf("read member %d: %v: %w", len(r.members), err, domain.ErrMalformedJSON)
		}
		m.valueAt = int(dec.InputOffset()) - len(m.value)
		r.members = append(r.members, m)
	}

	if _, err := dec.Token(); err != nil {
		return root{}, fmt.Errorf("read closing delimiter: %v: %w", err, domain.ErrMalformedJSON)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return root{}, fmt.Errorf("trailing data after root: %w", domain.ErrMalformedJSON)
	}
	return r, nil
}

// render serializes members compactly and reports where each key and value landed.
func render(kind Kind, members []member) (string, []Segment) {
	size := delimiterSize
	for i, m := range members {
		if i > 0 {
			size++
		}
		size += m.size()
	}

	var b bytes.Buffer
	b.Grow(size)
	segments := make([]Segment, 0, 2*len(members))
	if kind == KindObject {
		b.WriteByte('{')
	} else {
		b.WriteByte('[')
	}
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		if m.key != nil {
			segments = append(segments, Segment{At: b.Len(), Source: m.keyAt, Len: len(m.key)})
			b.Write(m.key)
			b.WriteByte(':')
		}
		segments = append(segments, Segment{At: b.Len(), Source: m.valueAt, Len: len(m.value)})
		b.Write(m.value)
	}
	if kind == KindObject {
		b.WriteByte('}')
	} else {
		b.WriteByte(']')
	}
	return b.String(), segments
}

// skipSeparators returns the length of the leading whitespace and commas of b.
func skipSeparators(b []byte) int {
	for i, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n', ',':
		default:
			return i
		}
	}
	return len(b)
}

func describe(tok json.Token) string {
	switch tok.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64, json.Number:
		return "a number"
	case string:
		return "a string"
	default:
		return fmt.Sprintf("%v", tok)
	}
}
