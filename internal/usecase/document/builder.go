// Package document turns raw content into the bounded set of named documents a scan call carries.
package document

import (
	"fmt"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
)

// Builder splits content into documents within the detector's size and count limits.
type Builder struct {
	maxBytes int
	maxDocs  int
}

// NewBuilder creates a Builder. Zero limits fall back to domain.DefaultScanLimits.
func NewBuilder(limits domain.ScanLimits) *Builder {
	def := domain.DefaultScanLimits()
	if limits.MaxDocumentBytes <= 0 {
		limits.MaxDocumentBytes = def.MaxDocumentBytes
	}
	if limits.MaxDocuments <= 0 {
		limits.MaxDocuments = def.MaxDocuments
	}
	return &Builder{maxBytes: limits.MaxDocumentBytes, maxDocs: limits.MaxDocuments}
}

// Limits returns the effective limits.
func (b *Builder) Limits() domain.ScanLimits {
	return domain.ScanLimits{MaxDocumentBytes: b.maxBytes, MaxDocuments: b.maxDocs}
}

// Build returns the documents for content.
func (b *Builder) Build(content, name string) ([]domdoc.Document, error) {
	docs, _, err := b.BuildChunks(content, name)
	return docs, err
}

// BuildChunks returns the documents for content plus the chunk set they came from.
// Content that fits is one document named name, and chunks is nil.
// Larger content must be a JSON array or object; it is split and every chunk becomes a
// document named "{name}.part{index}". More chunks than the document limit is an error,
// never a truncation.
func (b *Builder) BuildChunks(content, name string) ([]domdoc.Document, []chunk.Chunk, error) {
	if len(content) <= b.maxBytes {
		doc, err := domdoc.New(name, content, b.maxBytes)
		if err != nil {
			return nil, nil, err
		}
		return []domdoc.Document{doc}, nil, nil
	}

	chunks, err := chunk.Split(content, b.maxBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("split %q: %w", name, err)
	}
	if len(chunks) > b.maxDocs {
		return nil, nil, fmt.Errorf("%q needs %d documents (max %d): %w",
			name, len(chunks), b.maxDocs, domain.ErrTooManyChunks)
	}

	docs := make([]domdoc.Document, len(chunks))
	for i, c := range chunks {
		partName := fmt.Sprintf("%s.part%d", name, c.Index)
		if len(c.Body) > b.maxBytes {
			// A single child above the limit is sent as is; the detector decides.
			docs[i] = domdoc.Reconstruct(partName, c.Body)
			continue
		}
		doc, err := domdoc.New(partName, c.Body, b.maxBytes)
		if err != nil {
			return nil, nil, err
		}
		docs[i] = doc
	}
	return docs, chunks, nil
}
