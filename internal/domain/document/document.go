package document

import (
	"fmt"

	"github.com/kailas-cloud/scanguard/internal/domain"
)

// MaxNameLength is the longest filename the detector accepts.
const MaxNameLength = 256

// Document is a named unit of text submitted to the detector (immutable value object).
type Document struct {
	name string
	body string
}

// New validates and creates a Document.
// Name: 1-256 bytes. Body: non-empty, at most maxBytes (maxBytes <= 0 disables the check).
func New(name, body string, maxBytes int) (Document, error) {
	if name == "" {
		return Document{}, fmt.Errorf("document name is required: %w", domain.ErrInvalidDocument)
	}
	if len(name) > MaxNameLength {
		return Document{}, fmt.Errorf("document name too long (max %d): %w", MaxNameLength, domain.ErrInvalidDocument)
	}
	if body == "" {
		return Document{}, fmt.Errorf("document %q has an empty body: %w", name, domain.ErrInvalidDocument)
	}
	if maxBytes > 0 && len(body) > maxBytes {
		return Document{}, fmt.Errorf("document %q is %d bytes (max %d): %w",
			name, len(body), maxBytes, domain.ErrDocumentTooLarge)
	}
	return Document{name: name, body: body}, nil
}

// Reconstruct creates a Document without validation.
// Used for chunks that hold a single atomic child larger than the size limit.
func Reconstruct(name, body string) Document {
	return Document{name: name, body: body}
}

// Name returns the document filename.
func (d Document) Name() string { return d.name }

// Body returns the document text.
func (d Document) Body() string { return d.body }

// Size returns the body size in bytes.
func (d Document) Size() int { return len(d.body) }
