package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/scanguard/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	doc, err := New("config.json", `{"a":1}`, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name() != "config.json" {
		t.Errorf("Name() = %q", doc.Name())
	}
	if doc.Body() != `{"a":1}` {
		t.Errorf("Body() = %q", doc.Body())
	}
	if doc.Size() != 7 {
		t.Errorf("Size() = %d, want 7", doc.Size())
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		docName  string
		body     string
		maxBytes int
		wantErr  error
	}{
		{"empty name", "", "body", 0, domain.ErrInvalidDocument},
		{"long name", strings.Repeat("n", MaxNameLength+1), "body", 0, domain.ErrInvalidDocument},
		{"empty body", "x", "", 0, domain.ErrInvalidDocument},
		{"too large", "x", "12345", 4, domain.ErrDocumentTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.docName, tc.body, tc.maxBytes)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNew_ExactLimit(t *testing.T) {
	if _, err := New("x", "1234", 4); err != nil {
		t.Fatalf("body at the limit must be accepted: %v", err)
	}
}

func TestNew_NoLimit(t *testing.T) {
	if _, err := New("x", strings.Repeat("a", 10000), 0); err != nil {
		t.Fatalf("maxBytes=0 must disable the size check: %v", err)
	}
}

func TestReconstruct_SkipsValidation(t *testing.T) {
	doc := Reconstruct("big.part0", strings.Repeat("a", 10))
	if doc.Size() != 10 || doc.Name() != "big.part0" {
		t.Errorf("unexpected document: %q (%d bytes)", doc.Name(), doc.Size())
	}
}
