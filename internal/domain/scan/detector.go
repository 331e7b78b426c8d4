package scan

import (
	"context"

	"github.com/kailas-cloud/scanguard/internal/domain/document"
)

// Detector scans a batch of documents in one call and returns one Result per
// document, in document order. It is the contract shared by the HTTP client,
// the scan cache and the instrumentation decorators.
type Detector interface {
	Scan(ctx context.Context, token string, docs []document.Document) ([]Result, error)
}
