// Package scan orchestrates detector calls for a set of documents.
package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/scanguard/internal/domain"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
)

// Service issues one detector call per document set.
type Service struct {
	detector domscan.Detector
}

// New creates a scan service.
func New(detector domscan.Detector) *Service {
	return &Service{detector: detector}
}

// Scan fetches the token from creds and sends all documents in a single detector call.
// Returns one result per document, in order, each stamped with its document name.
// Detector errors are returned unchanged in kind; retrying is left to decorators.
func (s *Service) Scan(
	ctx context.Context, docs []domdoc.Document, creds domain.CredentialProvider,
) ([]domscan.Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if creds == nil {
		return nil, fmt.Errorf("no credential provider: %w", domain.ErrCredentialUnavailable)
	}

	token, err := creds.Token(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialUnavailable) {
			return nil, fmt.Errorf("get detector token: %w", err)
		}
		return nil, fmt.Errorf("get detector token: %w: %w", domain.ErrCredentialUnavailable, err)
	}

	results, err := s.detector.Scan(ctx, token, docs)
	if err != nil {
		return nil, fmt.Errorf("scan %d documents: %w", len(docs), err)
	}
	if len(results) != len(docs) {
		return nil, fmt.Errorf("detector returned %d results for %d documents: %w",
			len(results), len(docs), domain.ErrDetectorUnavailable)
	}

	for i := range results {
		results[i].Document = docs[i].Name()
	}
	return results, nil
}

// Aggregate flattens per-document results into one result for redaction.
func (s *Service) Aggregate(results []domscan.Result) domscan.Result {
	return domscan.Aggregate(results)
}
