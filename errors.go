package scanguard

import "github.com/kailas-cloud/scanguard/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Outcome.Err wraps one of them; use errors.Is() to check.
var (
	ErrTooManyChunks         = domain.ErrTooManyChunks
	ErrDocumentTooLarge      = domain.ErrDocumentTooLarge
	ErrMalformedJSON         = domain.ErrMalformedJSON
	ErrUnsupportedRoot       = domain.ErrUnsupportedRoot
	ErrInvalidDocument       = domain.ErrInvalidDocument
	ErrDetectorUnavailable   = domain.ErrDetectorUnavailable
	ErrDetectorTransport     = domain.ErrDetectorTransport
	ErrCredentialUnavailable = domain.ErrCredentialUnavailable
)
