package domain

import "errors"

var (
	// ErrUnsupportedRoot signals a JSON root that is neither an object nor an array.
	ErrUnsupportedRoot = errors.New("unsupported json root")
	// ErrUnsupportedChunkContent signals a chunk whose first body is neither an array nor an object.
	ErrUnsupportedChunkContent = errors.New("unsupported chunk content")
	// ErrMalformedJSON signals content that had to be chunked but is not valid JSON.
	ErrMalformedJSON = errors.New("malformed json")
	// ErrChunkMismatch signals a chunk set whose bodies disagree on the root kind.
	ErrChunkMismatch = errors.New("chunk root mismatch")
	// ErrTooManyChunks signals content that needs more documents than one scan call allows.
	ErrTooManyChunks = errors.New("too many chunks")
	// ErrDocumentTooLarge signals a document body above the configured size limit.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrInvalidDocument signals a document that cannot be scanned (empty name or body).
	ErrInvalidDocument = errors.New("invalid document")

	// ErrDetectorUnavailable signals a non-2xx or unusable detector response.
	ErrDetectorUnavailable = errors.New("detector unavailable")
	// ErrDetectorTransport signals a network failure or timeout talking to the detector.
	ErrDetectorTransport = errors.New("detector transport error")
	// ErrQuotaExceeded signals that the daily detector document quota is spent.
	ErrQuotaExceeded = errors.New("detector quota exceeded")
	// ErrCredentialUnavailable signals that no detector credential could be obtained.
	ErrCredentialUnavailable = errors.New("detector credential unavailable")

	// ErrModelProvider signals a chat model provider failure.
	ErrModelProvider = errors.New("model provider error")
	// ErrObjectNotFound signals a missing object in the object store.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectTooLarge signals an object above the configured fetch limit.
	ErrObjectTooLarge = errors.New("object too large")
	// ErrNotConfigured signals an optional subsystem that was not configured.
	ErrNotConfigured = errors.New("not configured")
)
