package domain

// KeyPrefix namespaces every key this service writes to the KV store.
const KeyPrefix = "scanguard:"

// DefaultMarker replaces every redacted span.
const DefaultMarker = "REDACTED"

// ScanLimits holds the detector's document size and count limits.
type ScanLimits struct {
	MaxDocumentBytes int
	MaxDocuments     int
}

// DefaultScanLimits returns the limits of the multiscan endpoint: 1 MiB per document, 20 documents per call.
func DefaultScanLimits() ScanLimits {
	return ScanLimits{
		MaxDocumentBytes: 1 << 20,
		MaxDocuments:     20,
	}
}
