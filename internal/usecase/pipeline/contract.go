package pipeline

import (
	"context"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	"github.com/kailas-cloud/scanguard/internal/domain/redaction"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
)

// DocumentBuilder turns content into detector documents.
type DocumentBuilder interface {
	BuildChunks(content, name string) ([]domdoc.Document, []chunk.Chunk, error)
}

// Scanner runs one detector call for a document set.
type Scanner interface {
	Scan(ctx context.Context, docs []domdoc.Document, creds domain.CredentialProvider) ([]domscan.Result, error)
	Aggregate(results []domscan.Result) domscan.Result
}

// Redactor applies scan results to content.
type Redactor interface {
	Redact(content string, result domscan.Result) (string, []redaction.Redaction)
	RedactChunks(content string, chunks []chunk.Chunk, results []domscan.Result) (string, []redaction.Redaction)
	RedactLiteral(content string, originals []string) string
}
