package object

import (
	"context"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

// Fetcher reads one object as text.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) (string, error)
}

// Processor scans one unit of content.
type Processor interface {
	Process(ctx context.Context, content, name string, creds domain.CredentialProvider, opts pipeline.Options) pipeline.Outcome
}
