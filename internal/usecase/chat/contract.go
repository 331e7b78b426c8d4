package chat

import (
	"context"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

// Pipeline scans and redacts content.
type Pipeline interface {
	Process(ctx context.Context, content, name string, creds domain.CredentialProvider, opts pipeline.Options) pipeline.Outcome
	ProcessAll(ctx context.Context, items []pipeline.Item, creds domain.CredentialProvider, opts pipeline.Options) []pipeline.Outcome
}
