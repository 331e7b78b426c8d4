package chi

import (
	"context"

	"github.com/kailas-cloud/scanguard/internal/domain"
	chatuc "github.com/kailas-cloud/scanguard/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/scanguard/internal/usecase/health"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

// Pipeline scans and redacts request content.
type Pipeline interface {
	Process(ctx context.Context, content, name string, creds domain.CredentialProvider, opts pipeline.Options) pipeline.Outcome
	ProcessAll(ctx context.Context, items []pipeline.Item, creds domain.CredentialProvider, opts pipeline.Options) []pipeline.Outcome
}

// ObjectScanner scans stored objects.
type ObjectScanner interface {
	Scan(ctx context.Context, bucket, key string, creds domain.CredentialProvider, opts pipeline.Options) (pipeline.Outcome, error)
}

// ChatGateway runs scanned chat completions.
type ChatGateway interface {
	Complete(ctx context.Context, req chatuc.Request, creds domain.CredentialProvider) (chatuc.Response, error)
}

// HealthReporter aggregates dependency checks.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
