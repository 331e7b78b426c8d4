// Package chat is the scanning gateway in front of a chat model: prompt messages are
// scanned before the call and the reply is scanned after it.
package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/domain"
	domchat "github.com/kailas-cloud/scanguard/internal/domain/chat"
	"github.com/kailas-cloud/scanguard/internal/usecase/pipeline"
)

// ErrNoMessages signals a completion request without messages.
var ErrNoMessages = errors.New("at least one message is required")

// Request is one completion call.
type Request struct {
	Model    string
	Messages []domchat.Message
	Redact   bool
}

// Response carries the model reply and every scan outcome.
type Response struct {
	Message      domchat.Message
	PromptScans  []pipeline.Outcome
	ResponseScan pipeline.Outcome
}

// Service is the chat gateway.
type Service struct {
	pipeline Pipeline
	model    domchat.Model
	logger   *zap.Logger
}

// New creates a chat gateway.
func New(p Pipeline, model domchat.Model, logger *zap.Logger) *Service {
	return &Service{pipeline: p, model: model, logger: logger}
}

// Complete scans all prompt messages concurrently, forwards them (redacted when
// req.Redact is set) to the model and scans the reply. Scan failures never block
// the completion: a degraded message is forwarded as written.
func (s *Service) Complete(ctx context.Context, req Request, creds domain.CredentialProvider) (Response, error) {
	if s.model == nil {
		return Response{}, fmt.Errorf("chat model: %w", domain.ErrNotConfigured)
	}
	if len(req.Messages) == 0 {
		return Response{}, ErrNoMessages
	}

	opts := pipeline.Options{Redact: req.Redact}
	items := make([]pipeline.Item, len(req.Messages))
	for i, m := range req.Messages {
		items[i] = pipeline.Item{Content: m.Content, Name: fmt.Sprintf("message_%d", i)}
	}
	scans := s.pipeline.ProcessAll(ctx, items, creds, opts)

	forward := make([]domchat.Message, len(req.Messages))
	degraded := 0
	for i, m := range req.Messages {
		forward[i] = domchat.Message{Role: m.Role, Content: scans[i].Content}
		if scans[i].Degraded() {
			degraded++
		}
	}
	if degraded > 0 {
		s.logger.Warn("Forwarding unscanned prompt messages",
			zap.Int("degraded", degraded),
			zap.Int("messages", len(req.Messages)),
		)
	}

	reply, err := s.model.Complete(ctx, req.Model, forward)
	if err != nil {
		return Response{PromptScans: scans}, fmt.Errorf("complete: %w", err)
	}

	replyScan := s.pipeline.Process(ctx, reply.Content, "response", creds, opts)
	reply.Content = replyScan.Content

	return Response{
		Message:      reply,
		PromptScans:  scans,
		ResponseScan: replyScan,
	}, nil
}
