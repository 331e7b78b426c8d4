// Package gemini is a chat model over the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	genai "google.golang.org/genai"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/domain/chat"
	"github.com/kailas-cloud/scanguard/internal/metrics"
)

const provider = "gemini"

// Config holds the Gemini settings. BaseURL is only set against a proxy or in tests.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Model is a chat model backed by genai.
type Model struct {
	cli          *genai.Client
	defaultModel string
	logger       *zap.Logger
}

// NewModel creates a Gemini chat model.
func NewModel(ctx context.Context, cfg *Config) (*Model, error) {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w: %w", err, domain.ErrModelProvider)
	}
	return &Model{cli: cli, defaultModel: cfg.Model, logger: cfg.Logger}, nil
}

// Complete implements chat.Model. System messages become the system instruction;
// assistant turns are sent with the "model" role.
func (m *Model) Complete(ctx context.Context, model string, msgs []chat.Message) (chat.Message, error) {
	if model == "" {
		model = m.defaultModel
	}

	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case chat.RoleSystem:
			system = append(system, msg.Content)
		case chat.RoleAssistant:
			contents = append(contents, textContent("model", msg.Content))
		default:
			contents = append(contents, textContent("user", msg.Content))
		}
	}

	var cfg *genai.GenerateContentConfig
	if len(system) > 0 {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: textContent("", strings.Join(system, "\n\n")),
		}
	}

	start := time.Now()
	resp, err := m.cli.Models.GenerateContent(ctx, model, contents, cfg)
	duration := time.Since(start)
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(provider, "error").Inc()
		m.logger.Warn("Chat completion failed",
			zap.String("provider", provider),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return chat.Message{}, fmt.Errorf("gemini generate: %w: %w", err, domain.ErrModelProvider)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(provider, "error").Inc()
		return chat.Message{}, fmt.Errorf("empty gemini response: %w", domain.ErrModelProvider)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}

	metrics.ModelRequestsTotal.WithLabelValues(provider, "success").Inc()
	m.logger.Debug("Chat completion finished",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Duration("duration", duration),
	)
	return chat.Message{Role: chat.RoleAssistant, Content: sb.String()}, nil
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}
