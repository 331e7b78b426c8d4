// Package openai is a chat model over any OpenAI-compatible API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/domain"
	"github.com/kailas-cloud/scanguard/internal/domain/chat"
	"github.com/kailas-cloud/scanguard/internal/metrics"
)

// Model is a chat model backed by the OpenAI-compatible chat completions API.
type Model struct {
	client       *openai.Client
	defaultModel string
	user         string
	provider     string
	logger       *zap.Logger
}

// Config holds the model provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	Logger   *zap.Logger
}

// NewModel creates an OpenAI-compatible chat model.
func NewModel(cfg *Config) *Model {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	return &Model{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.Model,
		user:         cfg.User,
		provider:     provider,
		logger:       cfg.Logger,
	}
}

// Complete implements chat.Model. An empty model name selects the configured default.
func (m *Model) Complete(ctx context.Context, model string, msgs []chat.Message) (chat.Message, error) {
	if model == "" {
		model = m.defaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, len(msgs)),
		User:     m.user,
	}
	for i, msg := range msgs {
		req.Messages[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(m.provider, "error").Inc()
		m.logger.Warn("Chat completion failed",
			zap.String("provider", m.provider),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return chat.Message{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(m.provider, "error").Inc()
		return chat.Message{}, fmt.Errorf("empty completion response: %w", domain.ErrModelProvider)
	}

	metrics.ModelRequestsTotal.WithLabelValues(m.provider, "success").Inc()
	m.logger.Debug("Chat completion finished",
		zap.String("provider", m.provider),
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", duration),
	)

	out := resp.Choices[0].Message
	role := out.Role
	if role == "" {
		role = chat.RoleAssistant
	}
	return chat.Message{Role: role, Content: out.Content}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (m *Model) HealthCheck(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrModelProvider for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrModelProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("chat API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("chat request failed: %w: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
