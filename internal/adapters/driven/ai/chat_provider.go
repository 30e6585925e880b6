package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// Ensure ChatProvider implements LLMProvider
var _ driven.LLMProvider = (*ChatProvider)(nil)

// DefaultChatTimeout bounds a single completion call
const DefaultChatTimeout = 60 * time.Second

// ChatProvider answers questions through an OpenAI-compatible chat completion API.
// OpenAI, Gemini, Groq and DeepSeek all expose this API and differ only in
// endpoint, model and credential.
type ChatProvider struct {
	key       domain.ProviderKey
	model     string
	maxTokens int
	client    *openai.Client
}

// NewChatProvider creates a provider from settings.
// A provider without an API key is still created; Ask fails with ErrNotConfigured.
func NewChatProvider(settings domain.LLMProviderSettings, timeout time.Duration) *ChatProvider {
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = domain.DefaultMaxTokens
	}

	p := &ChatProvider{
		key:       settings.Key,
		model:     settings.Model,
		maxTokens: maxTokens,
	}
	if settings.IsConfigured() {
		cfg := openai.DefaultConfig(settings.APIKey)
		if settings.BaseURL != "" {
			cfg.BaseURL = settings.BaseURL
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
		p.client = openai.NewClientWithConfig(cfg)
	}
	return p
}

// Ask sends systemPrompt as the system message and question as the user message
func (p *ChatProvider) Ask(ctx context.Context, question, systemPrompt string) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("%w: %s has no API key", domain.ErrNotConfigured, p.key)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: question,
			},
		},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %s returned %d: %s", domain.ErrLLMProvider, p.key, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrLLMProvider, p.key, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", domain.ErrLLMProvider, p.key)
	}

	return resp.Choices[0].Message.Content, nil
}

// Key returns the registry key of this provider
func (p *ChatProvider) Key() domain.ProviderKey {
	return p.key
}

// Model returns the model name being used
func (p *ChatProvider) Model() string {
	return p.model
}
