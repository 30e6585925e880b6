package driven

import (
	"context"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// LLMProvider answers a question under a system prompt.
// Providers are stateless; each Ask is one billed network call with no
// caching and no retry.
type LLMProvider interface {
	// Ask sends question as the user message and systemPrompt as the system message
	Ask(ctx context.Context, question, systemPrompt string) (string, error)

	// Key returns the registry key of this provider
	Key() domain.ProviderKey

	// Model returns the model name being used
	Model() string
}

// LLMProviderFactory resolves provider keys to providers
type LLMProviderFactory interface {
	// Create returns the provider registered under key.
	// Unknown keys fail with domain.ErrUnsupportedProvider.
	Create(key domain.ProviderKey) (LLMProvider, error)

	// Keys lists the registered provider keys in a stable order
	Keys() []domain.ProviderKey
}
