package ai

import (
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// Ensure Factory implements LLMProviderFactory
var _ driven.LLMProviderFactory = (*Factory)(nil)

// Factory resolves provider keys to chat providers built from settings.
// Providers are stateless so one instance per key is shared by all requests.
type Factory struct {
	providers map[domain.ProviderKey]*ChatProvider
}

// NewFactory registers one provider per settings entry. Later entries with
// the same key replace earlier ones.
func NewFactory(settings []domain.LLMProviderSettings, timeout time.Duration) *Factory {
	f := &Factory{providers: make(map[domain.ProviderKey]*ChatProvider, len(settings))}
	for _, s := range settings {
		f.providers[s.Key] = NewChatProvider(s, timeout)
	}
	return f
}

// Create returns the provider registered under key
func (f *Factory) Create(key domain.ProviderKey) (driven.LLMProvider, error) {
	p, ok := f.providers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, key)
	}
	return p, nil
}

// Keys lists registered provider keys, sorted
func (f *Factory) Keys() []domain.ProviderKey {
	keys := make([]domain.ProviderKey, 0, len(f.providers))
	for k := range f.providers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// CreateEmbeddingService creates an embedding service from settings.
// Returns nil without error when embeddings are not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, timeout time.Duration) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		svc, err := NewOpenAIEmbedding(OpenAIEmbeddingConfig{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			BaseURL:    settings.BaseURL,
			Dimensions: settings.Dimensions,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}
