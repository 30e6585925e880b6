package driving

import (
	"context"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// ChatService forwards a question and recent history to a named provider
type ChatService interface {
	// Ask returns the provider's answer
	Ask(ctx context.Context, req domain.ChatRequest) (string, error)

	// Providers lists the registered provider keys
	Providers() []domain.ProviderKey
}
