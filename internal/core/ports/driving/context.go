package driving

import (
	"context"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// ContextService asks a language model to select and order candidate documents
type ContextService interface {
	// RankContext renders at most domain.MaxContextCandidates documents into a
	// prompt and returns the model's answer
	RankContext(ctx context.Context, question string, documents []*domain.Document) (*domain.ContextAnswer, error)
}
