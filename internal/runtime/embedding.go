package runtime

import (
	"context"
	"fmt"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// Ensure unavailableEmbedder implements EmbeddingService
var _ driven.EmbeddingService = (*unavailableEmbedder)(nil)

// unavailableEmbedder stands in when no embedding credential is configured
type unavailableEmbedder struct {
	model      string
	dimensions int
}

func newUnavailableEmbedder(model string, dimensions int) *unavailableEmbedder {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &unavailableEmbedder{model: model, dimensions: dimensions}
}

func (e *unavailableEmbedder) err() error {
	return fmt.Errorf("%w: %w: embedding API key is not set", domain.ErrEmbeddingProvider, domain.ErrNotConfigured)
}

func (e *unavailableEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, e.err()
}

func (e *unavailableEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, e.err()
}

func (e *unavailableEmbedder) Dimensions() int { return e.dimensions }

func (e *unavailableEmbedder) Model() string { return e.model }

func (e *unavailableEmbedder) Close() error { return nil }
