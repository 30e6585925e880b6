package driven

import (
	"context"
)

// EmbeddingService turns text into vectors.
// Metadata fragments, page fragments and queries all go through the same
// instance so they share one model and dimensionality.
type EmbeddingService interface {
	// Embed returns one vector per text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery returns the vector for a search question
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the vector size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// Close releases idle connections
	Close() error
}
