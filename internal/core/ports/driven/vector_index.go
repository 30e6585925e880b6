package driven

import (
	"context"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// ListPage is one page of vector IDs from a prefix listing
type ListPage struct {
	IDs []string
	// NextToken continues the listing; empty when there are no more pages
	NextToken string
}

// VectorIndex is the external vector index.
// It has no notion of tenants; tenant identity lives in the record key.
type VectorIndex interface {
	// Upsert writes all records in a single batch call
	Upsert(ctx context.Context, records []*domain.VectorRecord) error

	// ListIDs returns one page of IDs starting with prefix.
	// An empty token requests the first page. Implementations may
	// return domain.ErrNoVectors when nothing matches.
	ListIDs(ctx context.Context, prefix, token string) (*ListPage, error)

	// DeleteIDs removes the given vectors
	DeleteIDs(ctx context.Context, ids []string) error

	// Query returns up to topK nearest neighbours of vector, best first
	Query(ctx context.Context, vector []float32, topK int) ([]domain.IndexHit, error)

	// HealthCheck verifies the index is reachable
	HealthCheck(ctx context.Context) error
}
