package driving

import (
	"context"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// SearchService answers semantic document search within a course
type SearchService interface {
	// Search returns at most req.TopN documents, best first, one entry per document
	Search(ctx context.Context, req domain.SearchRequest) ([]*domain.RankedResult, error)
}
