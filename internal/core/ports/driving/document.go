package driving

import (
	"context"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// DocumentService indexes and removes course documents
type DocumentService interface {
	// AddDocument extracts, embeds and upserts every fragment of doc.
	// Either all vectors are written in one batch or an error is returned.
	AddDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error)

	// DeleteDocument removes every vector of documentID in courseID.
	// Deleting a document that was never indexed succeeds.
	DeleteDocument(ctx context.Context, documentID, courseID string) error
}
