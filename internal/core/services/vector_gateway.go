package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// maxDeletePages guards against an index that keeps returning the same token
const maxDeletePages = 10000

// VectorGateway maps fragments onto tenant-scoped vector records
type VectorGateway struct {
	index  driven.VectorIndex
	logger *slog.Logger
}

// NewVectorGateway creates a gateway over index
func NewVectorGateway(index driven.VectorIndex, logger *slog.Logger) *VectorGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorGateway{index: index, logger: logger}
}

// Upsert writes every fragment of documentID under courseID in a single batch
// and returns the vector IDs written, in fragment order.
func (g *VectorGateway) Upsert(ctx context.Context, documentID, courseID string, fragments []*domain.Fragment) ([]string, error) {
	if len(fragments) == 0 {
		return nil, nil
	}

	records := make([]*domain.VectorRecord, 0, len(fragments))
	ids := make([]string, 0, len(fragments))
	for _, f := range fragments {
		rec := domain.NewVectorRecord(documentID, courseID, f)
		records = append(records, rec)
		ids = append(ids, rec.ID)
	}

	if err := g.index.Upsert(ctx, records); err != nil {
		return nil, wrapIndexError(domain.ErrIndexWrite, err)
	}
	return ids, nil
}

// DeleteDocument removes every vector of documentID in courseID, page by page.
// It returns the number of vectors deleted. The index's empty-listing signal
// ends the walk successfully.
func (g *VectorGateway) DeleteDocument(ctx context.Context, documentID, courseID string) (int, error) {
	prefix := domain.DocumentPrefix(documentID, courseID)
	deleted := 0
	token := ""

	for pages := 0; pages < maxDeletePages; pages++ {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		page, err := g.index.ListIDs(ctx, prefix, token)
		if errors.Is(err, domain.ErrNoVectors) {
			break
		}
		if err != nil {
			return deleted, wrapIndexError(domain.ErrIndexQuery, err)
		}

		if len(page.IDs) > 0 {
			if err := g.index.DeleteIDs(ctx, page.IDs); err != nil {
				return deleted, wrapIndexError(domain.ErrIndexWrite, err)
			}
			deleted += len(page.IDs)
			g.logger.Debug("deleted vector page", "prefix", prefix, "count", len(page.IDs))
		}

		if page.NextToken == "" || page.NextToken == token {
			return deleted, nil
		}
		token = page.NextToken
	}

	return deleted, nil
}

// Query fetches oversampleK neighbours of vector and keeps those encoded for courseID
func (g *VectorGateway) Query(ctx context.Context, vector []float32, courseID string, oversampleK int) ([]domain.RetrievalMatch, error) {
	hits, err := g.index.Query(ctx, vector, oversampleK)
	if err != nil {
		return nil, wrapIndexError(domain.ErrIndexQuery, err)
	}

	matches := make([]domain.RetrievalMatch, 0, len(hits))
	for _, h := range hits {
		key, err := domain.ParseVectorID(h.ID, courseID)
		if err != nil {
			continue
		}
		matches = append(matches, domain.RetrievalMatch{
			VectorID:     h.ID,
			DocumentID:   key.DocumentID,
			FragmentType: key.FragmentType,
			PageIndex:    key.PageIndex,
			Score:        h.Score,
		})
	}
	return matches, nil
}

func wrapIndexError(kind, err error) error {
	if errors.Is(err, kind) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}
