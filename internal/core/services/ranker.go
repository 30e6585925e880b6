package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// Ranker turns raw nearest-neighbour hits into one result per document
type Ranker struct {
	gateway *VectorGateway
}

// NewRanker creates a ranker over gateway
func NewRanker(gateway *VectorGateway) *Ranker {
	return &Ranker{gateway: gateway}
}

// Rank queries oversampleK neighbours of vector, restricts them to courseID and
// returns at most topN documents, best first. A sparse course may yield fewer
// than topN results; the window is never widened.
func (r *Ranker) Rank(ctx context.Context, vector []float32, courseID string, topN, oversampleK int) ([]*domain.RankedResult, error) {
	matches, err := r.gateway.Query(ctx, vector, courseID, oversampleK)
	if err != nil {
		return nil, err
	}
	return Collapse(matches, topN), nil
}

// Collapse keeps the best match of every document and returns the first topN
// by descending score. On equal scores the earlier match wins.
func Collapse(matches []domain.RetrievalMatch, topN int) []*domain.RankedResult {
	best := make(map[string]int, len(matches))
	var results []*domain.RankedResult

	for _, m := range matches {
		if i, ok := best[m.DocumentID]; ok {
			if m.Score > results[i].Score {
				results[i].RetrievalMatch = m
			}
			continue
		}
		best[m.DocumentID] = len(results)
		results = append(results, &domain.RankedResult{RetrievalMatch: m})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN >= 0 && len(results) > topN {
		results = results[:topN]
	}
	if results == nil {
		results = []*domain.RankedResult{}
	}
	return results
}
