package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

func newSearchFixture() (*mocks.MockEmbeddingService, *mocks.MockVectorIndex, driving.SearchService) {
	embedder := mocks.NewMockEmbeddingService()
	index := mocks.NewMockVectorIndex()
	svc := NewSearchService(SearchServiceConfig{
		Embedder:           embedder,
		Ranker:             NewRanker(NewVectorGateway(index, nil)),
		DefaultTopN:        domain.DefaultTopN,
		DefaultOversampleK: domain.DefaultOversampleK,
	})
	return embedder, index, svc
}

func seedCourse(t *testing.T, embedder *mocks.MockEmbeddingService, index *mocks.MockVectorIndex, courseID string, docs, pages int) {
	t.Helper()
	var records []*domain.VectorRecord
	for d := 0; d < docs; d++ {
		docID := fmt.Sprintf("doc%d", d)
		meta := domain.NewMetadataFragment("meta "+docID, embedder.EmbeddingFor("meta "+docID))
		records = append(records, domain.NewVectorRecord(docID, courseID, meta))
		for p := 0; p < pages; p++ {
			text := fmt.Sprintf("%s page %d", docID, p)
			records = append(records, domain.NewVectorRecord(docID, courseID, domain.NewPageFragment(p, text, embedder.EmbeddingFor(text))))
		}
	}
	require.NoError(t, index.Upsert(context.Background(), records))
}

func TestSearchService_Search_DistinctDocuments(t *testing.T) {
	embedder, index, svc := newSearchFixture()
	seedCourse(t, embedder, index, "c1", 3, 4)
	seedCourse(t, embedder, index, "c2", 6, 1)

	results, err := svc.Search(context.Background(), domain.SearchRequest{
		Question: "what is a matrix",
		CourseID: "c1",
		TopN:     5,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := map[string]bool{}
	for i, r := range results {
		assert.False(t, seen[r.DocumentID], "duplicate %s", r.DocumentID)
		seen[r.DocumentID] = true
		assert.True(t, domain.BelongsToCourse(r.VectorID, "c1"))
		if i > 0 {
			assert.LessOrEqual(t, r.Score, results[i-1].Score)
		}
	}
	assert.Equal(t, domain.DefaultOversampleK, index.LastTopK())
	assert.Equal(t, []string{"what is a matrix"}, embedder.Queries())
}

func TestSearchService_Search_Defaults(t *testing.T) {
	embedder, index, svc := newSearchFixture()
	seedCourse(t, embedder, index, "c1", 8, 0)

	results, err := svc.Search(context.Background(), domain.SearchRequest{Question: "q", CourseID: "c1"})
	require.NoError(t, err)
	assert.Len(t, results, domain.DefaultTopN)
}

func TestSearchService_Search_Validation(t *testing.T) {
	_, _, svc := newSearchFixture()

	_, err := svc.Search(context.Background(), domain.SearchRequest{CourseID: "c"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.Search(context.Background(), domain.SearchRequest{Question: "q"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestSearchService_Search_EmbeddingFailure(t *testing.T) {
	embedder, index, svc := newSearchFixture()
	embedder.SetFailAll(true)

	_, err := svc.Search(context.Background(), domain.SearchRequest{Question: "q", CourseID: "c"})
	assert.True(t, errors.Is(err, domain.ErrEmbeddingProvider))
	assert.Equal(t, 0, index.LastTopK())
}

func TestSearchService_Search_IndexFailure(t *testing.T) {
	_, index, svc := newSearchFixture()
	index.FailQuery = true

	_, err := svc.Search(context.Background(), domain.SearchRequest{Question: "q", CourseID: "c"})
	assert.True(t, errors.Is(err, domain.ErrIndexQuery))
}
