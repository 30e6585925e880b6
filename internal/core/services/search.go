package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// SearchServiceConfig holds dependencies for the search service
type SearchServiceConfig struct {
	Embedder driven.EmbeddingService
	Ranker   *Ranker
	// DefaultTopN and DefaultOversampleK apply when a request leaves them unset
	DefaultTopN        int
	DefaultOversampleK int
	Logger             *slog.Logger
}

// searchService implements the semantic search path
type searchService struct {
	embedder    driven.EmbeddingService
	ranker      *Ranker
	topN        int
	oversampleK int
	logger      *slog.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		embedder:    cfg.Embedder,
		ranker:      cfg.Ranker,
		topN:        cfg.DefaultTopN,
		oversampleK: cfg.DefaultOversampleK,
		logger:      logger,
	}
}

// Search embeds the question and ranks the course's documents against it
func (s *searchService) Search(ctx context.Context, req domain.SearchRequest) ([]*domain.RankedResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.CourseID) == "" {
		return nil, fmt.Errorf("%w: courseId is required", domain.ErrInvalidInput)
	}

	if req.TopN <= 0 {
		req.TopN = s.topN
	}
	if req.OversampleK <= 0 {
		req.OversampleK = s.oversampleK
	}
	req.Normalise()

	start := time.Now()

	vector, err := s.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingProvider) {
			err = fmt.Errorf("%w: %v", domain.ErrEmbeddingProvider, err)
		}
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := s.ranker.Rank(ctx, vector, req.CourseID, req.TopN, req.OversampleK)
	if err != nil {
		return nil, fmt.Errorf("rank documents: %w", err)
	}

	s.logger.Debug("search completed",
		"course_id", req.CourseID,
		"top_n", req.TopN,
		"oversample_k", req.OversampleK,
		"results", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return results, nil
}
