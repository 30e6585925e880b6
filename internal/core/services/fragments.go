package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// DefaultPageConcurrency is the number of page embeddings requested at once
const DefaultPageConcurrency = 4

// FragmentGeneratorConfig holds dependencies for the fragment generator
type FragmentGeneratorConfig struct {
	Embedder driven.EmbeddingService
	// Concurrency bounds parallel page embedding calls. 1 embeds pages sequentially.
	Concurrency int
	Logger      *slog.Logger
}

// FragmentGenerator turns a document and its page texts into embedded fragments
type FragmentGenerator struct {
	embedder    driven.EmbeddingService
	concurrency int
	logger      *slog.Logger
}

// NewFragmentGenerator creates a new fragment generator
func NewFragmentGenerator(cfg FragmentGeneratorConfig) *FragmentGenerator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = DefaultPageConcurrency
	}
	return &FragmentGenerator{
		embedder:    cfg.Embedder,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Generate embeds the metadata fragment of doc followed by one fragment per
// non-empty page, in page order. Blank pages are skipped without renumbering.
// Any embedding failure fails the whole document and no fragments are returned.
func (g *FragmentGenerator) Generate(ctx context.Context, doc *domain.Document, pages []string) ([]*domain.Fragment, error) {
	metaText := doc.MetadataText()

	type pageJob struct {
		index int
		text  string
	}
	var jobs []pageJob
	for i, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		jobs = append(jobs, pageJob{index: i, text: p})
	}

	fragments := make([]*domain.Fragment, len(jobs)+1)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	eg.Go(func() error {
		vec, err := g.embedOne(egCtx, metaText)
		if err != nil {
			return fmt.Errorf("metadata fragment: %w", err)
		}
		fragments[0] = domain.NewMetadataFragment(metaText, vec)
		return nil
	})

	for i, job := range jobs {
		slot := i + 1
		eg.Go(func() error {
			vec, err := g.embedOne(egCtx, job.text)
			if err != nil {
				return fmt.Errorf("page %d: %w", job.index, err)
			}
			fragments[slot] = domain.NewPageFragment(job.index, job.text, vec)
			g.logger.Debug("embedded page", "document_id", doc.ID, "page", job.index)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	dims := len(fragments[0].Embedding)
	for _, f := range fragments[1:] {
		if len(f.Embedding) != dims {
			return nil, fmt.Errorf("%w: page %d has %d dimensions, metadata has %d",
				domain.ErrEmbeddingProvider, f.PageIndex, len(f.Embedding), dims)
		}
	}

	return fragments, nil
}

func (g *FragmentGenerator) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, wrapEmbeddingError(err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", domain.ErrEmbeddingProvider)
	}
	return vecs[0], nil
}

func wrapEmbeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingProvider) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrEmbeddingProvider, err)
}
