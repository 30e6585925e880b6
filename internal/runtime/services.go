package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/llmserver/internal/adapters/driven/ai"
	"github.com/custodia-labs/llmserver/internal/adapters/driven/pdf"
	"github.com/custodia-labs/llmserver/internal/adapters/driven/pinecone"
	"github.com/custodia-labs/llmserver/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/llmserver/internal/adapters/driven/redis"
	"github.com/custodia-labs/llmserver/internal/config"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
	"github.com/custodia-labs/llmserver/internal/core/services"
)

// Services holds every wired adapter and service of one process.
// Close releases connections in reverse construction order.
type Services struct {
	Config *config.Config

	// Driving services
	Documents driving.DocumentService
	Search    driving.SearchService
	Context   driving.ContextService
	Chat      driving.ChatService

	// Driven adapters
	Index     driven.VectorIndex
	Embedder  driven.EmbeddingService
	Extractor driven.TextExtractor
	Providers driven.LLMProviderFactory
	Lock      driven.DistributedLock // nil when no lock backend is configured

	closers []func() error
}

// Build constructs the adapters selected by cfg and wires the services.
// Missing embedding or LLM credentials do not fail the build; the affected
// operations fail per request with domain.ErrNotConfigured.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Services, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Services{Config: cfg}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	// Embeddings
	embedder, err := ai.CreateEmbeddingService(&cfg.Embedding.EmbeddingSettings, cfg.Embedding.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}
	if embedder == nil {
		logger.Warn("embedding provider not configured; indexing and search will fail until OPENAI_API_KEY or EMBEDDING_API_KEY is set")
		embedder = newUnavailableEmbedder(cfg.Embedding.Model, cfg.Embedding.Dimensions)
	}
	s.Embedder = embedder
	logger.Info("embedding model", "model", embedder.Model(), "dimensions", embedder.Dimensions())
	s.closers = append(s.closers, embedder.Close)

	// Vector index and lock
	var db *postgres.DB
	switch cfg.Vector.Backend {
	case config.BackendPinecone:
		pcfg := pinecone.DefaultConfig(cfg.Vector.Pinecone.Host, cfg.Vector.Pinecone.APIKey)
		pcfg.Namespace = cfg.Vector.Pinecone.Namespace
		index, err := pinecone.NewIndex(pcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pinecone index: %w", err)
		}
		s.closers = append(s.closers, index.Close)
		s.Index = index

	case config.BackendPGVector:
		dbCfg := postgres.DefaultConfig(cfg.Vector.Postgres.URL)
		if cfg.Vector.Postgres.MaxOpenConns > 0 {
			dbCfg.MaxOpenConns = cfg.Vector.Postgres.MaxOpenConns
		}
		if cfg.Vector.Postgres.MaxIdleConns > 0 {
			dbCfg.MaxIdleConns = cfg.Vector.Postgres.MaxIdleConns
		}
		db, err = postgres.Connect(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := db.InitSchema(ctx, embedder.Dimensions()); err != nil {
			return nil, err
		}
		s.Index = postgres.NewVectorIndex(db, postgres.VectorIndexConfig{Namespace: cfg.Vector.Pinecone.Namespace})
		logger.Info("using pgvector index", "dimensions", embedder.Dimensions())
	}

	switch {
	case cfg.Lock.RedisURL != "":
		client, err := redisadapter.NewClient(ctx, cfg.Lock.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		lock := redisadapter.NewLock(client)
		s.Lock = lock
		logger.Info("document lock enabled", "backend", "redis", "owner_id", lock.OwnerID())
	case db != nil:
		s.Lock = postgres.NewAdvisoryLock(db)
		logger.Info("document lock enabled", "backend", "postgres")
	}

	// PDF extraction
	engine, err := pdf.ParseEngine(cfg.PDF.Engine)
	if err != nil {
		return nil, err
	}
	if engine == pdf.EnginePDFToText {
		if err := pdf.CheckAvailable(); err != nil {
			logger.Warn("pdftotext not found; document indexing will fail", "install", pdf.InstallInstructions())
		}
	}
	s.Extractor = pdf.NewExtractor(pdf.Config{Engine: engine, Timeout: cfg.PDF.FetchTimeout})

	// LLM providers
	s.Providers = ai.NewFactory(cfg.LLM.Providers, cfg.LLM.Timeout)

	// Services
	gateway := services.NewVectorGateway(s.Index, logger)
	s.Documents = services.NewDocumentService(services.DocumentServiceConfig{
		Extractor: s.Extractor,
		Generator: services.NewFragmentGenerator(services.FragmentGeneratorConfig{
			Embedder:    embedder,
			Concurrency: cfg.Embedding.Concurrency,
			Logger:      logger,
		}),
		Gateway: gateway,
		Lock:    s.Lock,
		LockTTL: cfg.Lock.TTL,
		Logger:  logger,
	})
	s.Search = services.NewSearchService(services.SearchServiceConfig{
		Embedder:           embedder,
		Ranker:             services.NewRanker(gateway),
		DefaultTopN:        cfg.Retrieval.TopN,
		DefaultOversampleK: cfg.Retrieval.OversampleK,
		Logger:             logger,
	})
	s.Context, err = services.NewContextService(services.ContextServiceConfig{
		Extractor: s.Extractor,
		Factory:   s.Providers,
		Provider:  cfg.LLM.ContextProvider,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context service: %w", err)
	}
	s.Chat = services.NewChatService(s.Providers, logger)

	return s, nil
}

// Close releases every resource acquired by Build
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
