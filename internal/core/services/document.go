package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// DefaultLockTTL bounds how long one ingest or delete may hold a document
const DefaultLockTTL = 5 * time.Minute

// DocumentServiceConfig holds dependencies for the document service
type DocumentServiceConfig struct {
	Extractor driven.TextExtractor
	Generator *FragmentGenerator
	Gateway   *VectorGateway
	// Lock is optional. When nil, concurrent writes to one document are not coordinated.
	Lock    driven.DistributedLock
	LockTTL time.Duration
	Logger  *slog.Logger
}

// documentService implements the ingestion and deletion write paths
type documentService struct {
	extractor driven.TextExtractor
	generator *FragmentGenerator
	gateway   *VectorGateway
	lock      driven.DistributedLock
	lockTTL   time.Duration
	logger    *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentServiceConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &documentService{
		extractor: cfg.Extractor,
		generator: cfg.Generator,
		gateway:   cfg.Gateway,
		lock:      cfg.Lock,
		lockTTL:   ttl,
		logger:    logger,
	}
}

// AddDocument extracts every page of doc, embeds the fragments and upserts them in one batch
func (s *documentService) AddDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, doc.ID, doc.CourseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()

	pages, err := s.extractor.ExtractPages(ctx, doc.ContentURL, 0)
	if err != nil {
		return nil, err
	}

	fragments, err := s.generator.Generate(ctx, doc, pages)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	ids, err := s.gateway.Upsert(ctx, doc.ID, doc.CourseID, fragments)
	if err != nil {
		return nil, fmt.Errorf("index document %s: %w", doc.ID, err)
	}

	s.logger.Info("document indexed",
		"document_id", doc.ID,
		"course_id", doc.CourseID,
		"pages", len(pages),
		"vectors", len(ids),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &domain.IngestResult{
		DocumentID: doc.ID,
		CourseID:   doc.CourseID,
		VectorIDs:  ids,
	}, nil
}

// DeleteDocument removes all vectors of documentID in courseID
func (s *documentService) DeleteDocument(ctx context.Context, documentID, courseID string) error {
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: documentId is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(courseID) == "" {
		return fmt.Errorf("%w: courseId is required", domain.ErrInvalidInput)
	}

	unlock, err := s.acquire(ctx, documentID, courseID)
	if err != nil {
		return err
	}
	defer unlock()

	deleted, err := s.gateway.DeleteDocument(ctx, documentID, courseID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}

	s.logger.Info("document deleted",
		"document_id", documentID,
		"course_id", courseID,
		"vectors", deleted,
	)
	return nil
}

// acquire takes the document lock when one is configured.
// The returned func releases it and is always safe to call.
func (s *documentService) acquire(ctx context.Context, documentID, courseID string) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}

	name := lockName(documentID, courseID)
	ok, err := s.lock.Acquire(ctx, name, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire document lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s in course %s", domain.ErrDocumentBusy, documentID, courseID)
	}

	return func() {
		// Release on a fresh context so a cancelled request still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(releaseCtx, name); err != nil {
			s.logger.Warn("failed to release document lock", "lock", name, "error", err)
		}
	}, nil
}

func lockName(documentID, courseID string) string {
	return "document:" + courseID + ":" + documentID
}

func validateDocument(doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is required", domain.ErrInvalidInput)
	}
	required := []struct {
		field string
		value string
	}{
		{"documentId", doc.ID},
		{"courseId", doc.CourseID},
		{"firebaseUrl", doc.ContentURL},
		{"title", doc.Title},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}
