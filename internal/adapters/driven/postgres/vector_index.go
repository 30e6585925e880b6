package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// DefaultListLimit is the page size of prefix listings
const DefaultListLimit = 100

// VectorIndex implements driven.VectorIndex on PostgreSQL with pgvector.
// Similarity is cosine, reported as 1 - cosine distance.
type VectorIndex struct {
	db        *DB
	namespace string
	listLimit int
}

// VectorIndexConfig holds pgvector index configuration
type VectorIndexConfig struct {
	// Namespace partitions rows the way a Pinecone namespace does
	Namespace string

	// ListLimit is the page size for ListIDs
	ListLimit int
}

// NewVectorIndex creates a pgvector-backed VectorIndex.
// InitSchema must have been run with the embedding dimensions.
func NewVectorIndex(db *DB, cfg VectorIndexConfig) *VectorIndex {
	limit := cfg.ListLimit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return &VectorIndex{db: db, namespace: cfg.Namespace, listLimit: limit}
}

// Upsert writes all records in one transaction, overwriting existing keys
func (v *VectorIndex) Upsert(ctx context.Context, records []*domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := v.db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO llm_vectors (namespace, id, course_id, document_id, fragment_type, page_index, embedding, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (namespace, id) DO UPDATE SET
				course_id = EXCLUDED.course_id,
				document_id = EXCLUDED.document_id,
				fragment_type = EXCLUDED.fragment_type,
				page_index = EXCLUDED.page_index,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				v.namespace,
				r.ID,
				r.CourseID,
				r.DocumentID,
				string(r.FragmentType),
				nullPage(r.PageIndex),
				pgvector.NewVector(r.Embedding),
			); err != nil {
				return fmt.Errorf("upsert %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// ListIDs pages through IDs with the given prefix in key order.
// The token is the last ID of the previous page.
func (v *VectorIndex) ListIDs(ctx context.Context, prefix, token string) (*driven.ListPage, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT id FROM llm_vectors
		WHERE namespace = $1 AND starts_with(id, $2) AND id > $3
		ORDER BY id
		LIMIT $4
	`, v.namespace, prefix, token, v.listLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: list %q: %v", domain.ErrIndexQuery, prefix, err)
	}
	defer rows.Close()

	page := &driven.ListPage{IDs: make([]string, 0, v.listLimit)}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: list %q: %v", domain.ErrIndexQuery, prefix, err)
		}
		page.IDs = append(page.IDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %q: %v", domain.ErrIndexQuery, prefix, err)
	}

	if len(page.IDs) == 0 && token == "" {
		return nil, domain.ErrNoVectors
	}
	if len(page.IDs) == v.listLimit {
		page.NextToken = page.IDs[len(page.IDs)-1]
	}
	return page, nil
}

// DeleteIDs removes the given vectors
func (v *VectorIndex) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := v.db.ExecContext(ctx,
		"DELETE FROM llm_vectors WHERE namespace = $1 AND id = ANY($2)",
		v.namespace, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("%w: delete %d vectors: %v", domain.ErrIndexWrite, len(ids), err)
	}
	return nil
}

// Query returns the topK rows closest to vector by cosine distance
func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.IndexHit, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT id, 1 - (embedding <=> $2) AS score
		FROM llm_vectors
		WHERE namespace = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, v.namespace, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrIndexQuery, err)
	}
	defer rows.Close()

	hits := make([]domain.IndexHit, 0, topK)
	for rows.Next() {
		var hit domain.IndexHit
		if err := rows.Scan(&hit.ID, &hit.Score); err != nil {
			return nil, fmt.Errorf("%w: query: %v", domain.ErrIndexQuery, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrIndexQuery, err)
	}
	return hits, nil
}

// HealthCheck verifies the database is reachable
func (v *VectorIndex) HealthCheck(ctx context.Context) error {
	return v.db.PingContext(ctx)
}
