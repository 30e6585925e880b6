package mocks

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// ErrMockIndex is returned when a failure has been injected
var ErrMockIndex = errors.New("mock index failure")

// MockVectorIndex is an in-memory VectorIndex.
// Like the hosted index it pages prefix listings and answers an empty
// first page with domain.ErrNoVectors. Query scores by cosine similarity
// unless hits have been scripted with SetQueryHits.
type MockVectorIndex struct {
	mu       sync.RWMutex
	records  map[string]*domain.VectorRecord
	pageSize int

	scripted []domain.IndexHit

	FailUpsert bool
	FailList   bool
	FailDelete bool
	FailQuery  bool

	upsertCalls int
	listCalls   int
	deleteCalls [][]string
	lastTopK    int
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		records:  make(map[string]*domain.VectorRecord),
		pageSize: 100,
	}
}

var _ driven.VectorIndex = (*MockVectorIndex)(nil)

func (m *MockVectorIndex) Upsert(ctx context.Context, records []*domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls++
	if m.FailUpsert {
		return ErrMockIndex
	}
	for _, r := range records {
		copied := *r
		m.records[r.ID] = &copied
	}
	return nil
}

func (m *MockVectorIndex) ListIDs(ctx context.Context, prefix, token string) (*driven.ListPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	if m.FailList {
		return nil, ErrMockIndex
	}

	var ids []string
	for id := range m.records {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if len(ids) == 0 && token == "" {
		return nil, domain.ErrNoVectors
	}

	// Tokens are the last ID of the previous page, so deleting while
	// paging does not skip records.
	start := 0
	if token != "" {
		start = sort.SearchStrings(ids, token)
		if start < len(ids) && ids[start] == token {
			start++
		}
	}
	end := start + m.pageSize
	if end > len(ids) {
		end = len(ids)
	}

	page := &driven.ListPage{IDs: ids[start:end]}
	if end < len(ids) {
		page.NextToken = ids[end-1]
	}
	return page, nil
}

func (m *MockVectorIndex) DeleteIDs(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCalls = append(m.deleteCalls, append([]string(nil), ids...))
	if m.FailDelete {
		return ErrMockIndex
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.IndexHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastTopK = topK
	if m.FailQuery {
		return nil, ErrMockIndex
	}

	var hits []domain.IndexHit
	if m.scripted != nil {
		hits = append(hits, m.scripted...)
	} else {
		for id, r := range m.records {
			hits = append(hits, domain.IndexHit{ID: id, Score: cosine(vector, r.Embedding)})
		}
		sort.SliceStable(hits, func(i, j int) bool {
			if hits[i].Score == hits[j].Score {
				return hits[i].ID < hits[j].ID
			}
			return hits[i].Score > hits[j].Score
		})
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Helper methods for testing

// SetPageSize sets how many IDs ListIDs returns per page
func (m *MockVectorIndex) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetQueryHits scripts the hits returned by Query, in index order
func (m *MockVectorIndex) SetQueryHits(hits []domain.IndexHit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = hits
}

// IDs returns all stored vector IDs, sorted
func (m *MockVectorIndex) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Record returns the stored record for id, or nil
func (m *MockVectorIndex) Record(id string) *domain.VectorRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}

// UpsertCalls returns how many Upsert batches were received
func (m *MockVectorIndex) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upsertCalls
}

// ListCalls returns how many listing pages were requested
func (m *MockVectorIndex) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

// DeleteCalls returns the ID batches passed to DeleteIDs
func (m *MockVectorIndex) DeleteCalls() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]string(nil), m.deleteCalls...)
}

// LastTopK returns the topK of the most recent Query
func (m *MockVectorIndex) LastTopK() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTopK
}
