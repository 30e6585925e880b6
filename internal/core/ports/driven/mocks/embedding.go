package mocks

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
)

// ErrMockEmbedding is returned when a failure has been injected
var ErrMockEmbedding = errors.New("mock embedding failure")

// MockEmbeddingService produces deterministic vectors from a text hash.
// Identical texts always map to identical vectors.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string
	failOn     map[string]bool
	failAll    bool
	calls      [][]string
	queries    []string
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 8,
		model:      "mock-embedding-model",
		failOn:     make(map[string]bool),
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]string(nil), texts...))
	if m.failAll {
		return nil, ErrMockEmbedding
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		if m.failOn[text] {
			return nil, ErrMockEmbedding
		}
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, query)
	if m.failAll || m.failOn[query] {
		return nil, ErrMockEmbedding
	}
	return m.generateEmbedding(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// generateEmbedding generates a deterministic embedding based on text hash
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

// EmbeddingFor returns the vector this mock produces for text
func (m *MockEmbeddingService) EmbeddingFor(text string) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateEmbedding(text)
}

// SetFailAll makes every call fail
func (m *MockEmbeddingService) SetFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// FailOn makes any call containing text fail
func (m *MockEmbeddingService) FailOn(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[text] = true
}

// Calls returns the text batches passed to Embed
func (m *MockEmbeddingService) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

// Queries returns the texts passed to EmbedQuery
func (m *MockEmbeddingService) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}
