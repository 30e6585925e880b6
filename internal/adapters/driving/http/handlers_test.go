package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/llmserver/internal/adapters/driven/ai"
	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/llmserver/internal/core/services"
)

// Mock services for testing

type mockDocumentService struct {
	addFn    func(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error)
	deleteFn func(ctx context.Context, documentID, courseID string) error
}

func (m *mockDocumentService) AddDocument(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
	if m.addFn != nil {
		return m.addFn(ctx, doc)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) DeleteDocument(ctx context.Context, documentID, courseID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, documentID, courseID)
	}
	return errors.New("not implemented")
}

type mockSearchService struct {
	searchFn func(ctx context.Context, req domain.SearchRequest) ([]*domain.RankedResult, error)
}

func (m *mockSearchService) Search(ctx context.Context, req domain.SearchRequest) ([]*domain.RankedResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockContextService struct {
	rankFn func(ctx context.Context, question string, documents []*domain.Document) (*domain.ContextAnswer, error)
}

func (m *mockContextService) RankContext(ctx context.Context, question string, documents []*domain.Document) (*domain.ContextAnswer, error) {
	if m.rankFn != nil {
		return m.rankFn(ctx, question, documents)
	}
	return nil, errors.New("not implemented")
}

type mockChatService struct {
	askFn func(ctx context.Context, req domain.ChatRequest) (string, error)
	keys  []domain.ProviderKey
}

func (m *mockChatService) Ask(ctx context.Context, req domain.ChatRequest) (string, error) {
	if m.askFn != nil {
		return m.askFn(ctx, req)
	}
	return "", errors.New("not implemented")
}

func (m *mockChatService) Providers() []domain.ProviderKey {
	return m.keys
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func newTestServer(svc Services) *Server {
	return NewServer(DefaultConfig(), svc, nil)
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected non-empty error message")
	}
	return resp.Error
}

// Health Handler Tests

func TestHealthHandler(t *testing.T) {
	s := newTestServer(Services{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var resp StatusResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name     string
		index    HealthChecker
		lock     Pinger
		expected int
		message  string
	}{
		{"no backends", nil, nil, http.StatusOK, ""},
		{"healthy index", &mockHealthChecker{}, nil, http.StatusOK, ""},
		{"unhealthy index", &mockHealthChecker{err: errors.New("connection refused")}, &mockPinger{}, http.StatusServiceUnavailable, "vector index unavailable"},
		{"healthy index and lock", &mockHealthChecker{}, &mockPinger{}, http.StatusOK, ""},
		{"unreachable lock", &mockHealthChecker{}, &mockPinger{err: errors.New("dial tcp: connection refused")}, http.StatusServiceUnavailable, "document lock unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(Services{Index: tt.index, Lock: tt.lock})
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
			if tt.message != "" {
				if got := decodeError(t, rr); got != tt.message {
					t.Errorf("expected error %q, got %q", tt.message, got)
				}
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	s := NewServer(cfg, Services{}, nil)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	var resp VersionResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
}

func TestSwaggerHandler(t *testing.T) {
	s := newTestServer(Services{})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, path := range []string{`"/api/gptSearch"`, `"/api/providers"`, `"/health"`, `"/ready"`, `"/version"`} {
		if !strings.Contains(body, path) {
			t.Errorf("expected API document to describe %s", path)
		}
	}
	if !strings.Contains(body, `"basePath": "/"`) {
		t.Error("expected API document to use the root base path")
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "bad request")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %s", ct)
	}
	if msg := decodeError(t, rr); msg != "bad request" {
		t.Errorf("expected 'bad request', got %s", msg)
	}
}

func TestSimilarityScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{0.87314159, "0.8731"},
		{1, "1.0000"},
		{0, "0.0000"},
		{0.99995, "1.0000"},
		{-0.12345, "-0.1235"},
	}
	for _, tt := range tests {
		if got := similarityScore(tt.score); got != tt.expected {
			t.Errorf("similarityScore(%v) = %s, want %s", tt.score, got, tt.expected)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid input", fmt.Errorf("%w: missing required fields: courseId", domain.ErrInvalidInput), http.StatusBadRequest},
		{"busy", domain.ErrDocumentBusy, http.StatusConflict},
		{"unsupported provider", fmt.Errorf("%w: unknown", domain.ErrUnsupportedProvider), http.StatusInternalServerError},
		{"embedding", domain.ErrEmbeddingProvider, http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

// Document Handler Tests

func TestHandleAddDocument_Success(t *testing.T) {
	var got *domain.Document
	docs := &mockDocumentService{
		addFn: func(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
			got = doc
			return &domain.IngestResult{
				DocumentID: doc.ID,
				CourseID:   doc.CourseID,
				VectorIDs:  []string{"d1_c1_metadata", "d1_c1_page_0", "d1_c1_page_2"},
			}, nil
		},
	}
	s := newTestServer(Services{Documents: docs})

	rr := postJSON(t, s, "/api/addDocumentPinecone", `{
		"documentId": "d1",
		"title": "Álgebra",
		"description": "Apuntes",
		"labels": ["matrices", "vectores"],
		"firebaseUrl": "https://files.example.com/d1.pdf",
		"courseId": "c1"
	}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp DocumentResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success || resp.DocumentID != "d1" || resp.VectorCount != 3 {
		t.Errorf("unexpected response %+v", resp)
	}
	if got == nil || got.ContentURL != "https://files.example.com/d1.pdf" || got.Labels.Text() != "matrices, vectores" {
		t.Errorf("unexpected decoded document %+v", got)
	}
}

func TestHandleAddDocument_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
		message  string
	}{
		{"missing fields", fmt.Errorf("%w: missing required fields: courseId", domain.ErrInvalidInput), http.StatusBadRequest, "missing required fields: courseId"},
		{"busy", domain.ErrDocumentBusy, http.StatusConflict, ""},
		{"embedding failure", fmt.Errorf("%w: rate limited", domain.ErrEmbeddingProvider), http.StatusInternalServerError, ""},
		{"index failure", fmt.Errorf("%w: upsert", domain.ErrIndexWrite), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &mockDocumentService{
				addFn: func(ctx context.Context, doc *domain.Document) (*domain.IngestResult, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(Services{Documents: docs})

			rr := postJSON(t, s, "/api/addDocumentPinecone", map[string]string{"documentId": "d1"})
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
			msg := decodeError(t, rr)
			if tt.message != "" && msg != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, msg)
			}
		})
	}
}

func TestHandleAddDocument_InvalidJSON(t *testing.T) {
	s := newTestServer(Services{Documents: &mockDocumentService{}})

	rr := postJSON(t, s, "/api/addDocumentPinecone", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	var gotDoc, gotCourse string
	docs := &mockDocumentService{
		deleteFn: func(ctx context.Context, documentID, courseID string) error {
			gotDoc, gotCourse = documentID, courseID
			return nil
		},
	}
	s := newTestServer(Services{Documents: docs})

	rr := postJSON(t, s, "/api/deleteDocumentPinecone", DeleteDocumentRequest{DocumentID: "d1", CourseID: "c7"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotDoc != "d1" || gotCourse != "c7" {
		t.Errorf("unexpected delete args %q %q", gotDoc, gotCourse)
	}

	var resp DocumentResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Success || resp.DocumentID != "d1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

// Retrieval Handler Tests

func TestHandleSearch_Success(t *testing.T) {
	var got domain.SearchRequest
	search := &mockSearchService{
		searchFn: func(ctx context.Context, req domain.SearchRequest) ([]*domain.RankedResult, error) {
			got = req
			return []*domain.RankedResult{
				{RetrievalMatch: domain.RetrievalMatch{VectorID: "a_c_page_3", DocumentID: "a", FragmentType: domain.FragmentTypePage, PageIndex: 3, Score: 0.912345}},
				{RetrievalMatch: domain.RetrievalMatch{VectorID: "b_c_metadata", DocumentID: "b", FragmentType: domain.FragmentTypeMetadata, PageIndex: -1, Score: 0.5}},
			}, nil
		},
	}
	s := newTestServer(Services{Search: search})

	rr := postJSON(t, s, "/api/gptSearch", SearchRequest{Question: "q", CourseID: "c", DocumentsNumber: 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.TopN != 2 || got.CourseID != "c" {
		t.Errorf("unexpected search request %+v", got)
	}

	var raw struct {
		Matches []map[string]any `json:"matches"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(raw.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(raw.Matches))
	}
	first := raw.Matches[0]
	if first["similarityScore"] != "0.9123" {
		t.Errorf("expected 4-decimal string score, got %v", first["similarityScore"])
	}
	if first["page"] != float64(3) || first["type"] != "page" || first["id"] != "a_c_page_3" {
		t.Errorf("unexpected first match %v", first)
	}
	if page, ok := raw.Matches[1]["page"]; !ok || page != nil {
		t.Errorf("expected null page for metadata match, got %v", page)
	}
}

func TestHandleSearch_EmptyResult(t *testing.T) {
	search := &mockSearchService{
		searchFn: func(ctx context.Context, req domain.SearchRequest) ([]*domain.RankedResult, error) {
			return []*domain.RankedResult{}, nil
		},
	}
	s := newTestServer(Services{Search: search})

	rr := postJSON(t, s, "/api/gptSearch", SearchRequest{Question: "q", CourseID: "c"})
	if !strings.Contains(rr.Body.String(), `"matches":[]`) {
		t.Errorf("expected empty matches array, got %s", rr.Body.String())
	}
}

func TestHandleSearch_ServiceError(t *testing.T) {
	search := &mockSearchService{
		searchFn: func(ctx context.Context, req domain.SearchRequest) ([]*domain.RankedResult, error) {
			return nil, fmt.Errorf("%w: index unavailable", domain.ErrIndexQuery)
		},
	}
	s := newTestServer(Services{Search: search})

	rr := postJSON(t, s, "/api/gptSearch", SearchRequest{Question: "q", CourseID: "c"})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	decodeError(t, rr)
}

func TestHandleContext(t *testing.T) {
	raw := "```json\n{\"explanation\":\"a\",\"ids\":[\"d2\"]}\n```"
	var gotDocs []*domain.Document
	ctxSvc := &mockContextService{
		rankFn: func(ctx context.Context, question string, documents []*domain.Document) (*domain.ContextAnswer, error) {
			gotDocs = documents
			return &domain.ContextAnswer{Raw: raw, Valid: true, Explanation: "a", IDs: []string{"d2"}}, nil
		},
	}
	s := newTestServer(Services{Context: ctxSvc})

	rr := postJSON(t, s, "/api/gptContext", `{"question":"q","documents":[{"documentId":"d1","title":"t1","labels":"x"},{"documentId":"d2","title":"t2"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(gotDocs) != 2 || gotDocs[0].Labels.Text() != "x" {
		t.Errorf("unexpected decoded documents %+v", gotDocs)
	}

	var resp domain.ContextAnswer
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Raw != raw {
		t.Errorf("expected raw model text to be returned unchanged, got %q", resp.Raw)
	}
	if !resp.Valid || len(resp.IDs) != 1 {
		t.Errorf("unexpected parsed answer %+v", resp)
	}
}

// Chat Handler Tests

func TestHandleLLM(t *testing.T) {
	var got domain.ChatRequest
	chat := &mockChatService{
		askFn: func(ctx context.Context, req domain.ChatRequest) (string, error) {
			got = req
			return "respuesta", nil
		},
	}
	s := newTestServer(Services{Chat: chat})

	rr := postJSON(t, s, "/api/llm", LLMRequest{
		Question:    "hola",
		Provider:    "gemini",
		ChatHistory: []domain.ChatTurn{{Question: "q1", Response: "r1"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.Provider != domain.ProviderGemini || len(got.History) != 1 {
		t.Errorf("unexpected chat request %+v", got)
	}

	var resp LLMResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Answer != "respuesta" {
		t.Errorf("expected answer 'respuesta', got %q", resp.Answer)
	}
}

func TestHandleListProviders(t *testing.T) {
	chat := &mockChatService{keys: []domain.ProviderKey{domain.ProviderDeepSeek, domain.ProviderOpenAI}}
	s := newTestServer(Services{Chat: chat})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/providers", nil))

	var resp ProvidersResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Providers) != 2 || resp.Providers[0] != "deepseek" {
		t.Errorf("unexpected providers %v", resp.Providers)
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	s := newTestServer(Services{Search: &mockSearchService{}})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/gptSearch", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

// End-to-end tests through the real services

func TestLLM_UnknownProvider_NoNetworkCalls(t *testing.T) {
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	settings := domain.DefaultProviderSettings()
	for i := range settings {
		settings[i].BaseURL = upstream.URL
		settings[i].APIKey = "sk-test"
	}
	factory := ai.NewFactory(settings, time.Second)
	s := newTestServer(Services{Chat: services.NewChatService(factory, nil)})

	rr := postJSON(t, s, "/api/llm", LLMRequest{Question: "hola", Provider: "unknown"})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); !strings.Contains(msg, "unknown") {
		t.Errorf("expected factory error message, got %q", msg)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("expected zero outbound calls, got %d", n)
	}
}

func TestLLM_MissingQuestion(t *testing.T) {
	llm := mocks.NewMockLLMProvider(domain.ProviderOpenAI, "x")
	s := newTestServer(Services{Chat: services.NewChatService(mocks.NewMockLLMProviderFactory(llm), nil)})

	rr := postJSON(t, s, "/api/llm", LLMRequest{Provider: "openai"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if len(llm.Calls()) != 0 {
		t.Error("expected no provider calls")
	}
}

func TestSearch_FewerDocumentsThanRequested(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	index := mocks.NewMockVectorIndex()

	var records []*domain.VectorRecord
	for d := 0; d < 3; d++ {
		docID := fmt.Sprintf("doc%d", d)
		records = append(records, domain.NewVectorRecord(docID, "c1",
			domain.NewMetadataFragment("meta", embedder.EmbeddingFor("meta "+docID))))
		for p := 0; p < 3; p++ {
			text := fmt.Sprintf("%s page %d", docID, p)
			records = append(records, domain.NewVectorRecord(docID, "c1",
				domain.NewPageFragment(p, text, embedder.EmbeddingFor(text))))
		}
	}
	if err := index.Upsert(context.Background(), records); err != nil {
		t.Fatalf("failed to seed index: %v", err)
	}

	search := services.NewSearchService(services.SearchServiceConfig{
		Embedder: embedder,
		Ranker:   services.NewRanker(services.NewVectorGateway(index, nil)),
	})
	s := newTestServer(Services{Search: search})

	rr := postJSON(t, s, "/api/gptSearch", SearchRequest{Question: "derivadas", CourseID: "c1", DocumentsNumber: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp SearchResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(resp.Matches))
	}
	seen := map[string]bool{}
	for _, m := range resp.Matches {
		if seen[m.DocumentID] {
			t.Errorf("duplicate document %s", m.DocumentID)
		}
		seen[m.DocumentID] = true
	}
}

func TestSearch_MissingCourse(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	search := services.NewSearchService(services.SearchServiceConfig{
		Embedder: embedder,
		Ranker:   services.NewRanker(services.NewVectorGateway(mocks.NewMockVectorIndex(), nil)),
	})
	s := newTestServer(Services{Search: search})

	rr := postJSON(t, s, "/api/gptSearch", SearchRequest{Question: "q"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if len(embedder.Queries()) != 0 {
		t.Error("expected no embedding calls for invalid input")
	}
}
