package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

func newTestEmbedding(t *testing.T, model, baseURL string) *OpenAIEmbedding {
	t.Helper()
	svc, err := NewOpenAIEmbedding(OpenAIEmbeddingConfig{APIKey: "sk-test", Model: model, BaseURL: baseURL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func TestNewOpenAIEmbedding_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedding(OpenAIEmbeddingConfig{Model: "text-embedding-3-small"})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewOpenAIEmbedding_Defaults(t *testing.T) {
	emb := newTestEmbedding(t, "", "")

	if emb.model != "text-embedding-3-small" {
		t.Errorf("expected default model text-embedding-3-small, got %s", emb.model)
	}
	if emb.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base URL, got %s", emb.baseURL)
	}
	if emb.client.Timeout <= 0 {
		t.Error("expected a client timeout")
	}
}

func TestOpenAIEmbedding_Dimensions(t *testing.T) {
	testCases := []struct {
		model      string
		override   int
		dimensions int
		send       bool
	}{
		{"text-embedding-3-small", 0, 1536, false},
		{"text-embedding-3-large", 0, 3072, false},
		{"text-embedding-ada-002", 0, 1536, false},
		{"unknown-model", 0, 1536, false}, // defaults to 1536
		{"text-embedding-3-large", 1024, 1024, true},
		{"text-embedding-3-small", 1536, 1536, false},
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			svc, err := NewOpenAIEmbedding(OpenAIEmbeddingConfig{APIKey: "sk-test", Model: tc.model, Dimensions: tc.override})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if svc.Dimensions() != tc.dimensions {
				t.Errorf("expected dimensions %d, got %d", tc.dimensions, svc.Dimensions())
			}
			if svc.sendDimensions != tc.send {
				t.Errorf("expected sendDimensions %v", tc.send)
			}
		})
	}
}

func TestOpenAIEmbedding_Embed_EmptyInput(t *testing.T) {
	svc := newTestEmbedding(t, "text-embedding-3-small", "")

	result, err := svc.Embed(context.Background(), []string{})
	if err != nil {
		t.Errorf("unexpected error for empty input: %v", err)
	}
	if result != nil {
		t.Error("expected nil result for empty input")
	}
}

func TestOpenAIEmbedding_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("expected Authorization header")
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Input) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(req.Input))
		}
		if req.Dimensions != 0 {
			t.Errorf("expected no dimensions override, got %d", req.Dimensions)
		}

		// Out of order on purpose
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"index":1,"embedding":[0.4,0.5,0.6]},
			{"index":0,"embedding":[0.1,0.2,0.3]}
		]}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, "text-embedding-3-small", server.URL)

	result, err := svc.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result))
	}
	if result[0][0] != 0.1 || result[1][0] != 0.4 {
		t.Error("embeddings not ordered by index")
	}
}

func TestOpenAIEmbedding_Embed_SendsDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Dimensions != 256 {
			t.Errorf("expected dimensions 256, got %d", req.Dimensions)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer server.Close()

	svc, err := NewOpenAIEmbedding(OpenAIEmbeddingConfig{APIKey: "k", BaseURL: server.URL, Dimensions: 256})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.EmbedQuery(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenAIEmbedding_Embed_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, "text-embedding-3-small", server.URL)

	_, err := svc.Embed(context.Background(), []string{"test"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestOpenAIEmbedding_Embed_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, "text-embedding-3-small", server.URL)

	_, err := svc.Embed(context.Background(), []string{"test"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestOpenAIEmbedding_Embed_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, "text-embedding-3-small", server.URL)

	_, err := svc.Embed(context.Background(), []string{"test"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestOpenAIEmbedding_Embed_NetworkError(t *testing.T) {
	// Use invalid URL to trigger network error
	svc := newTestEmbedding(t, "text-embedding-3-small", "http://localhost:99999")

	_, err := svc.Embed(context.Background(), []string{"test"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestOpenAIEmbedding_EmbedQuery_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, "text-embedding-3-small", server.URL)

	_, err := svc.EmbedQuery(context.Background(), "test query")
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider for empty data, got %v", err)
	}
}

func TestOpenAIEmbedding_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, "text-embedding-3-small", server.URL)

	if _, err := svc.EmbedQuery(context.Background(), "warm up"); err != nil {
		t.Errorf("expected no error from query, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("expected no error from Close, got %v", err)
	}
}
