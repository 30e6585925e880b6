package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/swaggo/swag"

	// Registers the OpenAPI document served at /swagger/doc.json
	_ "github.com/custodia-labs/llmserver/docs"
	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// maxBodyBytes bounds request bodies; gptContext carries up to ten documents
const maxBodyBytes = 4 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"missing required fields: courseId"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// DocumentResponse acknowledges an index or delete operation
// @Description Document operation result
type DocumentResponse struct {
	Success     bool   `json:"success" example:"true"`
	DocumentID  string `json:"documentId" example:"doc-42"`
	VectorCount int    `json:"vectorCount,omitempty" example:"3"`
}

// DeleteDocumentRequest identifies a document to remove
type DeleteDocumentRequest struct {
	DocumentID string `json:"documentId" example:"doc-42"`
	CourseID   string `json:"courseId" example:"course-7"`
}

// SearchRequest is the body of /api/gptSearch
type SearchRequest struct {
	Question        string `json:"question" example:"¿Qué es una derivada?"`
	CourseID        string `json:"courseId" example:"course-7"`
	DocumentsNumber int    `json:"documentsNumber" example:"5"`
}

// SearchMatch is one ranked document
// @Description One ranked document; page is null for metadata matches
type SearchMatch struct {
	ID              string `json:"id" example:"doc-42_course-7_page_3"`
	DocumentID      string `json:"documentId" example:"doc-42"`
	Type            string `json:"type" example:"page"`
	Page            *int   `json:"page"`
	SimilarityScore string `json:"similarityScore" example:"0.8731"`
}

// SearchResponse lists ranked documents, best first
type SearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// ContextRequest is the body of /api/gptContext
type ContextRequest struct {
	Question  string             `json:"question"`
	Documents []*domain.Document `json:"documents"`
}

// LLMRequest is the body of /api/llm
type LLMRequest struct {
	Question    string            `json:"question" example:"Resume el tema 2"`
	Provider    string            `json:"provider" example:"openai"`
	ChatHistory []domain.ChatTurn `json:"chatHistory"`
}

// LLMResponse carries the provider's answer
type LLMResponse struct {
	Answer string `json:"answer"`
}

// ProvidersResponse lists registered provider keys
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks that the vector index and the document lock backend are reachable
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Vector index or document lock unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.index != nil {
		if err := s.index.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "vector index unavailable")
			return
		}
	}
	if s.lock != nil {
		if err := s.lock.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "component", "lock", "error", err)
			writeError(w, http.StatusServiceUnavailable, "document lock unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Document endpoints

// handleAddDocument godoc
// @Summary      Index a document
// @Description  Extracts the PDF at firebaseUrl, embeds metadata and every non-blank page, and upserts all vectors in one batch
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        request  body      domain.Document  true  "Document to index"
// @Success      200      {object}  DocumentResponse
// @Failure      400      {object}  ErrorResponse  "Missing required fields"
// @Failure      409      {object}  ErrorResponse  "Document is being modified"
// @Failure      500      {object}  ErrorResponse  "Extraction, embedding or index failure"
// @Router       /api/addDocumentPinecone [post]
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var doc domain.Document
	if !s.decode(w, r, &doc) {
		return
	}

	result, err := s.docService.AddDocument(r.Context(), &doc)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DocumentResponse{
		Success:     true,
		DocumentID:  result.DocumentID,
		VectorCount: len(result.VectorIDs),
	})
}

// handleDeleteDocument godoc
// @Summary      Delete a document
// @Description  Removes every vector of the document in the course. Deleting an unknown document succeeds.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        request  body      DeleteDocumentRequest  true  "Document to delete"
// @Success      200      {object}  DocumentResponse
// @Failure      400      {object}  ErrorResponse  "Missing required fields"
// @Failure      409      {object}  ErrorResponse  "Document is being modified"
// @Failure      500      {object}  ErrorResponse  "Index failure"
// @Router       /api/deleteDocumentPinecone [post]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	var req DeleteDocumentRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.docService.DeleteDocument(r.Context(), req.DocumentID, req.CourseID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DocumentResponse{Success: true, DocumentID: req.DocumentID})
}

// Retrieval endpoints

// handleSearch godoc
// @Summary      Semantic document search
// @Description  Returns at most documentsNumber documents of the course, one match per document, best first
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        request  body      SearchRequest  true  "Search query"
// @Success      200      {object}  SearchResponse
// @Failure      400      {object}  ErrorResponse  "Missing required fields"
// @Failure      500      {object}  ErrorResponse  "Embedding or index failure"
// @Router       /api/gptSearch [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := s.searchService.Search(r.Context(), domain.SearchRequest{
		Question: req.Question,
		CourseID: req.CourseID,
		TopN:     req.DocumentsNumber,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := SearchResponse{Matches: make([]SearchMatch, 0, len(results))}
	for _, res := range results {
		resp.Matches = append(resp.Matches, toSearchMatch(res))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleContext godoc
// @Summary      Re-rank candidate documents with a language model
// @Description  Renders up to ten candidates with their first two pages and returns the model's raw answer. explanation and ids are set when the answer is valid JSON.
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        request  body      ContextRequest  true  "Question and candidates"
// @Success      200      {object}  domain.ContextAnswer
// @Failure      400      {object}  ErrorResponse  "Missing required fields"
// @Failure      500      {object}  ErrorResponse  "Provider failure"
// @Router       /api/gptContext [post]
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if !s.decode(w, r, &req) {
		return
	}

	answer, err := s.contextService.RankContext(r.Context(), req.Question, req.Documents)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// Chat endpoints

// handleLLM godoc
// @Summary      Ask a language model
// @Description  Sends the question with the last five chat turns to the named provider
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      LLMRequest  true  "Question, provider and history"
// @Success      200      {object}  LLMResponse
// @Failure      400      {object}  ErrorResponse  "Missing required fields"
// @Failure      500      {object}  ErrorResponse  "Unknown provider or provider failure"
// @Router       /api/llm [post]
func (s *Server) handleLLM(w http.ResponseWriter, r *http.Request) {
	var req LLMRequest
	if !s.decode(w, r, &req) {
		return
	}

	answer, err := s.chatService.Ask(r.Context(), domain.ChatRequest{
		Question: req.Question,
		Provider: domain.ProviderKey(req.Provider),
		History:  req.ChatHistory,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LLMResponse{Answer: answer})
}

// handleListProviders godoc
// @Summary      List LLM providers
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  ProvidersResponse
// @Router       /api/providers [get]
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	keys := s.chatService.Providers()
	resp := ProvidersResponse{Providers: make([]string, 0, len(keys))}
	for _, k := range keys {
		resp.Providers = append(resp.Providers, string(k))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Helper functions

func toSearchMatch(res *domain.RankedResult) SearchMatch {
	m := SearchMatch{
		ID:              res.VectorID,
		DocumentID:      res.DocumentID,
		Type:            string(res.FragmentType),
		SimilarityScore: similarityScore(res.Score),
	}
	if res.FragmentType == domain.FragmentTypePage {
		page := res.PageIndex
		m.Page = &page
	}
	return m
}

// similarityScore renders a score as a 4-decimal fixed-point string
func similarityScore(score float64) string {
	return fmt.Sprintf("%.4f", score)
}

// decode reads a JSON body into v, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDocumentBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err)
	}
	writeError(w, status, errorMessage(err))
}

// errorMessage strips the redundant sentinel prefix of invalid input errors
func errorMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, domain.ErrInvalidInput) {
		if trimmed := strings.TrimPrefix(msg, domain.ErrInvalidInput.Error()+": "); trimmed != "" {
			return trimmed
		}
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
