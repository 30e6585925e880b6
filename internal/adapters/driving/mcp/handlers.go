package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	search  driving.SearchService
	ranking driving.ContextService
	chat    driving.ChatService
	logger  *slog.Logger
}

type searchMatch struct {
	ID              string `json:"id"`
	DocumentID      string `json:"documentId"`
	Type            string `json:"type"`
	Page            *int   `json:"page"`
	SimilarityScore string `json:"similarityScore"`
}

// SearchDocuments handles the search_documents tool
func (h *Handlers) SearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	courseID, err := request.RequireString("course_id")
	if err != nil {
		return mcp.NewToolResultError("course_id argument is required and must be a string"), nil
	}

	results, err := h.search.Search(ctx, domain.SearchRequest{
		Question: question,
		CourseID: courseID,
		TopN:     request.GetInt("documents_number", domain.DefaultTopN),
	})
	if err != nil {
		h.logger.Warn("mcp search failed", "course_id", courseID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	matches := make([]searchMatch, 0, len(results))
	for _, r := range results {
		m := searchMatch{
			ID:              r.VectorID,
			DocumentID:      r.DocumentID,
			Type:            string(r.FragmentType),
			SimilarityScore: fmt.Sprintf("%.4f", r.Score),
		}
		if r.FragmentType == domain.FragmentTypePage {
			page := r.PageIndex
			m.Page = &page
		}
		matches = append(matches, m)
	}
	return jsonResult(map[string]any{"matches": matches})
}

// RankDocuments handles the rank_documents tool
func (h *Handlers) RankDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Question  string             `json:"question"`
		Documents []*domain.Document `json:"documents"`
	}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Question == "" {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	if args.Documents == nil {
		return mcp.NewToolResultError("documents argument is required and must be an array"), nil
	}

	answer, err := h.ranking.RankContext(ctx, args.Question, args.Documents)
	if err != nil {
		h.logger.Warn("mcp rank failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("ranking failed: %v", err)), nil
	}
	return jsonResult(answer)
}

// Ask handles the ask tool
func (h *Handlers) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Question    string            `json:"question"`
		Provider    string            `json:"provider"`
		ChatHistory []domain.ChatTurn `json:"chat_history"`
	}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Question == "" {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	if args.Provider == "" {
		args.Provider = string(domain.ProviderOpenAI)
	}

	answer, err := h.chat.Ask(ctx, domain.ChatRequest{
		Question: args.Question,
		Provider: domain.ProviderKey(args.Provider),
		History:  args.ChatHistory,
	})
	if err != nil {
		h.logger.Warn("mcp ask failed", "provider", args.Provider, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
