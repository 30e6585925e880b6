// Package mcp exposes retrieval and chat as Model Context Protocol tools over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

// ServerName is announced to MCP clients
const ServerName = "llmserver"

// NewServer creates an MCP server with every tool registered
func NewServer(version string, h *Handlers) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, version)
	RegisterTools(server, h)
	return server
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, h *Handlers) {
	server.AddTool(mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over the indexed documents of one course. Returns one best match per document, best first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language query",
				},
				"course_id": map[string]interface{}{
					"type":        "string",
					"description": "Course whose documents are searched",
				},
				"documents_number": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of documents to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"question", "course_id"},
		},
	}, h.SearchDocuments)

	server.AddTool(mcp.Tool{
		Name:        "rank_documents",
		Description: "Ask a language model to select and order the most relevant of up to ten candidate documents, reading their first two pages.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question the documents should answer",
				},
				"documents": map[string]interface{}{
					"type":        "array",
					"description": "Candidate documents",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"documentId":  map[string]interface{}{"type": "string"},
							"title":       map[string]interface{}{"type": "string"},
							"description": map[string]interface{}{"type": "string"},
							"labels":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
							"firebaseUrl": map[string]interface{}{"type": "string"},
						},
						"required": []string{"documentId"},
					},
				},
			},
			Required: []string{"question", "documents"},
		},
	}, h.RankDocuments)

	server.AddTool(mcp.Tool{
		Name:        "ask",
		Description: "Ask a registered language model provider a question, optionally with previous turns.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to ask",
				},
				"provider": map[string]interface{}{
					"type":        "string",
					"description": "Provider key (openai, gemini, groq-llama, deepseek)",
					"default":     "openai",
				},
				"chat_history": map[string]interface{}{
					"type":        "array",
					"description": "Previous turns, oldest first; only the last five are used",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"question": map[string]interface{}{"type": "string"},
							"response": map[string]interface{}{"type": "string"},
						},
					},
				},
			},
			Required: []string{"question"},
		},
	}, h.Ask)
}

// NewHandlers wires the tool handlers to the driving services
func NewHandlers(search driving.SearchService, ranking driving.ContextService, chat driving.ChatService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{search: search, ranking: ranking, chat: chat, logger: logger}
}
