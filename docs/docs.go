// Package docs holds the OpenAPI document for the llmserver HTTP API.
// Regenerate with: swag init -g cmd/llmserver/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Custodia Labs",
            "url": "https://github.com/custodia-labs/llmserver/issues"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns the liveness status of the API",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Checks that the vector index and the document lock backend are reachable",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}},
                    "503": {"description": "Vector index or document lock unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/version": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Get API version",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VersionResponse"}}
                }
            }
        },
        "/api/addDocumentPinecone": {
            "post": {
                "description": "Extracts the PDF at firebaseUrl, embeds metadata and every non-blank page, and upserts all vectors in one batch",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Index a document",
                "parameters": [
                    {
                        "description": "Document to index",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/domain.Document"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.DocumentResponse"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Document is being modified", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Extraction, embedding or index failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/deleteDocumentPinecone": {
            "post": {
                "description": "Removes every vector of the document in the course. Deleting an unknown document succeeds.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Documents"],
                "summary": "Delete a document",
                "parameters": [
                    {
                        "description": "Document to delete",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.DeleteDocumentRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.DocumentResponse"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Document is being modified", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Index failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/gptSearch": {
            "post": {
                "description": "Returns at most documentsNumber documents of the course, one match per document, best first",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "Semantic document search",
                "parameters": [
                    {
                        "description": "Search query",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.SearchRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SearchResponse"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Embedding or index failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/gptContext": {
            "post": {
                "description": "Renders up to ten candidates with their first two pages and returns the model's raw answer. explanation and ids are set when the answer is valid JSON.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Retrieval"],
                "summary": "Re-rank candidate documents with a language model",
                "parameters": [
                    {
                        "description": "Question and candidates",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.ContextRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ContextAnswer"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Provider failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/llm": {
            "post": {
                "description": "Sends the question with the last five chat turns to the named provider",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Chat"],
                "summary": "Ask a language model",
                "parameters": [
                    {
                        "description": "Question, provider and history",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.LLMRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.LLMResponse"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Unknown provider or provider failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/providers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Chat"],
                "summary": "List LLM providers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ProvidersResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ChatTurn": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "response": {"type": "string"}
            }
        },
        "domain.ContextAnswer": {
            "type": "object",
            "properties": {
                "gptResponse": {"type": "string"},
                "valid": {"type": "boolean"},
                "explanation": {"type": "string"},
                "ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "domain.Document": {
            "type": "object",
            "properties": {
                "documentId": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "labels": {"description": "array of strings or any JSON value"},
                "firebaseUrl": {"type": "string"},
                "courseId": {"type": "string"}
            }
        },
        "http.ContextRequest": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "documents": {"type": "array", "items": {"$ref": "#/definitions/domain.Document"}}
            }
        },
        "http.DeleteDocumentRequest": {
            "type": "object",
            "properties": {
                "documentId": {"type": "string", "example": "doc-42"},
                "courseId": {"type": "string", "example": "course-7"}
            }
        },
        "http.DocumentResponse": {
            "description": "Document operation result",
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "documentId": {"type": "string", "example": "doc-42"},
                "vectorCount": {"type": "integer", "example": 3}
            }
        },
        "http.ErrorResponse": {
            "description": "API error response",
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "missing required fields: courseId"}
            }
        },
        "http.LLMRequest": {
            "type": "object",
            "properties": {
                "question": {"type": "string", "example": "Resume el tema 2"},
                "provider": {"type": "string", "example": "openai"},
                "chatHistory": {"type": "array", "items": {"$ref": "#/definitions/domain.ChatTurn"}}
            }
        },
        "http.LLMResponse": {
            "type": "object",
            "properties": {
                "answer": {"type": "string"}
            }
        },
        "http.ProvidersResponse": {
            "type": "object",
            "properties": {
                "providers": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.SearchMatch": {
            "description": "One ranked document; page is null for metadata matches",
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "doc-42_course-7_page_3"},
                "documentId": {"type": "string", "example": "doc-42"},
                "type": {"type": "string", "example": "page"},
                "page": {"type": "integer"},
                "similarityScore": {"type": "string", "example": "0.8731"}
            }
        },
        "http.SearchRequest": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "courseId": {"type": "string", "example": "course-7"},
                "documentsNumber": {"type": "integer", "example": 5}
            }
        },
        "http.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "http.VersionResponse": {
            "type": "object",
            "properties": {
                "version": {"type": "string", "example": "1.0.0"}
            }
        },
        "http.SearchResponse": {
            "type": "object",
            "properties": {
                "matches": {"type": "array", "items": {"$ref": "#/definitions/http.SearchMatch"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "LLM Server API",
	Description:      "Course document retrieval and language model orchestration.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
