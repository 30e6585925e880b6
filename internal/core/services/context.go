package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

// Ensure contextService implements ContextService
var _ driving.ContextService = (*contextService)(nil)

const contextAnswerSchemaURL = "mem://llmserver/context-answer.json"

// contextAnswerSchema is the shape the model is told to answer in
const contextAnswerSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["explanation", "ids"],
  "properties": {
    "explanation": {"type": "string"},
    "ids": {"type": "array", "items": {"type": "string"}}
  }
}`

const contextSystemPrompt = `Eres un asistente que ayuda a encontrar los documentos más relevantes para una pregunta.
A continuación tienes una lista de documentos candidatos. Cada documento incluye su ID, título, descripción, etiquetas y el texto de sus primeras páginas.

Selecciona y ordena los %d documentos más relevantes para la pregunta del usuario, del más relevante al menos relevante.

Responde ÚNICAMENTE con un JSON válido con este formato exacto y nada más:
{"explanation": "explicación breve de la selección, máximo 5 líneas", "ids": ["id1", "id2"]}

Documentos:
%s`

// ContextServiceConfig holds dependencies for the context orchestrator
type ContextServiceConfig struct {
	Extractor driven.TextExtractor
	Factory   driven.LLMProviderFactory
	// Provider is the key of the model asked to re-rank candidates
	Provider domain.ProviderKey
	Logger   *slog.Logger
}

// contextService asks a language model to select and order candidate documents
type contextService struct {
	extractor driven.TextExtractor
	factory   driven.LLMProviderFactory
	provider  domain.ProviderKey
	schema    *jsonschema.Schema
	logger    *slog.Logger
}

// NewContextService creates a new ContextService
func NewContextService(cfg ContextServiceConfig) (driving.ContextService, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provider := cfg.Provider
	if provider == "" {
		provider = domain.ProviderOpenAI
	}

	schema, err := compileContextSchema()
	if err != nil {
		return nil, err
	}

	return &contextService{
		extractor: cfg.Extractor,
		factory:   cfg.Factory,
		provider:  provider,
		schema:    schema,
		logger:    logger,
	}, nil
}

func compileContextSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(contextAnswerSchema))
	if err != nil {
		return nil, fmt.Errorf("parse context answer schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(contextAnswerSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add context answer schema: %w", err)
	}
	schema, err := compiler.Compile(contextAnswerSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile context answer schema: %w", err)
	}
	return schema, nil
}

// RankContext renders the leading candidates into a prompt and returns the model's answer
func (s *contextService) RankContext(ctx context.Context, question string, documents []*domain.Document) (*domain.ContextAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if documents == nil {
		return nil, fmt.Errorf("%w: documents is required", domain.ErrInvalidInput)
	}

	provider, err := s.factory.Create(s.provider)
	if err != nil {
		return nil, err
	}

	if len(documents) > domain.MaxContextCandidates {
		documents = documents[:domain.MaxContextCandidates]
	}

	pages := s.leadingPages(ctx, documents)
	prompt := BuildContextPrompt(documents, pages)

	raw, err := provider.Ask(ctx, question, prompt)
	if err != nil {
		return nil, err
	}

	answer := &domain.ContextAnswer{Raw: raw}
	if parsed, err := s.parseAnswer(raw); err != nil {
		s.logger.Warn("model returned invalid context answer",
			"provider", provider.Key(),
			"error", err,
		)
	} else {
		answer.Valid = true
		answer.Explanation = parsed.Explanation
		answer.IDs = parsed.IDs
	}

	return answer, nil
}

// leadingPages extracts the first pages of every candidate concurrently.
// A failed extraction yields no pages for that candidate.
func (s *contextService) leadingPages(ctx context.Context, documents []*domain.Document) [][]string {
	pages := make([][]string, len(documents))

	var eg errgroup.Group
	for i, doc := range documents {
		if doc == nil || doc.ContentURL == "" {
			continue
		}
		eg.Go(func() error {
			p, err := s.extractor.ExtractPages(ctx, doc.ContentURL, domain.ContextPagesPerCandidate)
			if err != nil {
				s.logger.Warn("context extraction failed, using empty pages",
					"document_id", doc.ID,
					"error", err,
				)
				return nil
			}
			pages[i] = p
			return nil
		})
	}
	_ = eg.Wait()

	return pages
}

type contextAnswerFields struct {
	Explanation string   `json:"explanation"`
	IDs         []string `json:"ids"`
}

func (s *contextService) parseAnswer(raw string) (*contextAnswerFields, error) {
	body := stripCodeFence(raw)

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("not JSON: %w", err)
	}
	if err := s.schema.Validate(inst); err != nil {
		return nil, err
	}

	var fields contextAnswerFields
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}

// stripCodeFence removes a surrounding markdown code fence some models add
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// BuildContextPrompt renders the system prompt for documents with their leading pages.
// pages[i] belongs to documents[i]; missing pages render as domain.MissingPageText.
func BuildContextPrompt(documents []*domain.Document, pages [][]string) string {
	var b strings.Builder
	for i, doc := range documents {
		if doc == nil {
			continue
		}
		var docPages []string
		if i < len(pages) {
			docPages = pages[i]
		}

		fmt.Fprintf(&b, "---\nID: %s\n", doc.ID)
		fmt.Fprintf(&b, "Título: %s\n", doc.Title)
		fmt.Fprintf(&b, "Descripción: %s\n", doc.Description)
		fmt.Fprintf(&b, "Etiquetas: %s\n", doc.Labels.Text())
		for p := 0; p < domain.ContextPagesPerCandidate; p++ {
			text := domain.MissingPageText
			if p < len(docPages) && strings.TrimSpace(docPages[p]) != "" {
				text = docPages[p]
			}
			fmt.Fprintf(&b, "Página %d: %s\n", p+1, text)
		}
	}
	return fmt.Sprintf(contextSystemPrompt, domain.ContextSelectCount, b.String())
}
