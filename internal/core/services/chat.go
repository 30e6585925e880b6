package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

const chatSystemPrompt = `Eres un asistente académico que responde preguntas de estudiantes de forma clara y concisa.`

// chatService forwards questions to the requested provider
type chatService struct {
	factory driven.LLMProviderFactory
	logger  *slog.Logger
}

// NewChatService creates a new ChatService
func NewChatService(factory driven.LLMProviderFactory, logger *slog.Logger) driving.ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &chatService{factory: factory, logger: logger}
}

// Ask resolves the provider before any network call and sends the question
// with the trailing chat history folded into the system prompt.
func (s *chatService) Ask(ctx context.Context, req domain.ChatRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if req.Provider == "" {
		return "", fmt.Errorf("%w: provider is required", domain.ErrInvalidInput)
	}

	provider, err := s.factory.Create(req.Provider)
	if err != nil {
		return "", err
	}

	answer, err := provider.Ask(ctx, req.Question, BuildChatPrompt(req.RecentHistory()))
	if err != nil {
		return "", err
	}

	s.logger.Debug("chat answered",
		"provider", provider.Key(),
		"model", provider.Model(),
		"history_turns", len(req.RecentHistory()),
	)
	return answer, nil
}

// Providers lists the registered provider keys
func (s *chatService) Providers() []domain.ProviderKey {
	return s.factory.Keys()
}

// BuildChatPrompt renders the system prompt with the given turns as prior conversation
func BuildChatPrompt(history []domain.ChatTurn) string {
	if len(history) == 0 {
		return chatSystemPrompt
	}
	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	b.WriteString("\n\nConversación previa:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "Pregunta: %s\nRespuesta: %s\n", turn.Question, turn.Response)
	}
	return b.String()
}
