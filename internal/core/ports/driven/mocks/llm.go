package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// LLMCall records one Ask
type LLMCall struct {
	Question     string
	SystemPrompt string
}

// MockLLMProvider returns a canned answer and records every call
type MockLLMProvider struct {
	mu     sync.Mutex
	key    domain.ProviderKey
	answer string
	err    error
	calls  []LLMCall
}

// NewMockLLMProvider creates a provider that answers with answer
func NewMockLLMProvider(key domain.ProviderKey, answer string) *MockLLMProvider {
	return &MockLLMProvider{key: key, answer: answer}
}

var _ driven.LLMProvider = (*MockLLMProvider)(nil)

func (m *MockLLMProvider) Ask(ctx context.Context, question, systemPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, LLMCall{Question: question, SystemPrompt: systemPrompt})
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *MockLLMProvider) Key() domain.ProviderKey {
	return m.key
}

func (m *MockLLMProvider) Model() string {
	return "mock-llm"
}

// Helper methods for testing

// SetError makes every Ask fail with err
func (m *MockLLMProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetAnswer changes the canned answer
func (m *MockLLMProvider) SetAnswer(answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answer = answer
}

// Calls returns every Ask received
func (m *MockLLMProvider) Calls() []LLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LLMCall(nil), m.calls...)
}

// MockLLMProviderFactory resolves keys to registered mock providers
type MockLLMProviderFactory struct {
	providers map[domain.ProviderKey]driven.LLMProvider
}

// NewMockLLMProviderFactory registers the given providers under their keys
func NewMockLLMProviderFactory(providers ...driven.LLMProvider) *MockLLMProviderFactory {
	f := &MockLLMProviderFactory{providers: make(map[domain.ProviderKey]driven.LLMProvider)}
	for _, p := range providers {
		f.providers[p.Key()] = p
	}
	return f
}

var _ driven.LLMProviderFactory = (*MockLLMProviderFactory)(nil)

func (f *MockLLMProviderFactory) Create(key domain.ProviderKey) (driven.LLMProvider, error) {
	p, ok := f.providers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, key)
	}
	return p, nil
}

func (f *MockLLMProviderFactory) Keys() []domain.ProviderKey {
	keys := make([]domain.ProviderKey, 0, len(f.providers))
	for k := range f.providers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
