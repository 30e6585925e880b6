package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// MockTextExtractor serves page texts registered per locator.
// Unknown locators fail with a domain.ExtractionError.
type MockTextExtractor struct {
	mu    sync.Mutex
	pages map[string][]string
	calls []ExtractCall
}

// ExtractCall records one ExtractPages
type ExtractCall struct {
	Locator  string
	MaxPages int
}

// NewMockTextExtractor creates an extractor with no documents
func NewMockTextExtractor() *MockTextExtractor {
	return &MockTextExtractor{pages: make(map[string][]string)}
}

var _ driven.TextExtractor = (*MockTextExtractor)(nil)

func (m *MockTextExtractor) ExtractPages(ctx context.Context, locator string, maxPages int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ExtractCall{Locator: locator, MaxPages: maxPages})
	pages, ok := m.pages[locator]
	if !ok {
		return nil, domain.NewExtractionError(locator, errors.New("not found"))
	}
	if maxPages > 0 && len(pages) > maxPages {
		pages = pages[:maxPages]
	}
	return append([]string(nil), pages...), nil
}

// Helper methods for testing

// SetPages registers the page texts served for locator
func (m *MockTextExtractor) SetPages(locator string, pages ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[locator] = pages
}

// Calls returns every ExtractPages received
func (m *MockTextExtractor) Calls() []ExtractCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExtractCall(nil), m.calls...)
}
