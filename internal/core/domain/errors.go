package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrInvalidInput indicates a required field is missing or malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates a PDF could not be fetched or parsed
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingProvider indicates the embedding API failed
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrIndexWrite indicates the vector index rejected or could not take a write
	ErrIndexWrite = errors.New("vector index write failed")

	// ErrIndexQuery indicates the vector index could not answer a query or listing
	ErrIndexQuery = errors.New("vector index query failed")

	// ErrNoVectors is the index's "nothing matched" signal on a prefix listing.
	// Callers deleting a document treat it as an empty, successful result.
	ErrNoVectors = errors.New("no vectors found")

	// ErrUnsupportedProvider indicates an unknown LLM provider key was specified
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrLLMProvider indicates the language model API failed
	ErrLLMProvider = errors.New("llm provider error")

	// ErrNotConfigured indicates a provider is registered but has no credentials
	ErrNotConfigured = errors.New("provider not configured")

	// ErrDocumentBusy indicates another request holds the document lock
	ErrDocumentBusy = errors.New("document is being modified by another request")
)

// ExtractionError reports a PDF source that could not be turned into page text.
type ExtractionError struct {
	Locator string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Locator, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrExtraction) match any ExtractionError.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// NewExtractionError wraps cause for the given document locator
func NewExtractionError(locator string, cause error) error {
	return &ExtractionError{Locator: locator, Err: cause}
}
