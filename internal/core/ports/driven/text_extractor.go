package driven

import (
	"context"
)

// TextExtractor turns a PDF byte stream into per-page plain text
type TextExtractor interface {
	// ExtractPages fetches the PDF at locator and returns one trimmed string per page,
	// in page order. Empty pages are kept as "" so indexes line up with physical pages.
	// maxPages > 0 limits extraction to the leading pages.
	// Failures are reported as *domain.ExtractionError.
	ExtractPages(ctx context.Context, locator string, maxPages int) ([]string, error)
}
