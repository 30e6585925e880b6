// Package pdf extracts per-page text from PDF documents fetched over HTTP.
//
// The native engine parses the document in-process. The pdftotext engine
// delegates to poppler, which separates pages with a form feed, and handles
// fonts the native parser cannot decode.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const (
	pdfToolName = "pdftotext"

	// pageSeparator is written by pdftotext after every page
	pageSeparator = "\f"

	// DefaultMaxBytes caps the size of a downloaded PDF
	DefaultMaxBytes int64 = 100 << 20
)

// Engine selects how page text is extracted
type Engine string

const (
	EngineNative    Engine = "native"
	EnginePDFToText Engine = "pdftotext"
)

// ParseEngine validates an engine name; empty selects the native engine
func ParseEngine(name string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(name))) {
	case "", EngineNative:
		return EngineNative, nil
	case EnginePDFToText:
		return EnginePDFToText, nil
	}
	return "", fmt.Errorf("%w: unknown pdf engine %q", domain.ErrInvalidInput, name)
}

// CommandRunner runs an external command and returns its stdout
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands on the host
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

// CheckAvailable reports whether pdftotext can be run on this host
func CheckAvailable() error {
	if _, err := exec.LookPath(pdfToolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext
func InstallInstructions() string {
	return "pdftotext is required for PDF extraction.\n" +
		"  macOS:          brew install poppler\n" +
		"  Debian/Ubuntu:  apt install poppler-utils\n" +
		"  Alpine:         apk add poppler-utils"
}

// Config holds extractor configuration
type Config struct {
	// Timeout for fetching the PDF
	Timeout time.Duration

	// MaxBytes rejects larger downloads
	MaxBytes int64

	// Engine defaults to EngineNative
	Engine Engine

	// Runner executes pdftotext; defaults to the host
	Runner CommandRunner
}

// Extractor fetches PDFs by URL and splits them into page text
type Extractor struct {
	httpClient *http.Client
	maxBytes   int64
	engine     Engine
	runner     CommandRunner
}

// NewExtractor creates a new Extractor
func NewExtractor(cfg Config) *Extractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	engine := cfg.Engine
	if engine == "" {
		engine = EngineNative
	}
	runner := cfg.Runner
	if runner == nil {
		runner = execRunner{}
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		engine:     engine,
		runner:     runner,
	}
}

// Engine reports the configured extraction engine
func (e *Extractor) Engine() Engine {
	return e.engine
}

// ExtractPages returns the trimmed text of each page of the PDF at locator.
// maxPages > 0 stops after that many leading pages.
func (e *Extractor) ExtractPages(ctx context.Context, locator string, maxPages int) ([]string, error) {
	content, err := e.fetch(ctx, locator)
	if err != nil {
		return nil, domain.NewExtractionError(locator, err)
	}

	var pages []string
	if e.engine == EnginePDFToText {
		pages, err = e.runPDFToText(ctx, content, maxPages)
	} else {
		pages, err = NativePages(content, maxPages)
	}
	if err != nil {
		return nil, domain.NewExtractionError(locator, err)
	}
	return pages, nil
}

// NativePages parses content in-process and returns trimmed page text.
// A page whose text cannot be decoded is returned as "".
func NativePages(content []byte, maxPages int) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	n := reader.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

func (e *Extractor) runPDFToText(ctx context.Context, content []byte, maxPages int) ([]string, error) {
	tmp, err := os.CreateTemp("", "llmserver-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	args := []string{"-enc", "UTF-8"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, tmp.Name(), "-")

	out, err := e.runner.Run(ctx, pdfToolName, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	pages := SplitPages(string(out))
	if maxPages > 0 && len(pages) > maxPages {
		pages = pages[:maxPages]
	}
	return pages, nil
}

func (e *Extractor) fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported locator scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned %s", resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > e.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", e.maxBytes)
	}
	return content, nil
}

// SplitPages splits pdftotext output into trimmed pages.
// Blank pages are kept as "" so positions match physical pages.
func SplitPages(out string) []string {
	if out == "" {
		return []string{}
	}
	parts := strings.Split(out, pageSeparator)
	// pdftotext terminates the last page with a separator too
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	pages := make([]string, len(parts))
	for i, p := range parts {
		pages[i] = strings.TrimSpace(p)
	}
	return pages
}
