package pinecone

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/custodia-labs/llmserver/internal/core/domain"
	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

const (
	// DefaultListLimit is the page size of prefix listings
	DefaultListLimit = 100

	sourceTag = "llmserver"
)

// dataPlane is the part of *pinecone.IndexConnection the index calls
type dataPlane interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	ListVectors(ctx context.Context, in *pinecone.ListVectorsRequest) (*pinecone.ListVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

// Index implements driven.VectorIndex on the Pinecone Go SDK
type Index struct {
	conn      dataPlane
	host      string
	listLimit uint32
}

// Config holds Pinecone connection configuration
type Config struct {
	// Host is the index host (e.g., docs-abc123.svc.us-east-1.pinecone.io)
	Host string

	APIKey string

	// Namespace partitions the index; empty uses the default namespace
	Namespace string

	// ListLimit is the page size for ListIDs
	ListLimit int
}

// DefaultConfig returns sensible defaults
func DefaultConfig(host, apiKey string) Config {
	return Config{
		Host:      host,
		APIKey:    apiKey,
		ListLimit: DefaultListLimit,
	}
}

// NewIndex opens a data-plane connection to the index at cfg.Host
func NewIndex(cfg Config) (*Index, error) {
	host, err := validateHost(cfg.Host)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: pinecone API key is required", domain.ErrNotConfigured)
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey:    cfg.APIKey,
		SourceTag: sourceTag,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index %s: %w", host, err)
	}

	return newIndex(conn, host, cfg.ListLimit), nil
}

func newIndex(conn dataPlane, host string, listLimit int) *Index {
	if listLimit <= 0 || listLimit > DefaultListLimit {
		listLimit = DefaultListLimit
	}
	return &Index{conn: conn, host: host, listLimit: uint32(listLimit)}
}

// validateHost accepts http(s) URLs and bare hostnames and returns the bare
// host the SDK dials. Pinecone's console shows hosts without a scheme.
func validateHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("%w: pinecone host is required", domain.ErrInvalidInput)
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("%w: invalid pinecone host: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: pinecone host must use http or https", domain.ErrInvalidInput)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: pinecone host has no hostname", domain.ErrInvalidInput)
	}
	if u.Path != "" && u.Path != "/" {
		return "", fmt.Errorf("%w: pinecone host must not carry a path", domain.ErrInvalidInput)
	}
	return u.Host, nil
}

// recordMetadata is stored with each vector for console inspection.
// Retrieval relies on the ID alone.
func recordMetadata(r *domain.VectorRecord) (*pinecone.Metadata, error) {
	fields := map[string]any{
		"courseId":   r.CourseID,
		"documentId": r.DocumentID,
		"type":       string(r.FragmentType),
	}
	if r.FragmentType == domain.FragmentTypePage {
		fields["page"] = r.PageIndex
	}
	return structpb.NewStruct(fields)
}

// Upsert writes all records in a single request
func (i *Index) Upsert(ctx context.Context, records []*domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		meta, err := recordMetadata(r)
		if err != nil {
			return fmt.Errorf("%w: metadata for %s: %v", domain.ErrIndexWrite, r.ID, err)
		}
		vectors = append(vectors, &pinecone.Vector{Id: r.ID, Values: r.Embedding, Metadata: meta})
	}

	if _, err := i.conn.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("%w: upsert %d vectors: %v", domain.ErrIndexWrite, len(records), err)
	}
	return nil
}

// ListIDs returns one page of vector IDs with the given prefix.
// A not-found status or an empty first page is reported as domain.ErrNoVectors.
func (i *Index) ListIDs(ctx context.Context, prefix, token string) (*driven.ListPage, error) {
	limit := i.listLimit
	req := &pinecone.ListVectorsRequest{Prefix: &prefix, Limit: &limit}
	if token != "" {
		req.PaginationToken = &token
	}

	resp, err := i.conn.ListVectors(ctx, req)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNoVectors
		}
		return nil, fmt.Errorf("%w: list %q: %v", domain.ErrIndexQuery, prefix, err)
	}

	page := &driven.ListPage{IDs: make([]string, 0, len(resp.VectorIds))}
	for _, id := range resp.VectorIds {
		if id != nil {
			page.IDs = append(page.IDs, *id)
		}
	}
	if token == "" && len(page.IDs) == 0 {
		return nil, domain.ErrNoVectors
	}
	if resp.NextPaginationToken != nil {
		page.NextToken = *resp.NextPaginationToken
	}
	return page, nil
}

// DeleteIDs removes the given vectors
func (i *Index) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := i.conn.DeleteVectorsById(ctx, ids); err != nil {
		return fmt.Errorf("%w: delete %d vectors: %v", domain.ErrIndexWrite, len(ids), err)
	}
	return nil
}

// Query returns the topK nearest neighbours of vector
func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]domain.IndexHit, error) {
	resp, err := i.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector: vector,
		TopK:   uint32(topK),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrIndexQuery, err)
	}

	hits := make([]domain.IndexHit, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		hits = append(hits, domain.IndexHit{ID: m.Vector.Id, Score: float64(m.Score)})
	}
	return hits, nil
}

// HealthCheck verifies the index is reachable with the configured key
func (i *Index) HealthCheck(ctx context.Context) error {
	if _, err := i.conn.DescribeIndexStats(ctx); err != nil {
		return fmt.Errorf("pinecone health check failed for %s: %w", i.host, err)
	}
	return nil
}

// Close releases the data-plane connection
func (i *Index) Close() error {
	return i.conn.Close()
}
