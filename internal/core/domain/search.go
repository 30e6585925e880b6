package domain

const (
	// DefaultTopN is the number of documents returned when the caller does not ask
	DefaultTopN = 5

	// DefaultOversampleK is how many raw neighbours are fetched before per-document collapsing
	DefaultOversampleK = 200

	// MaxTopN bounds caller-requested result counts
	MaxTopN = 100
)

// IndexHit is a raw nearest-neighbour hit as returned by the vector index
type IndexHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// RetrievalMatch is an index hit decoded into its document and fragment
type RetrievalMatch struct {
	VectorID     string       `json:"id"`
	DocumentID   string       `json:"documentId"`
	FragmentType FragmentType `json:"type"`
	PageIndex    int          `json:"page"`
	Score        float64      `json:"score"`
}

// RankedResult is the best-scoring match of one document
type RankedResult struct {
	RetrievalMatch
}

// SearchRequest is a semantic search within one course
type SearchRequest struct {
	Question    string
	CourseID    string
	TopN        int
	OversampleK int
}

// Normalise applies defaults and bounds
func (r *SearchRequest) Normalise() {
	if r.TopN <= 0 {
		r.TopN = DefaultTopN
	}
	if r.TopN > MaxTopN {
		r.TopN = MaxTopN
	}
	if r.OversampleK <= 0 {
		r.OversampleK = DefaultOversampleK
	}
	if r.OversampleK < r.TopN {
		r.OversampleK = r.TopN
	}
}
