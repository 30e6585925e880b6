package domain

// ChatHistoryWindow is how many trailing turns are sent as conversation context
const ChatHistoryWindow = 5

// ChatTurn is one previous exchange supplied by the caller
type ChatTurn struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// ChatRequest is a question for a named provider
type ChatRequest struct {
	Question string
	Provider ProviderKey
	History  []ChatTurn
}

// RecentHistory returns at most the last ChatHistoryWindow turns
func (r *ChatRequest) RecentHistory() []ChatTurn {
	if len(r.History) <= ChatHistoryWindow {
		return r.History
	}
	return r.History[len(r.History)-ChatHistoryWindow:]
}

const (
	// MaxContextCandidates caps how many documents are rendered into a re-ranking prompt
	MaxContextCandidates = 10

	// ContextPagesPerCandidate is how many leading pages are shown per document
	ContextPagesPerCandidate = 2

	// ContextSelectCount is how many documents the model is asked to select
	ContextSelectCount = 5

	// MissingPageText stands in for a page that could not be extracted
	MissingPageText = "[Sin texto]"
)

// ContextAnswer is the model's re-ranking of candidate documents.
// Raw is always the unmodified model output. Explanation and IDs are
// filled only when Raw validated against the expected JSON shape.
type ContextAnswer struct {
	Raw         string   `json:"gptResponse"`
	Valid       bool     `json:"valid"`
	Explanation string   `json:"explanation,omitempty"`
	IDs         []string `json:"ids,omitempty"`
}
