package domain

// AIProvider identifies the embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
)

// EmbeddingSettings configures the embedding provider.
// One settings value serves metadata, page and query embeddings.
type EmbeddingSettings struct {
	Provider   AIProvider `yaml:"provider" json:"provider"`
	BaseURL    string     `yaml:"base_url" json:"base_url,omitempty"`
	APIKey     string     `yaml:"api_key" json:"-"`
	Model      string     `yaml:"model" json:"model"`
	Dimensions int        `yaml:"dimensions" json:"dimensions,omitempty"`
}

// IsConfigured returns true if the embedding provider can be created
func (s *EmbeddingSettings) IsConfigured() bool {
	return s.Provider != "" && s.APIKey != ""
}

// DefaultEmbeddingSettings returns the default embedding configuration
func DefaultEmbeddingSettings() EmbeddingSettings {
	return EmbeddingSettings{
		Provider: AIProviderOpenAI,
		BaseURL:  "https://api.openai.com/v1",
		Model:    "text-embedding-3-small",
	}
}
