package domain

// ProviderKey identifies a registered language model backend
type ProviderKey string

const (
	ProviderOpenAI    ProviderKey = "openai"
	ProviderGemini    ProviderKey = "gemini"
	ProviderGroqLlama ProviderKey = "groq-llama"
	ProviderDeepSeek  ProviderKey = "deepseek"
)

// DefaultMaxTokens caps every provider response
const DefaultMaxTokens = 1000

// LLMProviderSettings configures one chat-completion backend.
// Providers differ only in endpoint, model and credential.
type LLMProviderSettings struct {
	Key       ProviderKey `yaml:"key" json:"key"`
	BaseURL   string      `yaml:"base_url" json:"base_url"`
	Model     string      `yaml:"model" json:"model"`
	APIKey    string      `yaml:"api_key" json:"-"`
	MaxTokens int         `yaml:"max_tokens" json:"max_tokens"`
}

// IsConfigured returns true if the provider has a credential
func (s *LLMProviderSettings) IsConfigured() bool {
	return s.APIKey != ""
}

// DefaultProviderSettings returns the endpoint and model of every built-in provider
func DefaultProviderSettings() []LLMProviderSettings {
	return []LLMProviderSettings{
		{Key: ProviderOpenAI, BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", MaxTokens: DefaultMaxTokens},
		{Key: ProviderGemini, BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", Model: "gemini-2.0-flash", MaxTokens: DefaultMaxTokens},
		{Key: ProviderGroqLlama, BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile", MaxTokens: DefaultMaxTokens},
		{Key: ProviderDeepSeek, BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat", MaxTokens: DefaultMaxTokens},
	}
}
