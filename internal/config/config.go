// Package config loads llmserver configuration from defaults, an optional
// YAML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/llmserver/internal/core/domain"
)

// Vector index backends
const (
	BackendPinecone = "pinecone"
	BackendPGVector = "pgvector"
)

// HTTPConfig configures the HTTP listener
type HTTPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EmbeddingConfig configures the embedding provider and page fan-out
type EmbeddingConfig struct {
	domain.EmbeddingSettings `yaml:",inline"`

	// Concurrency bounds parallel page embedding calls per document
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PineconeConfig locates a Pinecone index
type PineconeConfig struct {
	Host      string `yaml:"host"`
	APIKey    string `yaml:"api_key"`
	Namespace string `yaml:"namespace"`
}

// PostgresConfig locates the pgvector database
type PostgresConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// VectorConfig selects and configures the vector index
type VectorConfig struct {
	Backend  string         `yaml:"backend"`
	Pinecone PineconeConfig `yaml:"pinecone"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// LLMConfig configures the chat providers
type LLMConfig struct {
	Providers []domain.LLMProviderSettings `yaml:"providers"`
	Timeout   time.Duration                `yaml:"timeout"`

	// ContextProvider answers /api/gptContext
	ContextProvider domain.ProviderKey `yaml:"context_provider"`
}

// RetrievalConfig holds ranking defaults
type RetrievalConfig struct {
	TopN        int `yaml:"top_n"`
	OversampleK int `yaml:"oversample_k"`
}

// PDFConfig selects the text extraction engine
type PDFConfig struct {
	Engine       string        `yaml:"engine"` // native, pdftotext
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// LockConfig configures the optional per-document lock
type LockConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// Config is the root configuration, built once at start-up
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	PDF       PDFConfig       `yaml:"pdf"`
	Lock      LockConfig      `yaml:"lock"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			CORSOrigins:  []string{"*"},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Embedding: EmbeddingConfig{
			EmbeddingSettings: domain.DefaultEmbeddingSettings(),
			Concurrency:       4,
			Timeout:           30 * time.Second,
		},
		Vector: VectorConfig{
			Backend: BackendPinecone,
			Postgres: PostgresConfig{
				MaxOpenConns: 25,
				MaxIdleConns: 5,
			},
		},
		LLM: LLMConfig{
			Providers:       domain.DefaultProviderSettings(),
			Timeout:         60 * time.Second,
			ContextProvider: domain.ProviderOpenAI,
		},
		Retrieval: RetrievalConfig{
			TopN:        domain.DefaultTopN,
			OversampleK: domain.DefaultOversampleK,
		},
		PDF:  PDFConfig{Engine: "native", FetchTimeout: 60 * time.Second},
		Lock: LockConfig{TTL: 5 * time.Minute},
	}
}

// Load builds the configuration. CONFIG_FILE names an optional YAML file;
// a .env file in the working directory fills unset environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays YAML onto cfg. Providers are merged by key so a file
// can override one provider without restating the others.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	defaults := c.LLM.Providers
	c.LLM.Providers = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.LLM.Providers = mergeProviders(defaults, c.LLM.Providers)
	return nil
}

func mergeProviders(base, overrides []domain.LLMProviderSettings) []domain.LLMProviderSettings {
	merged := append([]domain.LLMProviderSettings(nil), base...)
	for _, o := range overrides {
		found := false
		for i := range merged {
			if merged[i].Key != o.Key {
				continue
			}
			found = true
			if o.BaseURL != "" {
				merged[i].BaseURL = o.BaseURL
			}
			if o.Model != "" {
				merged[i].Model = o.Model
			}
			if o.APIKey != "" {
				merged[i].APIKey = o.APIKey
			}
			if o.MaxTokens > 0 {
				merged[i].MaxTokens = o.MaxTokens
			}
		}
		if !found {
			if o.MaxTokens <= 0 {
				o.MaxTokens = domain.DefaultMaxTokens
			}
			merged = append(merged, o)
		}
	}
	return merged
}

// providerEnvPrefix maps provider keys to their environment variable prefix
var providerEnvPrefix = map[domain.ProviderKey]string{
	domain.ProviderOpenAI:    "OPENAI",
	domain.ProviderGemini:    "GEMINI",
	domain.ProviderGroqLlama: "GROQ",
	domain.ProviderDeepSeek:  "DEEPSEEK",
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	// HTTP
	str("HOST", &c.HTTP.Host)
	num("PORT", &c.HTTP.Port)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}
	dur("HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout)
	dur("HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout)

	// Logging
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	// Embedding; OPENAI_API_KEY also serves embeddings unless EMBEDDING_API_KEY is set
	str("OPENAI_API_KEY", &c.Embedding.APIKey)
	str("EMBEDDING_API_KEY", &c.Embedding.APIKey)
	str("EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	str("EMBEDDING_MODEL", &c.Embedding.Model)
	num("EMBEDDING_DIMENSIONS", &c.Embedding.Dimensions)
	num("EMBEDDING_CONCURRENCY", &c.Embedding.Concurrency)
	dur("EMBEDDING_TIMEOUT", &c.Embedding.Timeout)

	// Vector index
	str("VECTOR_BACKEND", &c.Vector.Backend)
	str("PINECONE_HOST", &c.Vector.Pinecone.Host)
	str("PINECONE_API_KEY", &c.Vector.Pinecone.APIKey)
	str("PINECONE_NAMESPACE", &c.Vector.Pinecone.Namespace)
	str("DATABASE_URL", &c.Vector.Postgres.URL)
	num("DB_MAX_OPEN_CONNS", &c.Vector.Postgres.MaxOpenConns)
	num("DB_MAX_IDLE_CONNS", &c.Vector.Postgres.MaxIdleConns)

	// LLM providers
	maxTokens := 0
	num("LLM_MAX_TOKENS", &maxTokens)
	for i := range c.LLM.Providers {
		p := &c.LLM.Providers[i]
		prefix, ok := providerEnvPrefix[p.Key]
		if !ok {
			continue
		}
		str(prefix+"_API_KEY", &p.APIKey)
		str(prefix+"_BASE_URL", &p.BaseURL)
		str(prefix+"_MODEL", &p.Model)
	}
	if maxTokens > 0 {
		for i := range c.LLM.Providers {
			c.LLM.Providers[i].MaxTokens = maxTokens
		}
	}
	dur("LLM_TIMEOUT", &c.LLM.Timeout)
	if v := os.Getenv("CONTEXT_PROVIDER"); v != "" {
		c.LLM.ContextProvider = domain.ProviderKey(v)
	}

	// Retrieval
	num("RETRIEVAL_TOP_N", &c.Retrieval.TopN)
	num("RETRIEVAL_OVERSAMPLE_K", &c.Retrieval.OversampleK)

	// Lock
	str("PDF_ENGINE", &c.PDF.Engine)
	dur("PDF_FETCH_TIMEOUT", &c.PDF.FetchTimeout)

	str("REDIS_URL", &c.Lock.RedisURL)
	dur("LOCK_TTL", &c.Lock.TTL)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects configurations the server cannot start with.
// Missing provider credentials are not errors; those providers fail per request.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.HTTP.Port))
	}

	switch c.Vector.Backend {
	case BackendPinecone:
		if c.Vector.Pinecone.Host == "" {
			errs = append(errs, errors.New("PINECONE_HOST is required for the pinecone backend"))
		}
	case BackendPGVector:
		if c.Vector.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the pgvector backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.Vector.Backend))
	}

	if c.Retrieval.TopN <= 0 {
		errs = append(errs, fmt.Errorf("retrieval top_n must be positive, got %d", c.Retrieval.TopN))
	}
	if c.Retrieval.OversampleK < c.Retrieval.TopN {
		errs = append(errs, fmt.Errorf("retrieval oversample_k (%d) must be at least top_n (%d)", c.Retrieval.OversampleK, c.Retrieval.TopN))
	}
	if c.Embedding.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("embedding concurrency must be at least 1, got %d", c.Embedding.Concurrency))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.PDF.Engine != "native" && c.PDF.Engine != "pdftotext" {
		errs = append(errs, fmt.Errorf("unknown pdf engine %q", c.PDF.Engine))
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	found := false
	for _, p := range c.LLM.Providers {
		if p.Key == c.LLM.ContextProvider {
			found = true
			break
		}
	}
	if !found {
		errs = append(errs, fmt.Errorf("context provider %q is not a registered provider", c.LLM.ContextProvider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}
