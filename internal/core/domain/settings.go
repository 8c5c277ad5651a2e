package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an LLM service provider for the analysis server.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or any compatible endpoint, e.g. OpenRouter).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API (LLM only).
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// AllLLMProviders returns every provider that can serve chat completions.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderOllama, AIProviderAnthropic}
}

// AllEmbeddingProviders returns every provider that can produce embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// ClientSettings configures the search-to-analysis session.
type ClientSettings struct {
	// APIURL is the analysis service base URL (search and chat_stream live under it).
	APIURL string

	// SettleDelay is the debounce interval before an automatic synthesis starts.
	SettleDelay time.Duration

	// StreamIdleTimeout fails a stream that produces nothing for this long.
	// Zero disables the watchdog.
	StreamIdleTimeout time.Duration

	// RequestTimeout bounds a search request.
	RequestTimeout time.Duration

	// ContextDescriptionRunes bounds the description excerpt sent per record.
	ContextDescriptionRunes int
}

// ServerSettings configures the analysis service (lens serve).
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// DataDir holds the SQLite dataset.
	DataDir string

	// ContextLimit caps the number of context lines forwarded to the LLM.
	ContextLimit int

	// TopLimit is the number of records returned per search.
	TopLimit int

	// ChatRatePerSecond limits synthesis requests.
	ChatRatePerSecond float64

	// ChatBurst is the limiter burst size.
	ChatBurst int

	// SimilarityThreshold drops semantic matches scoring below it (0..1).
	SimilarityThreshold float64
}

// EmbeddingSettings holds embedding provider configuration.
// When configured, the analysis service ranks searches semantically.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
// Anthropic has no embedding API and is never a valid embedding provider.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Client holds session settings.
	Client ClientSettings

	// Server holds analysis service settings.
	Server ServerSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM is left unconfigured; the server reports it as unavailable until set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Client: ClientSettings{
			APIURL:                  "http://localhost:8000/api",
			SettleDelay:             800 * time.Millisecond,
			StreamIdleTimeout:       60 * time.Second,
			RequestTimeout:          30 * time.Second,
			ContextDescriptionRunes: DefaultContextDescriptionRunes,
		},
		Server: ServerSettings{
			Addr:                ":8000",
			ContextLimit:        30,
			TopLimit:            DefaultTopLimit,
			ChatRatePerSecond:   2,
			ChatBurst:           4,
			SimilarityThreshold: 0.15,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
		},
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
