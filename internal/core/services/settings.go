package services

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyAPIURL             = "client.api_url"
	keySettleDelayMS      = "client.settle_delay_ms"
	keyStreamIdleTimeoutS = "client.stream_idle_timeout_s"
	keyRequestTimeoutS    = "client.request_timeout_s"
	keyContextDescRunes   = "client.context_description_runes"
	keyServerAddr         = "server.addr"
	keyServerDataDir      = "server.data_dir"
	keyServerContextLimit = "server.context_limit"
	keyServerTopLimit     = "server.top_limit"
	keyServerChatRate     = "server.chat_rate_per_sec"
	keyServerChatBurst    = "server.chat_burst"
	keyServerSimilarity   = "server.similarity_threshold"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	envOpenAIKey          = "OPENAI_API_KEY"
	envAnthropicKey       = "ANTHROPIC_API_KEY"
	defaultOllamaBaseURL  = "http://localhost:11434"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// Provider API keys fall back to OPENAI_API_KEY / ANTHROPIC_API_KEY when unset.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Client: domain.ClientSettings{
			APIURL:                  s.getString(keyAPIURL, defaults.Client.APIURL),
			SettleDelay:             s.getDuration(keySettleDelayMS, time.Millisecond, defaults.Client.SettleDelay),
			StreamIdleTimeout:       s.getDuration(keyStreamIdleTimeoutS, time.Second, defaults.Client.StreamIdleTimeout),
			RequestTimeout:          s.getDuration(keyRequestTimeoutS, time.Second, defaults.Client.RequestTimeout),
			ContextDescriptionRunes: s.getInt(keyContextDescRunes, defaults.Client.ContextDescriptionRunes),
		},
		Server: domain.ServerSettings{
			Addr:                s.getString(keyServerAddr, defaults.Server.Addr),
			DataDir:             s.configStore.GetString(keyServerDataDir), // Empty means the default under ~/.lens
			ContextLimit:        s.getInt(keyServerContextLimit, defaults.Server.ContextLimit),
			TopLimit:            s.getInt(keyServerTopLimit, defaults.Server.TopLimit),
			ChatRatePerSecond:   s.getFloat(keyServerChatRate, defaults.Server.ChatRatePerSecond),
			ChatBurst:           s.getInt(keyServerChatBurst, defaults.Server.ChatBurst),
			SimilarityThreshold: s.getFloat(keyServerSimilarity, defaults.Server.SimilarityThreshold),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
	}

	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	if settings.Embedding.Model == "" && settings.Embedding.Provider != "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyAPIURL, settings.Client.APIURL},
		{keySettleDelayMS, int(settings.Client.SettleDelay / time.Millisecond)},
		{keyStreamIdleTimeoutS, int(settings.Client.StreamIdleTimeout / time.Second)},
		{keyRequestTimeoutS, int(settings.Client.RequestTimeout / time.Second)},
		{keyContextDescRunes, settings.Client.ContextDescriptionRunes},
		{keyServerAddr, settings.Server.Addr},
		{keyServerDataDir, settings.Server.DataDir},
		{keyServerContextLimit, settings.Server.ContextLimit},
		{keyServerTopLimit, settings.Server.TopLimit},
		{keyServerChatRate, settings.Server.ChatRatePerSecond},
		{keyServerChatBurst, settings.Server.ChatBurst},
		{keyServerSimilarity, settings.Server.SimilarityThreshold},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Keys that came from the environment are not written to disk.
	if key := settings.Embedding.APIKey; key != "" && key != s.envKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, key); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if key := settings.LLM.APIKey; key != "" && key != s.envKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, key); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if _, ok := domain.DefaultEmbeddingModels()[provider]; !ok {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Local providers need a base URL; cloud providers use their own endpoint.
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	u, err := url.Parse(settings.Client.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute URL, got %q", domain.ErrInvalidInput, keyAPIURL, settings.Client.APIURL)
	}
	if settings.Client.SettleDelay < 0 {
		return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, keySettleDelayMS)
	}
	if settings.Server.ContextLimit <= 0 || settings.Server.TopLimit <= 0 {
		return fmt.Errorf("%w: server limits must be positive", domain.ErrInvalidInput)
	}
	if settings.Server.ChatRatePerSecond <= 0 || settings.Server.ChatBurst <= 0 {
		return fmt.Errorf("%w: server chat rate and burst must be positive", domain.ErrInvalidInput)
	}
	if t := settings.Server.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("%w: %s must be between 0 and 1", domain.ErrInvalidInput, keyServerSimilarity)
	}
	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not fully configured", domain.ErrInvalidInput, settings.Embedding.Provider)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getDuration reads an integer count of unit. An explicit 0 is honoured so
// the stream watchdog can be disabled.
func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * unit
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(envOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(envAnthropicKey)
	default:
		return ""
	}
}
