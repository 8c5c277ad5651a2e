package ai

import (
	"fmt"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations by pinging them.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the configured embedding provider.
// Failures wrap domain.ErrEmbeddingUnavailable.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if err := ValidateEmbeddingConfig(config); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, config.Provider, err)
	}
	return nil
}

// ValidateLLM pings the configured LLM provider.
// Failures wrap domain.ErrLLMUnavailable.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if err := ValidateLLMConfig(config); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrLLMUnavailable, config.Provider, err)
	}
	return nil
}
