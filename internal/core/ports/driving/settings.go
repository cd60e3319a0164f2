package driving

import "github.com/custodia-labs/clause/internal/core/domain"

// SettingsService reads and checks the application settings.
type SettingsService interface {
	// Get returns the current settings with defaults and environment
	// overrides applied.
	Get() (*domain.AppSettings, error)

	// Save writes settings back to the config file as given.
	Save(settings *domain.AppSettings) error

	// Path returns the config file location.
	Path() string

	// Validate checks the settings the processing flow needs.
	Validate() error

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig() error

	// SetLLMProvider updates the LLM provider, model and key in the
	// config file. Environment overrides are not written.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetEmbeddingProvider updates the embedding provider, model and key.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// GetDefaults returns the built-in defaults.
	GetDefaults() domain.AppSettings
}
