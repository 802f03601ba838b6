package driving

import "github.com/custodia-labs/corpus-rag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves the current settings with defaults applied.
	Get() (domain.Settings, error)

	// Set validates and persists one setting by its dot-key.
	Set(key, value string) error

	// Keys returns every recognised setting key.
	Keys() []string
}
