package driving

import "github.com/custodia-labs/askdoc/internal/core/domain"

// SettingsService reads and updates application configuration.
type SettingsService interface {
	// Get returns the effective settings: defaults, then the config file,
	// then environment overrides.
	Get() (*domain.AppSettings, error)

	// Set parses value for a known key and persists it.
	Set(key, value string) error

	// Unset removes a stored value so the default applies again.
	Unset(key string) error

	// Keys returns every settable key in sorted order.
	Keys() []string

	// Validate checks the settings are complete enough to ingest and answer.
	Validate() error
}
