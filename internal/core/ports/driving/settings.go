package driving

import "github.com/custodia-labs/saai/internal/core/domain"

// SettingSource tells where an effective setting value came from.
type SettingSource string

// Setting sources, lowest precedence first.
const (
	SourceDefault SettingSource = "default"
	SourceFile    SettingSource = "file"
	SourceEnv     SettingSource = "env"
)

// SettingValue is one effective configuration entry.
type SettingValue struct {
	Key    string
	Value  string
	Source SettingSource
}

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults, then file, then environment.
	Get() (*domain.Settings, error)

	// Set parses and stores a value for a known key.
	Set(key, value string) error

	// Unset removes a stored key so its default applies.
	Unset(key string) error

	// List returns every known key with its effective value.
	List() ([]SettingValue, error)

	// Keys returns every known key.
	Keys() []string

	// Reload re-reads the configuration file.
	Reload() error

	// Path returns the configuration file path.
	Path() string
}
