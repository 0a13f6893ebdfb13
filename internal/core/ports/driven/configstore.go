package driven

// ConfigStore holds the stored settings as flat dot-path keys,
// e.g. "backend.base_url". Values keep whatever type the store decodes;
// the settings service parses them.
type ConfigStore interface {
	// Get returns the stored value and whether the key is set.
	Get(key string) (any, bool)

	// Keys returns every stored key in sorted order.
	Keys() []string

	// Set stores and persists a value.
	Set(key string, value any) error

	// Unset removes a key so its default applies again.
	Unset(key string) error

	// Load re-reads the backing storage.
	Load() error

	// Path names where values are kept.
	Path() string
}
