package driven

import "github.com/custodia-labs/clause/internal/core/domain"

// SettingsStore persists application settings.
type SettingsStore interface {
	// Load returns the stored settings merged over the defaults, with
	// environment overrides applied.
	Load() (domain.AppSettings, error)

	// LoadFile returns the stored settings merged over the defaults,
	// without environment overrides. Used before Save.
	LoadFile() (domain.AppSettings, error)

	// Save writes settings.
	Save(settings domain.AppSettings) error

	// Path returns the backing file location.
	Path() string
}
