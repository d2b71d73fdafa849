package interfaces

import "live-stats/src/models"

// -----------------------------------------------------------------------------
// IPreferencesStore persists the user's scope selection.
// -----------------------------------------------------------------------------

type IPreferencesStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// LoadPreferences returns the stored preferences, or nil if none were saved.
	LoadPreferences() (*models.MPreferences, error)

	// -----------------------------------------------------------------------------

	// SavePreferences upserts the preferences.
	SavePreferences(prefs models.MPreferences) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
