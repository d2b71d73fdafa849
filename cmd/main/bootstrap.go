package main

import (
	"strings"
	"time"

	"live-stats/src/auth"
	"live-stats/src/interfaces"
	"live-stats/src/logger"
	"live-stats/src/models"
	"live-stats/src/utils"
)

// loadPreferences returns nil when nothing was saved or the store fails.
func loadPreferences(store interfaces.IPreferencesStore, appLogger *logger.Logger) *models.MPreferences {
	prefs, err := store.LoadPreferences()
	if err != nil {
		appLogger.Warning("Ignoring stored preferences: %v", err)
		return nil
	}
	return prefs
}

// -----------------------------------------------------------------------------

// resolveParams picks the startup scope. Saved preferences win, even a saved
// global scope; then the configured default country; then the credential's
// country claim.
func resolveParams(prefs *models.MPreferences, config *models.MConfig, credential string, now time.Time) models.MParams {
	locale := config.API.Locale
	if prefs != nil && prefs.Locale != "" {
		locale = prefs.Locale
	}

	var country string
	switch {
	case prefs != nil:
		country = prefs.Country
	case config.API.DefaultCountry != "":
		country = config.API.DefaultCountry
	default:
		country = auth.CountryFromToken(credential, now)
	}

	return models.MParams{
		Country: strings.ToUpper(strings.TrimSpace(country)),
		Locale:  utils.NormalizeLocale(locale),
	}
}
