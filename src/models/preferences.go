package models

import "time"

// MPreferences is the persisted scope selection.
type MPreferences struct {
	Country   string    `json:"country"`
	Locale    string    `json:"locale"`
	UpdatedAt time.Time `json:"updated_at"`
}
