package models

import "time"

// MOverlayEntry is a speculative, display-only adjustment.
type MOverlayEntry struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Delta    int64     `json:"delta"`
	IssuedAt time.Time `json:"issued_at"`
}

// MSubmitMoodRequest is the body of a mood submission.
type MSubmitMoodRequest struct {
	MoodType string  `json:"moodType"`
	Country  string  `json:"country"`
	Comment  *string `json:"comment,omitempty"`
}

// MSubmitMoodResponse is the server's answer to a mood submission.
type MSubmitMoodResponse struct {
	Status       string `json:"status"`
	ShareCardURL string `json:"shareCardUrl"`
}
