package models

// MClientCommand is a message sent by a renderer over the websocket hub.
type MClientCommand struct {
	Command string `json:"command"` // "view" or "visibility"
	Visible *bool  `json:"visible,omitempty"`
}

// MVisibilityRequest is the body of POST /api/visibility.
type MVisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// MScopeRequest is the body of PUT /api/scope.
type MScopeRequest struct {
	Country string `json:"country"`
	Locale  string `json:"locale"`
}

// MMoodRequest is the body of POST /api/mood.
type MMoodRequest struct {
	MoodType string  `json:"moodType" binding:"required"`
	Comment  *string `json:"comment,omitempty"`
}
