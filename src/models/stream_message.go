package models

// MStreamMessage is one frame delivered by a stream transport.
// ID is the transport-level message identifier, if the transport has one.
type MStreamMessage struct {
	ID    string
	Event string
	Data  []byte
}

// MParams is the filter scope of a connection.
type MParams struct {
	Country string `json:"country"`
	Locale  string `json:"locale"`
}
