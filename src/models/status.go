package models

import "time"

// ConnectionStatus is the only state machine of the sync core.
type ConnectionStatus string

const (
	StatusIdle         ConnectionStatus = "idle"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusPolling      ConnectionStatus = "polling"
)

// AllStatuses lists every status, in state machine order.
var AllStatuses = []ConnectionStatus{StatusIdle, StatusConnecting, StatusConnected, StatusReconnecting, StatusPolling}

// -----------------------------------------------------------------------------

// MLiveView is what renderers observe: a snapshot, a status and an optional error.
type MLiveView struct {
	Snapshot   *MSnapshot       `json:"data"`
	Status     ConnectionStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	Connecting bool             `json:"connecting"`
	Version    uint64           `json:"version"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// MStatusChange records one status transition.
type MStatusChange struct {
	From ConnectionStatus `json:"from"`
	To   ConnectionStatus `json:"to"`
	At   time.Time        `json:"at"`
}
