package interfaces

import "live-stats/src/models"

// -----------------------------------------------------------------------------
// ILiveSync is the read and control surface of the sync core, as seen by renderers.
// -----------------------------------------------------------------------------

type ILiveSync interface {

	// View returns the current view with pending overlays applied.
	View() models.MLiveView

	// -----------------------------------------------------------------------------

	// Watch returns a channel holding the latest view; cancel releases it.
	Watch() (<-chan models.MLiveView, func())

	// -----------------------------------------------------------------------------

	Status() models.ConnectionStatus
	StatusHistory() []models.MStatusChange
	Params() models.MParams
	Metrics() models.MSyncMetrics

	// -----------------------------------------------------------------------------

	// Restart stops and starts again with new params.
	Restart(params models.MParams)

	// SetVisible switches between streaming and background polling.
	SetVisible(visible bool)

	// -----------------------------------------------------------------------------

	IssueOverlay(category string, delta int64) models.MOverlayEntry
	ResolveOverlay(id string, accepted bool)
	PendingOverlays() []models.MOverlayEntry
}
