package interfaces

import "live-stats/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger shares live views with renderers (local API, websocket hub).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a view to connected renderers.
	Broadcast(view models.MLiveView)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
