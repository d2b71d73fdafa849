package interfaces

import (
	"context"

	"live-stats/src/models"
)

// -----------------------------------------------------------------------------
// IStreamSubscriber opens a live stream. Subscribe returns once the stream is open.
// -----------------------------------------------------------------------------

type IStreamSubscriber interface {

	// Name identifies the transport in logs ("sse", "websocket", "mqtt").
	Name() string

	// -----------------------------------------------------------------------------

	// Subscribe opens the stream. Cancelling ctx closes it, even mid-handshake.
	Subscribe(ctx context.Context, target string) (IStream, error)
}

// -----------------------------------------------------------------------------
// IStream is an open stream of messages.
// -----------------------------------------------------------------------------

type IStream interface {

	// Next blocks until the next message. It returns io.EOF when the server closed the stream.
	Next() (models.MStreamMessage, error)

	// -----------------------------------------------------------------------------

	// Close releases the connection. It is safe to call more than once.
	Close() error
}
