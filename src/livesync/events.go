package livesync

import (
	"live-stats/src/interfaces"
	"live-stats/src/models"
)

type eventKind int

const (
	eventOpened eventKind = iota
	eventMessage
	eventFailed
	eventFetched
	eventPollDue
	eventReconnectDue
	eventVisibility
)

func (k eventKind) String() string {
	switch k {
	case eventOpened:
		return "opened"
	case eventMessage:
		return "message"
	case eventFailed:
		return "failed"
	case eventFetched:
		return "fetched"
	case eventPollDue:
		return "poll-due"
	case eventReconnectDue:
		return "reconnect-due"
	case eventVisibility:
		return "visibility"
	}
	return "unknown"
}

// -----------------------------------------------------------------------------

// event is everything the manager reacts to. Producers stamp it with the
// generation (and connection, poll or reconnect serial) current when the work
// started, so results of superseded work can be recognised and dropped.
type event struct {
	kind       eventKind
	generation uint64

	conn      uint64
	poll      uint64
	reconnect uint64

	stream   interfaces.IStream
	message  models.MStreamMessage
	snapshot *models.MSnapshot
	err      error
	visible  bool
}
