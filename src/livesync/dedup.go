package livesync

import "live-stats/src/utils"

// DedupCapacity is the number of recent message ids remembered.
const DedupCapacity = 500

// -----------------------------------------------------------------------------

// DedupWindow remembers the most recent message ids, evicting the oldest first.
// Not safe for concurrent use; the manager guards it with its own lock.
type DedupWindow struct {
	ids   map[string]struct{}
	order *utils.RingBuffer[string]
}

// -----------------------------------------------------------------------------

func NewDedupWindow(capacity int) *DedupWindow {
	if capacity <= 0 {
		capacity = DedupCapacity
	}
	return &DedupWindow{
		ids:   make(map[string]struct{}, capacity),
		order: utils.NewRingBuffer[string](capacity),
	}
}

// -----------------------------------------------------------------------------

// Seen reports whether id is in the window. The empty id is never seen.
func (d *DedupWindow) Seen(id string) bool {
	if id == "" {
		return false
	}
	_, ok := d.ids[id]
	return ok
}

// -----------------------------------------------------------------------------

// Record adds id to the window, evicting the oldest id once full.
func (d *DedupWindow) Record(id string) {
	if id == "" || d.Seen(id) {
		return
	}
	if old, evicted := d.order.Append(id); evicted {
		delete(d.ids, old)
	}
	d.ids[id] = struct{}{}
}

// -----------------------------------------------------------------------------

// Observe records id and reports whether it was already present.
func (d *DedupWindow) Observe(id string) (duplicate bool) {
	if d.Seen(id) {
		return true
	}
	d.Record(id)
	return false
}

// -----------------------------------------------------------------------------

func (d *DedupWindow) Len() int {
	return len(d.ids)
}

// -----------------------------------------------------------------------------

func (d *DedupWindow) Clear() {
	d.ids = make(map[string]struct{}, d.order.Capacity())
	d.order.Clear()
}
