package livesync

import (
	"crypto/rand"
	"io"
	"math"
	"sync"
	"time"

	"live-stats/src/models"

	"github.com/juju/clock"
	"github.com/oklog/ulid/v2"
)

// ApplyOverlay returns baseline with entry's delta added to its category.
// Every percent is recomputed against the new total and rounded to one decimal.
// baseline itself is left untouched.
func ApplyOverlay(baseline *models.MSnapshot, entry models.MOverlayEntry) *models.MSnapshot {
	if baseline == nil {
		return nil
	}

	out := baseline.Clone()
	out.TotalCount = baseline.TotalCount + entry.Delta

	found := false
	for i := range out.Totals {
		if out.Totals[i].MoodType == entry.Category {
			out.Totals[i].Count += entry.Delta
			found = true
			break
		}
	}
	if !found {
		out.Totals = append(out.Totals, models.MTotal{MoodType: entry.Category, Count: entry.Delta})
	}

	for i := range out.Totals {
		out.Totals[i].Percent = percentOf(out.Totals[i].Count, out.TotalCount)
	}
	return out
}

func percentOf(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)*1000/float64(total)) / 10
}

// -----------------------------------------------------------------------------

// OverlayTracker holds optimistic entries until they are confirmed, rejected or
// superseded by an authoritative update. Entries only affect what Apply returns.
type OverlayTracker struct {
	mu      sync.Mutex
	clock   clock.Clock
	entropy io.Reader
	entries []models.MOverlayEntry
}

// -----------------------------------------------------------------------------

func NewOverlayTracker(clk clock.Clock) *OverlayTracker {
	if clk == nil {
		clk = clock.WallClock
	}
	return &OverlayTracker{
		clock:   clk,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// -----------------------------------------------------------------------------

// Issue records a pending delta for category and returns the entry.
func (t *OverlayTracker) Issue(category string, delta int64) models.MOverlayEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	entry := models.MOverlayEntry{
		ID:       ulid.MustNew(ulid.Timestamp(now), t.entropy).String(),
		Category: category,
		Delta:    delta,
		IssuedAt: now,
	}
	t.entries = append(t.entries, entry)
	return entry
}

// -----------------------------------------------------------------------------

// Confirm drops the entry once the server has accepted it.
func (t *OverlayTracker) Confirm(id string) bool {
	return t.remove(id)
}

// Reject drops the entry after the server refused it.
func (t *OverlayTracker) Reject(id string) bool {
	return t.remove(id)
}

func (t *OverlayTracker) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.ID == id {
			t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// Supersede drops every entry issued at or before at and returns how many were dropped.
func (t *OverlayTracker) Supersede(at time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.entries[:0:0]
	for _, e := range t.entries {
		if e.IssuedAt.After(at) {
			kept = append(kept, e)
		}
	}
	dropped := len(t.entries) - len(kept)
	t.entries = kept
	return dropped
}

// -----------------------------------------------------------------------------

// Apply folds every pending entry into snapshot.
func (t *OverlayTracker) Apply(snapshot *models.MSnapshot) *models.MSnapshot {
	t.mu.Lock()
	entries := append([]models.MOverlayEntry{}, t.entries...)
	t.mu.Unlock()

	out := snapshot
	for _, e := range entries {
		out = ApplyOverlay(out, e)
	}
	return out
}

// -----------------------------------------------------------------------------

func (t *OverlayTracker) Pending() []models.MOverlayEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.MOverlayEntry{}, t.entries...)
}
