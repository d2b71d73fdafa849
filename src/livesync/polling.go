package livesync

import (
	"time"

	"github.com/juju/clock"
)

// Poller schedules periodic full fetches. It does not fetch by itself: when a
// tick is due it calls onDue with the loop serial, and the owner reports back
// through Due and Completed. At most one fetch is in flight, and the next tick
// is scheduled interval after the previous fetch completed.
//
// Poller is not safe for concurrent use; the manager calls it under its lock.
type Poller struct {
	clock clock.Clock
	onDue func(serial uint64)

	serial   uint64
	interval time.Duration
	active   bool
	inFlight bool
	timer    clock.Timer
}

// -----------------------------------------------------------------------------

func NewPoller(clk clock.Clock, onDue func(serial uint64)) *Poller {
	return &Poller{clock: clk, onDue: onDue}
}

// -----------------------------------------------------------------------------

// Start (re)starts the loop. The first tick fires after interval.
func (p *Poller) Start(interval time.Duration) uint64 {
	p.Stop()
	p.active = true
	p.interval = interval
	p.schedule(interval)
	return p.serial
}

// -----------------------------------------------------------------------------

// Stop cancels the pending tick and invalidates any fetch in flight.
func (p *Poller) Stop() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.serial++
	p.active = false
	p.inFlight = false
}

// -----------------------------------------------------------------------------

// Due claims a tick. It returns false for ticks of a stopped loop or while a
// fetch is already in flight.
func (p *Poller) Due(serial uint64) bool {
	if !p.active || serial != p.serial || p.inFlight {
		return false
	}
	p.timer = nil
	p.inFlight = true
	return true
}

// -----------------------------------------------------------------------------

// Completed reports the end of the fetch started by Due and schedules the next
// tick. It returns false when the result belongs to a stopped loop.
func (p *Poller) Completed(serial uint64) bool {
	if !p.active || serial != p.serial || !p.inFlight {
		return false
	}
	p.inFlight = false
	p.schedule(p.interval)
	return true
}

// -----------------------------------------------------------------------------

func (p *Poller) Active() bool {
	return p.active
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// -----------------------------------------------------------------------------

func (p *Poller) schedule(d time.Duration) {
	serial := p.serial
	p.timer = p.clock.AfterFunc(d, func() { p.onDue(serial) })
}
