package livesync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerSchedulesAfterCompletion(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	var ticks atomic.Int64
	var last atomic.Uint64
	p := NewPoller(clk, func(serial uint64) {
		last.Store(serial)
		ticks.Add(1)
	})

	serial := p.Start(5 * time.Second)
	assert.True(t, p.Active())
	assert.Equal(t, 5*time.Second, p.Interval())

	clk.Advance(4 * time.Second)
	assert.Never(t, func() bool { return ticks.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, serial, last.Load())

	require.True(t, p.Due(serial))
	assert.False(t, p.Due(serial), "only one fetch in flight")

	// Nothing is scheduled while the fetch is outstanding.
	clk.Advance(time.Minute)
	assert.Never(t, func() bool { return ticks.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	require.True(t, p.Completed(serial))
	clk.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPollerStopInvalidatesSerial(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	p := NewPoller(clk, func(uint64) {})

	serial := p.Start(time.Second)
	p.Stop()

	assert.False(t, p.Active())
	assert.False(t, p.Due(serial))
	assert.False(t, p.Completed(serial))
}

func TestPollerRestartDropsOldTicks(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	p := NewPoller(clk, func(uint64) {})

	first := p.Start(time.Second)
	second := p.Start(10 * time.Second)

	assert.NotEqual(t, first, second)
	assert.False(t, p.Due(first))
	assert.True(t, p.Due(second))
	assert.Equal(t, 10*time.Second, p.Interval())
}
