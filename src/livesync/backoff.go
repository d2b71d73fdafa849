package livesync

import (
	"math/rand/v2"
	"time"
)

const (
	BackoffBase        = time.Second
	BackoffCap         = 30 * time.Second
	BackoffMaxExponent = 5
	BackoffMaxJitter   = 500 * time.Millisecond
)

// -----------------------------------------------------------------------------

// Backoff computes reconnect delays and tracks consecutive failures.
type Backoff struct {
	// Jitter returns a value in [0, BackoffMaxJitter). Tests replace it.
	Jitter func() time.Duration

	attempt int
}

// -----------------------------------------------------------------------------

func NewBackoff() *Backoff {
	return &Backoff{Jitter: randomJitter}
}

func randomJitter() time.Duration {
	return rand.N(BackoffMaxJitter)
}

// -----------------------------------------------------------------------------

// Delay returns min(cap, base*2^min(attempt, maxExponent)) plus jitter.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	exp := min(attempt, BackoffMaxExponent)
	d := min(BackoffCap, BackoffBase*time.Duration(1<<exp))

	if b.Jitter != nil {
		j := b.Jitter()
		if j < 0 {
			j = 0
		}
		if j >= BackoffMaxJitter {
			j = BackoffMaxJitter - 1
		}
		d += j
	}
	return d
}

// -----------------------------------------------------------------------------

// Next returns the delay for the current attempt and counts one more failure.
func (b *Backoff) Next() time.Duration {
	d := b.Delay(b.attempt)
	b.attempt++
	return d
}

// Reset is called after a successful open.
func (b *Backoff) Reset() {
	b.attempt = 0
}

func (b *Backoff) Attempt() int {
	return b.attempt
}
