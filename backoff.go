package notify

import (
	"math/rand"
	"sync"
	"time"
)

const (
	defaultInitialReconnectDelay = 1000 * time.Millisecond
	defaultMaxReconnectDelay     = 30000 * time.Millisecond
	reconnectJitterFactor        = 0.3
)

// jitterSource returns a value in [0, 1)
type jitterSource func() float64

var (
	lockedRandMu sync.Mutex
	lockedRand   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func defaultJitter() float64 {
	lockedRandMu.Lock()
	defer lockedRandMu.Unlock()
	return lockedRand.Float64()
}

// backoffScheduler computes the delay before the next connection attempt.
// The base starts at initial, doubles after every failed attempt and
// saturates at max. The returned delay adds up to 30% of the base as
// jitter so that many clients dropped together do not come back together.
type backoffScheduler struct {
	initial time.Duration
	max     time.Duration
	base    time.Duration
	jitter  jitterSource
}

func newBackoffScheduler(initial, max time.Duration, jitter jitterSource) *backoffScheduler {
	if initial <= 0 {
		initial = defaultInitialReconnectDelay
	}
	if max < initial {
		max = initial
	}
	if jitter == nil {
		jitter = defaultJitter
	}
	return &backoffScheduler{initial: initial, max: max, base: initial, jitter: jitter}
}

// Base returns the base the next call to Next will use
func (b *backoffScheduler) Base() time.Duration {
	return b.base
}

// Next returns the delay for the upcoming attempt and advances the base
func (b *backoffScheduler) Next() time.Duration {
	base := b.base
	delay := base + time.Duration(b.jitter()*reconnectJitterFactor*float64(base))

	// clamp before doubling, base*2 must never wrap
	if b.base >= b.max/2 {
		b.base = b.max
	} else {
		b.base *= 2
	}
	return delay
}

// Reset returns the base to the initial delay, called after a successful open
func (b *backoffScheduler) Reset() {
	b.base = b.initial
}
