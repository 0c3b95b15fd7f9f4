package poll

import (
	"time"

	"github.com/aretw0/nkas/pkg/clock"
)

// Timer is a polling timer. It is reached once limit has elapsed since the last reset and it
// has been checked more than count times, so a single slow iteration cannot satisfy it alone.
// A timer that was never started is reached on its first check.
type Timer struct {
	limit time.Duration
	count int
	clock clock.Clock

	start time.Time
	reach int
}

// NewTimer creates a stopped timer.
func NewTimer(limit time.Duration, count int, c clock.Clock) *Timer {
	if c == nil {
		c = clock.System
	}
	return &Timer{limit: limit, count: count, clock: c}
}

// Start starts the timer unless it is already running.
func (t *Timer) Start() *Timer {
	if !t.Started() {
		t.Reset()
	}
	return t
}

// Started reports whether the timer is running.
func (t *Timer) Started() bool {
	return !t.start.IsZero()
}

// Reset restarts the timer from now.
func (t *Timer) Reset() {
	t.start = t.clock.Now()
	t.reach = 0
}

// Clear stops the timer; the next check is reached.
func (t *Timer) Clear() {
	t.start = time.Time{}
	t.reach = 0
}

// Elapsed returns the time since the last reset, or 0 for a stopped timer.
func (t *Timer) Elapsed() time.Duration {
	if !t.Started() {
		return 0
	}
	return t.clock.Now().Sub(t.start)
}

// Reached counts one check and reports whether the timer has elapsed.
func (t *Timer) Reached() bool {
	t.reach++
	if !t.Started() {
		return t.reach > t.count
	}
	return t.Elapsed() >= t.limit && t.reach > t.count
}
