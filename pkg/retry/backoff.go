package retry

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultDelay is the wait between late attempts.
const DefaultDelay = 3 * time.Second

// Stepped is a BackOff returning its steps in order and then repeating the last one.
// The default schedule retries the first failure at once, waits 1s after the second
// and DefaultDelay after every later one.
type Stepped struct {
	Steps []time.Duration
	n     int
}

// NewStepped returns the default device schedule.
func NewStepped() backoff.BackOff {
	return &Stepped{Steps: []time.Duration{0, time.Second, DefaultDelay}}
}

// NextBackOff implements backoff.BackOff.
func (s *Stepped) NextBackOff() time.Duration {
	if len(s.Steps) == 0 {
		return 0
	}
	i := s.n
	if i >= len(s.Steps) {
		i = len(s.Steps) - 1
	}
	s.n++
	return s.Steps[i]
}

// Reset implements backoff.BackOff.
func (s *Stepped) Reset() {
	s.n = 0
}
