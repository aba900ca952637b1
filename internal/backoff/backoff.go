// Package backoff decides when a failed eviction may be attempted again.
package backoff

import (
	"time"
)

// DefaultSchedule is the delay applied after the 1st, 2nd, ... retryable failure.
var DefaultSchedule = []time.Duration{
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	300 * time.Second,
	600 * time.Second,
}

// Strategy computes retry delays from a failure count.
type Strategy interface {
	// Name returns a unique name of the strategy
	Name() string
	// Delay returns the wait before the next attempt after the given number of
	// consecutive failures (1-based). ok is false once retries are exhausted.
	Delay(failures int) (delay time.Duration, ok bool)
	// MaxRetries is the number of retries allowed after the first attempt
	MaxRetries() int
}

// FixedSchedule walks a fixed list of delays and gives up when it runs out.
type FixedSchedule struct {
	Steps []time.Duration
}

var _ Strategy = &FixedSchedule{}

// NewDefault returns the [30s 60s 120s 300s 600s] schedule.
func NewDefault() *FixedSchedule {
	steps := make([]time.Duration, len(DefaultSchedule))
	copy(steps, DefaultSchedule)
	return &FixedSchedule{Steps: steps}
}

func (*FixedSchedule) Name() string {
	return "FixedSchedule"
}

func (s *FixedSchedule) Delay(failures int) (time.Duration, bool) {
	if failures < 1 || failures > len(s.Steps) {
		return 0, false
	}
	return s.Steps[failures-1], true
}

func (s *FixedSchedule) MaxRetries() int {
	return len(s.Steps)
}

// NextAttempt records one more failure and returns the earliest time the next
// attempt may run. exhausted is true when no retry remains.
func NextAttempt(s Strategy, failures int, now time.Time) (next time.Time, exhausted bool) {
	delay, ok := s.Delay(failures)
	if !ok {
		return time.Time{}, true
	}
	return now.Add(delay), false
}
