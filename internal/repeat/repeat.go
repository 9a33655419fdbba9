// Package repeat schedules key autorepeat for the single held key.
package repeat

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned when the repeat timer cannot be created.
var ErrUnavailable = errors.New("repeat: timer unavailable")

// Timer is a single-shot-then-periodic timer. Disarm must take effect
// immediately: no expiration may be observed after it returns.
type Timer interface {
	Arm(initial, interval time.Duration) error
	Disarm() error
}

// Scheduler arms the timer for the currently repeating key. It is not safe
// for concurrent use.
type Scheduler struct {
	timer Timer

	rate       int32 // Hz
	delay      time.Duration
	configured bool

	key    uint32
	active bool
	gen    uint64
}

// New returns a scheduler driving timer. Nothing is armed until Configure
// supplies a rate and delay.
func New(timer Timer) *Scheduler {
	return &Scheduler{timer: timer}
}

// Configure sets the repeat rate in Hz and the initial delay in ms. A rate
// of zero disables repeat and disarms a running timer.
func (s *Scheduler) Configure(rate, delayMs int32) error {
	if rate < 0 || delayMs < 0 {
		return fmt.Errorf("repeat: invalid rate %d or delay %d", rate, delayMs)
	}
	s.rate = rate
	s.delay = time.Duration(delayMs) * time.Millisecond
	s.configured = true
	if rate == 0 {
		return s.Disarm()
	}
	return nil
}

// Enabled reports whether repeat info arrived and allows repeating.
func (s *Scheduler) Enabled() bool {
	return s.configured && s.rate > 0
}

// Interval returns the period between repeats.
func (s *Scheduler) Interval() time.Duration {
	if s.rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(s.rate)
}

// Delay returns the delay before the first repeat.
func (s *Scheduler) Delay() time.Duration { return s.delay }

// Press arms the timer for code if it repeats. The previously repeating
// key, if any, stops repeating. It reports whether the timer was armed.
func (s *Scheduler) Press(code uint32, repeats bool) (bool, error) {
	if !repeats || !s.Enabled() {
		return false, nil
	}
	s.key = code
	s.active = true
	s.gen++
	if err := s.timer.Arm(s.delay, s.Interval()); err != nil {
		s.active = false
		return false, fmt.Errorf("arm repeat timer: %w", err)
	}
	return true, nil
}

// Release disarms the timer if code is the repeating key.
func (s *Scheduler) Release(code uint32) error {
	if !s.active || s.key != code {
		return nil
	}
	return s.Disarm()
}

// Disarm stops any repeat immediately.
func (s *Scheduler) Disarm() error {
	if !s.active {
		return nil
	}
	s.active = false
	s.gen++
	if err := s.timer.Disarm(); err != nil {
		return fmt.Errorf("disarm repeat timer: %w", err)
	}
	return nil
}

// Active returns the repeating key.
func (s *Scheduler) Active() (uint32, bool) {
	return s.key, s.active
}

// Generation changes on every arm and disarm. Callers sample it before
// handling other events and pass it to Tick so that expirations read after
// a state change are dropped.
func (s *Scheduler) Generation() uint64 { return s.gen }

// Tick validates expirations read from the timer. It returns the key to
// repeat and how many times, or false if the expirations are stale.
func (s *Scheduler) Tick(gen, expirations uint64) (uint32, int, bool) {
	if !s.active || gen != s.gen || expirations == 0 {
		return 0, 0, false
	}
	return s.key, int(expirations), true
}
