//go:build linux

package repeat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// TimerFD is a Timer backed by a non-blocking CLOCK_MONOTONIC timerfd that
// an event loop can poll.
type TimerFD struct {
	fd int
}

// NewTimerFD creates a disarmed timerfd.
func NewTimerFD() (*TimerFD, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("%w: timerfd_create: %v", ErrUnavailable, err)
	}
	return &TimerFD{fd: fd}, nil
}

// FD returns the descriptor to poll for readability.
func (t *TimerFD) FD() int { return t.fd }

// Arm programs the timer. A zero initial delay fires as soon as possible;
// an all-zero itimerspec would disarm instead.
func (t *TimerFD) Arm(initial, interval time.Duration) error {
	if initial <= 0 {
		initial = time.Nanosecond
	}
	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(initial.Nanoseconds()),
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(t.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	return nil
}

// Disarm stops the timer and discards pending expirations.
func (t *TimerFD) Disarm() error {
	var spec unix.ItimerSpec
	if err := unix.TimerfdSettime(t.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	return nil
}

// Read returns the number of expirations since the last read, or 0 if
// there were none.
func (t *TimerFD) Read() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(t.fd, buf[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, fmt.Errorf("read timerfd: %w", err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("read timerfd: short read of %d bytes", n)
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}

// Close releases the descriptor.
func (t *TimerFD) Close() error {
	return unix.Close(t.fd)
}
