//go:build linux

package eventloop

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"pinyind/internal/protocol"
)

// ErrClosed is returned when posting to a closed queue.
var ErrClosed = errors.New("eventloop: queue closed")

// Queue is a FIFO of protocol events that any goroutine may post to. An
// eventfd becomes readable whenever the queue is non-empty so the loop can
// poll it next to other descriptors.
type Queue struct {
	mu     sync.Mutex
	events []protocol.Event
	fd     int
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() (*Queue, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	return &Queue{fd: fd}, nil
}

// FD returns the descriptor to poll.
func (q *Queue) FD() int { return q.fd }

// Post appends ev and wakes the loop.
func (q *Queue) Post(ev protocol.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()
	return q.wake()
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *Queue) wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(q.fd, buf[:])
	// EAGAIN means the counter is saturated; the loop is awake anyway.
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("signal eventfd: %w", err)
	}
	return nil
}

// drain resets the eventfd and returns every pending event in post order.
func (q *Queue) drain() []protocol.Event {
	var buf [8]byte
	_, _ = unix.Read(q.fd, buf[:])

	q.mu.Lock()
	events := q.events
	q.events = nil
	q.mu.Unlock()
	return events
}

// Close rejects further posts and releases the eventfd.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.events = nil
	return unix.Close(q.fd)
}
