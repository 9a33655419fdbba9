//go:build linux

// Package eventloop runs a session on a single goroutine. It polls the
// event queue and the repeat timer and hands everything to the session in
// order.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"pinyind/internal/protocol"
)

// Session is what the loop drives.
type Session interface {
	protocol.Handler
	RepeatGeneration() uint64
	RepeatTick(gen, expirations uint64)
	Exiting() bool
	Close() error
}

// Timer is a pollable repeat timer.
type Timer interface {
	FD() int
	Read() (uint64, error)
}

// Loop owns a session for its whole life.
type Loop struct {
	queue   *Queue
	timer   Timer
	session Session
	logger  *slog.Logger
}

// New returns a loop. The queue and timer must outlive Run.
func New(queue *Queue, timer Timer, s Session, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:   queue,
		timer:   timer,
		session: s,
		logger:  logger.With("component", "eventloop"),
	}
}

// Run processes events until ctx is done or the session asks to exit. The
// session is closed before Run returns, also when it panics.
func (l *Loop) Run(ctx context.Context) (err error) {
	stop := context.AfterFunc(ctx, func() {
		if werr := l.queue.wake(); werr != nil {
			l.logger.Warn("failed to wake loop", "error", werr)
		}
	})
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			// Release keys on the device before the process dies.
			_ = l.session.Close()
			panic(r)
		}
		if cerr := l.session.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close session: %w", cerr))
		}
	}()

	fds := []unix.PollFd{
		{Fd: int32(l.queue.FD()), Events: unix.POLLIN},
		{Fd: int32(l.timer.FD()), Events: unix.POLLIN},
	}
	l.logger.Debug("event loop started")
	for {
		if ctx.Err() != nil {
			l.logger.Info("event loop stopping", "reason", context.Cause(ctx))
			return nil
		}
		fds[0].Revents, fds[1].Revents = 0, 0
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		for _, fd := range fds {
			if fd.Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
				return fmt.Errorf("poll: descriptor %d failed (revents %#x)", fd.Fd, fd.Revents)
			}
		}

		// Expirations read below belong to the timer state as it was
		// before this batch of events.
		gen := l.session.RepeatGeneration()

		if fds[0].Revents&unix.POLLIN != 0 {
			l.dispatch(l.queue.drain())
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			n, err := l.timer.Read()
			if err != nil {
				return fmt.Errorf("repeat timer: %w", err)
			}
			if n > 0 {
				l.session.RepeatTick(gen, n)
			}
		}

		if l.session.Exiting() {
			l.logger.Info("event loop stopping", "reason", "exit requested")
			return nil
		}
	}
}

func (l *Loop) dispatch(events []protocol.Event) {
	for i, ev := range events {
		if err := protocol.Dispatch(l.session, ev); err != nil {
			l.logger.Warn("event failed", "event", fmt.Sprintf("%T", ev), "error", err)
		}
		if l.session.Exiting() {
			if rest := len(events) - i - 1; rest > 0 {
				l.logger.Debug("dropping events after exit request", "count", rest)
			}
			return
		}
	}
}
