// Package ledger accounts for keys that are down, both on the physical
// keyboard and on the virtual output device, so that no key is ever left
// stuck when the router changes mode or shuts down.
package ledger

import (
	"slices"
	"time"
)

// Ledger tracks pressed and forwarded keys by hardware code.
type Ledger struct {
	pressed   map[uint32]time.Time
	forwarded map[uint32]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		pressed:   make(map[uint32]time.Time),
		forwarded: make(map[uint32]struct{}),
	}
}

// Press records a physical key press.
func (l *Ledger) Press(code uint32, at time.Time) {
	l.pressed[code] = at
}

// Release records a physical key release. It reports whether the key was
// known to be down.
func (l *Ledger) Release(code uint32) bool {
	_, ok := l.pressed[code]
	delete(l.pressed, code)
	return ok
}

// Held reports whether code is physically down.
func (l *Ledger) Held(code uint32) bool {
	_, ok := l.pressed[code]
	return ok
}

// Pressed returns the physically held codes in ascending order.
func (l *Ledger) Pressed() []uint32 {
	return sortedKeys(l.pressed)
}

// MarkForwarded records that a press of code reached the output device.
func (l *Ledger) MarkForwarded(code uint32) {
	l.forwarded[code] = struct{}{}
}

// ClearForwarded records that the release of code reached the output
// device. It reports whether code was down there.
func (l *Ledger) ClearForwarded(code uint32) bool {
	_, ok := l.forwarded[code]
	delete(l.forwarded, code)
	return ok
}

// Unreleased returns the codes down on the output device in ascending order.
func (l *Ledger) Unreleased() []uint32 {
	return sortedKeys(l.forwarded)
}

// Flush emits a release for every key down on the output device, in
// ascending code order, and forgets them. A key whose release fails stays
// recorded and the first error is returned after all keys were tried.
func (l *Ledger) Flush(release func(code uint32) error) (int, error) {
	var first error
	n := 0
	for _, code := range l.Unreleased() {
		if err := release(code); err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		delete(l.forwarded, code)
		n++
	}
	return n, first
}

// DrainPressed forgets all physically held keys and returns them in
// ascending order.
func (l *Ledger) DrainPressed() []uint32 {
	codes := l.Pressed()
	clear(l.pressed)
	return codes
}

func sortedKeys[V any](m map[uint32]V) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
