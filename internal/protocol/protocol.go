// Package protocol defines the boundary between the session and the
// display-server side: the events a frontend delivers and the outputs the
// session drives.
//
// Frontends run on their own goroutines and never call the session
// directly. They translate wire messages into the Event values below and
// post them to the event loop, which hands them to a Handler with Dispatch.
package protocol

import (
	"errors"
	"fmt"
	"time"

	"pinyind/internal/engine"
	"pinyind/internal/keys"
)

var (
	// ErrUnavailable reports that a required protocol capability is missing.
	ErrUnavailable = errors.New("protocol: capability unavailable")
	// ErrUnknownEvent is returned by Dispatch for event types it does not know.
	ErrUnknownEvent = errors.New("protocol: unknown event")
)

// KeyState is the wire encoding of a key transition.
type KeyState uint32

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
)

func (s KeyState) String() string {
	if s == KeyPressed {
		return "pressed"
	}
	return "released"
}

// TextInput receives composition output for the focused text field.
// Offsets are in bytes. A commit applies everything sent since the
// previous one.
type TextInput interface {
	SetPreedit(text string, cursorBegin, cursorEnd int32) error
	CommitString(text string) error
	Commit(serial uint32) error
}

// VirtualKeyboard is the synthetic output device. Codes are evdev codes.
type VirtualKeyboard interface {
	Keymap(format uint32, keymap string) error
	Key(timeMs, code uint32, state KeyState) error
	Modifiers(depressed, latched, locked, group uint32) error
}

// Panel shows candidates outside the text field.
type Panel interface {
	UpdateCandidates(page engine.Page) error
	UpdateAux(text string) error
	Hide() error
}

// Handler consumes protocol events. The session implements it.
type Handler interface {
	Keymap(format uint32, keymap string) error
	Key(ev KeyEvent) error
	Modifiers(depressed, latched, locked keys.Mask, group uint32) error
	RepeatInfo(rate, delayMs int32) error
	Activate() error
	Deactivate() error
	SurroundingText(text string, cursor, anchor int) error
	Done() error

	// Panel interaction.
	SelectCandidate(index int) error
	ChangePage(forward bool) error
	MoveHighlight(delta int) error

	// Unavailable is delivered when the frontend lost its input method
	// role, for example because another input method took over.
	Unavailable() error
}

// Event is a message posted by a frontend.
type Event interface {
	event()
}

type KeymapEvent struct {
	Format uint32
	Keymap string
}

type KeyEvent struct {
	Time  time.Time
	Code  uint32 // evdev
	State KeyState
}

type ModifiersEvent struct {
	Depressed, Latched, Locked keys.Mask
	Group                      uint32
}

type RepeatInfoEvent struct {
	Rate    int32 // Hz
	DelayMs int32
}

type ActivateEvent struct{}

type DeactivateEvent struct{}

type SurroundingTextEvent struct {
	Text           string
	Cursor, Anchor int
}

type DoneEvent struct{}

type SelectCandidateEvent struct {
	Index int
}

type ChangePageEvent struct {
	Forward bool
}

type MoveHighlightEvent struct {
	Delta int
}

type UnavailableEvent struct{}

func (KeymapEvent) event()          {}
func (KeyEvent) event()             {}
func (ModifiersEvent) event()       {}
func (RepeatInfoEvent) event()      {}
func (ActivateEvent) event()        {}
func (DeactivateEvent) event()      {}
func (SurroundingTextEvent) event() {}
func (DoneEvent) event()            {}
func (SelectCandidateEvent) event() {}
func (ChangePageEvent) event()      {}
func (MoveHighlightEvent) event()   {}
func (UnavailableEvent) event()     {}

// Dispatch delivers ev to h.
func Dispatch(h Handler, ev Event) error {
	switch e := ev.(type) {
	case KeymapEvent:
		return h.Keymap(e.Format, e.Keymap)
	case KeyEvent:
		return h.Key(e)
	case ModifiersEvent:
		return h.Modifiers(e.Depressed, e.Latched, e.Locked, e.Group)
	case RepeatInfoEvent:
		return h.RepeatInfo(e.Rate, e.DelayMs)
	case ActivateEvent:
		return h.Activate()
	case DeactivateEvent:
		return h.Deactivate()
	case SurroundingTextEvent:
		return h.SurroundingText(e.Text, e.Cursor, e.Anchor)
	case DoneEvent:
		return h.Done()
	case SelectCandidateEvent:
		return h.SelectCandidate(e.Index)
	case ChangePageEvent:
		return h.ChangePage(e.Forward)
	case MoveHighlightEvent:
		return h.MoveHighlight(e.Delta)
	case UnavailableEvent:
		return h.Unavailable()
	}
	return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
}
