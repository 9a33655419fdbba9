// Package session implements the key router: the state machine that
// decides for every key whether it reaches the application unchanged,
// edits the composition or drives the engine.
//
// A Session is owned by a single goroutine. Frontend events reach it
// through the protocol.Handler methods and repeat timer expirations through
// RepeatTick; nothing else may call it concurrently.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pinyind/internal/composition"
	"pinyind/internal/engine"
	"pinyind/internal/keycodec"
	"pinyind/internal/keys"
	"pinyind/internal/ledger"
	"pinyind/internal/protocol"
	"pinyind/internal/repeat"
)

// Mode is the routing mode.
type Mode int

const (
	// PassThrough forwards every key. The buffer is empty and the engine
	// inactive.
	PassThrough Mode = iota
	// Composing feeds letters to the engine.
	Composing
)

func (m Mode) String() string {
	switch m {
	case PassThrough:
		return "passthrough"
	case Composing:
		return "composing"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Outcome is what Route did with a key.
type Outcome int

const (
	Consumed Outcome = iota
	Forwarded
	Toggled
)

func (o Outcome) String() string {
	switch o {
	case Consumed:
		return "consumed"
	case Forwarded:
		return "forwarded"
	case Toggled:
		return "toggled"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Options configures routing policy.
type Options struct {
	Toggle Toggle
	// DefaultActive starts the session in Composing.
	DefaultActive bool
	// CommitOnToggleOut commits the pending composition as typed when
	// leaving Composing instead of discarding it.
	CommitOnToggleOut bool
	// ExitChord makes Ctrl+C and Ctrl+Z in Composing end the session.
	ExitChord bool
	// InlineCandidates renders the candidate page into the preedit. It
	// only applies when there is no panel.
	InlineCandidates bool
}

// DefaultOptions returns the routing policy used without configuration.
func DefaultOptions() Options {
	return Options{
		Toggle:           DefaultToggle(),
		ExitChord:        true,
		InlineCandidates: true,
	}
}

// Deps are the collaborators of a session. Panel is optional.
type Deps struct {
	Engine   engine.Gateway
	Input    protocol.TextInput
	Keyboard protocol.VirtualKeyboard
	Panel    protocol.Panel
	Timer    repeat.Timer
	Logger   *slog.Logger
}

// Session routes keys for one seat.
type Session struct {
	id     string
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	codec  *keycodec.Codec
	buffer *composition.Buffer
	engine engine.Gateway
	ledger *ledger.Ledger
	repeat *repeat.Scheduler
	toggle *ToggleDetector

	input    protocol.TextInput
	keyboard protocol.VirtualKeyboard
	panel    protocol.Panel

	mode    Mode
	serial  uint32
	context string
	pending string // text to commit with the next render
	shown   bool   // preedit or panel currently visible
	sync    bool   // re-send state on the next Done
	exiting bool
	closed  bool
}

var _ protocol.Handler = (*Session)(nil)

// New creates a session in PassThrough, or in Composing if
// opts.DefaultActive is set.
func New(deps Deps, opts Options) (*Session, error) {
	switch {
	case deps.Engine == nil:
		return nil, errors.New("session: engine is required")
	case deps.Input == nil:
		return nil, fmt.Errorf("%w: text input", protocol.ErrUnavailable)
	case deps.Keyboard == nil:
		return nil, fmt.Errorf("%w: virtual keyboard", protocol.ErrUnavailable)
	case deps.Timer == nil:
		return nil, fmt.Errorf("%w: no timer", repeat.ErrUnavailable)
	}
	if opts.Toggle.Sym == keys.NoSymbol {
		opts.Toggle = DefaultToggle()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()

	s := &Session{
		id:       id,
		opts:     opts,
		logger:   logger.With("component", "session", "session", id),
		now:      time.Now,
		codec:    keycodec.New(),
		buffer:   composition.New(),
		engine:   deps.Engine,
		ledger:   ledger.New(),
		repeat:   repeat.New(deps.Timer),
		toggle:   NewToggleDetector(opts.Toggle),
		input:    deps.Input,
		keyboard: deps.Keyboard,
		panel:    deps.Panel,
	}
	if opts.DefaultActive {
		s.engine.Activate()
		s.mode = Composing
	}
	s.logger.Info("session started",
		"mode", s.mode,
		"engine_style", s.engine.Style(),
		"toggle", opts.Toggle.Sym,
		"taps", opts.Toggle.Taps,
	)
	return s, nil
}

// ID returns the identifier used in log records.
func (s *Session) ID() string { return s.id }

// Mode returns the current routing mode.
func (s *Session) Mode() Mode { return s.mode }

// Buffer returns the composition buffer. Callers must not modify it.
func (s *Session) Buffer() *composition.Buffer { return s.buffer }

// Exiting reports whether the user asked to end the session.
func (s *Session) Exiting() bool { return s.exiting }

// Serial returns the serial of the last protocol commit.
func (s *Session) Serial() uint32 { return s.serial }

// Unreleased returns keys that are down on the virtual keyboard.
func (s *Session) Unreleased() []uint32 { return s.ledger.Unreleased() }

// RepeatGeneration samples the repeat scheduler generation for RepeatTick.
func (s *Session) RepeatGeneration() uint64 { return s.repeat.Generation() }

// Keymap installs a keymap from the compositor and forwards it to the
// virtual keyboard when it changed. A malformed keymap is logged and the
// previous one stays active.
func (s *Session) Keymap(format uint32, keymap string) error {
	changed, err := s.codec.UpdateKeymap(format, keymap)
	if err != nil {
		s.logger.Warn("keymap rejected, keeping previous", "format", format, "size", len(keymap), "error", err)
		return nil
	}
	if !changed {
		s.logger.Debug("duplicate keymap ignored", "size", len(keymap))
		return nil
	}
	s.logger.Info("keymap updated", "size", len(keymap))
	s.disarm()
	if err := s.keyboard.Keymap(format, keymap); err != nil {
		return fmt.Errorf("forward keymap: %w", err)
	}
	return nil
}

// Key resolves a hardware event and routes it.
func (s *Session) Key(ev protocol.KeyEvent) error {
	if s.closed {
		return nil
	}
	pressed := ev.State == protocol.KeyPressed
	k := s.codec.Resolve(ev.Code, pressed)
	k.Time = ev.Time
	if k.Time.IsZero() {
		k.Time = s.now()
	}

	var outcome Outcome
	if pressed {
		s.ledger.Press(ev.Code, k.Time)
		if _, err := s.repeat.Press(ev.Code, s.codec.KeyRepeats(ev.Code)); err != nil {
			s.logger.Warn("key repeat unavailable", "error", err)
		}
		outcome = s.Route(k)
	} else {
		seen := s.ledger.Release(ev.Code)
		if err := s.repeat.Release(ev.Code); err != nil {
			s.logger.Warn("failed to stop key repeat", "error", err)
		}
		outcome = s.routeRelease(k, seen)
	}
	s.logger.Debug("key routed", "key", k, "outcome", outcome, "mode", s.mode)
	return nil
}

// Modifiers replaces the modifier state and mirrors it to the virtual
// keyboard.
func (s *Session) Modifiers(depressed, latched, locked keys.Mask, group uint32) error {
	s.codec.UpdateModifiers(depressed, latched, locked, group)
	if err := s.keyboard.Modifiers(uint32(depressed), uint32(latched), uint32(locked), group); err != nil {
		return fmt.Errorf("mirror modifiers: %w", err)
	}
	return nil
}

// RepeatInfo configures key repeat. A rate of zero turns it off.
func (s *Session) RepeatInfo(rate, delayMs int32) error {
	if err := s.repeat.Configure(rate, delayMs); err != nil {
		return err
	}
	s.logger.Debug("repeat configured", "interval", s.repeat.Interval(), "delay", s.repeat.Delay())
	return nil
}

// Activate is delivered when a text field gains focus. Any composition
// left from the previous field is abandoned.
func (s *Session) Activate() error {
	s.abandon()
	s.context = ""
	s.sync = true
	return nil
}

// Deactivate is delivered when the text field loses focus.
func (s *Session) Deactivate() error {
	s.abandon()
	s.disarm()
	s.context = ""
	return s.flush()
}

// Unavailable is delivered when the frontend lost the input method role.
func (s *Session) Unavailable() error {
	s.logger.Warn("input method unavailable, abandoning composition")
	return s.Deactivate()
}

// SurroundingText records the text left of the caret as engine context.
func (s *Session) SurroundingText(text string, cursor, _ int) error {
	if cursor < 0 || cursor > len(text) {
		cursor = len(text)
	}
	s.context = text[:cursor]
	return nil
}

// Done ends an atomic group of protocol events. After activation the
// field state has to be sent once even if nothing changed.
func (s *Session) Done() error {
	if !s.sync {
		return nil
	}
	s.sync = false
	s.render(engine.Capture(s.engine), true)
	return nil
}

// SelectCandidate chooses a candidate on the visible page, as clicked in
// a panel.
func (s *Session) SelectCandidate(index int) error {
	if !s.composing() {
		return nil
	}
	if s.engine.Style() == engine.StyleBuffer {
		if !s.choose(index) {
			return nil
		}
	} else if _, ok := s.engine.Choose(index); !ok {
		return nil
	}
	s.refresh()
	return nil
}

// ChangePage flips the candidate page from the panel.
func (s *Session) ChangePage(forward bool) error {
	if s.composing() && s.engine.ChangePage(forward) {
		s.refresh()
	}
	return nil
}

// MoveHighlight moves the highlighted candidate from the panel.
func (s *Session) MoveHighlight(delta int) error {
	if s.composing() && s.engine.MoveCursor(delta) {
		s.refresh()
	}
	return nil
}

// RepeatTick handles expirations read from the repeat timer. gen must be
// sampled with RepeatGeneration before other events of the same wakeup
// were handled; stale expirations are dropped. Each expiration routes a
// synthetic press and release of the repeating key.
func (s *Session) RepeatTick(gen, expirations uint64) {
	code, n, ok := s.repeat.Tick(gen, expirations)
	if !ok || s.closed {
		return
	}
	for range n {
		k := keys.Logical{
			Sym:     s.codec.Lookup(code),
			Code:    code,
			Mods:    s.codec.Mods(),
			Pressed: true,
			Time:    s.now(),
		}
		s.Route(k)
		s.Route(k.Release())
		if s.exiting || s.repeat.Generation() != gen {
			return
		}
	}
}

// Close ends the session: the repeat timer is stopped, the composition is
// abandoned and every key still down on the virtual keyboard is released.
// It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.disarm()
	s.leaveComposing(false)
	err := s.flush()
	if held := s.ledger.DrainPressed(); len(held) > 0 {
		s.logger.Debug("keys still held at exit", "count", len(held))
	}
	s.logger.Info("session closed", "serial", s.serial)
	return err
}

func (s *Session) disarm() {
	if err := s.repeat.Disarm(); err != nil {
		s.logger.Warn("failed to stop key repeat", "error", err)
	}
}

// flush releases every key that is down on the virtual keyboard.
func (s *Session) flush() error {
	ms := uint32(s.now().UnixMilli())
	n, err := s.ledger.Flush(func(code uint32) error {
		return s.keyboard.Key(ms, code, protocol.KeyReleased)
	})
	if n > 0 {
		s.logger.Debug("released forwarded keys", "count", n)
	}
	if err != nil {
		return fmt.Errorf("release forwarded keys: %w", err)
	}
	return nil
}

// abandon drops the composition without committing.
func (s *Session) abandon() {
	s.buffer.Reset()
	s.engine.Reset()
	if s.shown {
		s.render(engine.Snapshot{}, true)
	}
}
