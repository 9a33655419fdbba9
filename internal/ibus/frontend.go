// Package ibus is the IBus frontend. ibus-daemon calls the exported engine
// objects on its own goroutines; every call is turned into a protocol event
// and posted to the event loop. The session's output goes back out as
// engine signals.
//
// Every key is reported to ibus as handled. Keys the session does not
// consume come back as ForwardKeyEvent.
package ibus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"pinyind/internal/engine"
	"pinyind/internal/keys"
	"pinyind/internal/protocol"
)

// IBus D-Bus names.
const (
	FactoryPath      = dbus.ObjectPath("/org/freedesktop/IBus/Factory")
	FactoryInterface = "org.freedesktop.IBus.Factory"
	EngineInterface  = "org.freedesktop.IBus.Engine"
	ServiceInterface = "org.freedesktop.IBus.Service"

	enginePathPrefix = "/org/freedesktop/IBus/Engine/"
)

// IBus key event state masks.
const (
	ReleaseMask uint32 = 1 << 30
	forwardMask uint32 = 1 << 25 // also IBUS_IGNORED_MASK
)

// Client capabilities from ibustypes.h.
const (
	capPreeditText     uint32 = 1 << 0
	capAuxiliaryText   uint32 = 1 << 1
	capLookupTable     uint32 = 1 << 2
	capFocus           uint32 = 1 << 3
	capSurroundingText uint32 = 1 << 5
)

var (
	// ErrDisconnected is returned by Supervise when the bus went away.
	ErrDisconnected = errors.New("ibus: disconnected")
	// ErrNameLost is returned by Supervise when another process took the
	// bus name.
	ErrNameLost = errors.New("ibus: bus name lost")
)

// Bus is the part of *dbus.Conn the frontend uses.
type Bus interface {
	Export(v any, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...any) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
}

// Poster accepts events for the event loop.
type Poster interface {
	Post(ev protocol.Event) error
}

// Options configures the frontend.
type Options struct {
	// BusName is requested on the bus and must match the component file.
	BusName string
	// EngineName is the only name CreateEngine accepts.
	EngineName string
}

// Frontend implements protocol.TextInput, protocol.VirtualKeyboard and
// protocol.Panel on top of IBus engine signals.
type Frontend struct {
	bus    Bus
	events Poster
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	engines map[dbus.ObjectPath]*engineObject
	nextID  int
	latest  dbus.ObjectPath
	focused dbus.ObjectPath
	caps    uint32
	keyvals map[uint32]uint32 // evdev code to the keyval last seen for it
	mods    keys.Mask
	outMods uint32

	// Output accumulated until Commit.
	commits    []string
	preedit    string
	cursor     int32
	hasPreedit bool
}

var (
	_ protocol.TextInput       = (*Frontend)(nil)
	_ protocol.VirtualKeyboard = (*Frontend)(nil)
	_ protocol.Panel           = (*Frontend)(nil)
)

// New creates a frontend that posts to events. Call Register to go live.
func New(bus Bus, events Poster, opts Options, logger *slog.Logger) *Frontend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Frontend{
		bus:     bus,
		events:  events,
		opts:    opts,
		logger:  logger.With("component", "ibus"),
		now:     time.Now,
		engines: make(map[dbus.ObjectPath]*engineObject),
		keyvals: make(map[uint32]uint32),
	}
}

// Address returns the IBus bus address: $IBUS_ADDRESS, then the output of
// `ibus address`.
func Address() (string, error) {
	if addr := os.Getenv("IBUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	out, err := exec.Command("ibus", "address").Output()
	if err != nil {
		return "", fmt.Errorf("ibus address: %w", err)
	}
	addr := strings.TrimSpace(string(out))
	if addr == "" || addr == "(null)" {
		return "", fmt.Errorf("%w: ibus-daemon is not running", ErrDisconnected)
	}
	return addr, nil
}

// Dial connects to address. An empty address asks ibus for it and
// "session" selects the session bus.
func Dial(address string) (*dbus.Conn, error) {
	if address == "" {
		var err error
		if address, err = Address(); err != nil {
			return nil, err
		}
	}
	if address == "session" {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return nil, fmt.Errorf("connect to session bus: %w", err)
		}
		return conn, nil
	}
	conn, err := dbus.Connect(address)
	if err != nil {
		return nil, fmt.Errorf("connect to ibus: %w", err)
	}
	return conn, nil
}

// Register requests the bus name and exports the engine factory.
func (f *Frontend) Register() error {
	reply, err := f.bus.RequestName(f.opts.BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", f.opts.BusName)
	}
	if err := f.bus.Export(&factory{f: f}, FactoryPath, FactoryInterface); err != nil {
		return fmt.Errorf("export factory: %w", err)
	}
	f.logger.Info("ibus engine registered", "bus_name", f.opts.BusName, "engine", f.opts.EngineName)
	return nil
}

// Supervise blocks until ctx ends, the connection drops or the bus name is
// lost. The last two post an UnavailableEvent and return an error.
func (f *Frontend) Supervise(ctx context.Context, conn *dbus.Conn) error {
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameLost"),
	); err != nil {
		return fmt.Errorf("watch bus name: %w", err)
	}
	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Context().Done():
			f.post(protocol.UnavailableEvent{})
			return ErrDisconnected
		case sig, ok := <-signals:
			if !ok {
				f.post(protocol.UnavailableEvent{})
				return ErrDisconnected
			}
			if sig.Name != "org.freedesktop.DBus.NameLost" || len(sig.Body) == 0 {
				continue
			}
			if name, _ := sig.Body[0].(string); name == f.opts.BusName {
				f.post(protocol.UnavailableEvent{})
				return ErrNameLost
			}
		}
	}
}

func (f *Frontend) post(ev protocol.Event) bool {
	if err := f.events.Post(ev); err != nil {
		f.logger.Warn("event dropped", "event", fmt.Sprintf("%T", ev), "error", err)
		return false
	}
	return true
}

// createEngine exports a new engine object. ibus-daemon creates one per
// input context; all of them feed the same session.
func (f *Frontend) createEngine(name string) (dbus.ObjectPath, error) {
	if name != f.opts.EngineName {
		return "", fmt.Errorf("unknown engine %q", name)
	}
	f.mu.Lock()
	f.nextID++
	path := dbus.ObjectPath(enginePathPrefix + strconv.Itoa(f.nextID))
	obj := &engineObject{f: f, path: path}
	f.engines[path] = obj
	f.latest = path
	f.mu.Unlock()

	if err := f.bus.Export(obj, path, EngineInterface); err != nil {
		return "", fmt.Errorf("export engine: %w", err)
	}
	if err := f.bus.Export(&serviceObject{obj}, path, ServiceInterface); err != nil {
		return "", fmt.Errorf("export engine service: %w", err)
	}
	f.logger.Debug("engine created", "path", path)
	return path, nil
}

func (f *Frontend) destroyEngine(path dbus.ObjectPath) {
	f.mu.Lock()
	delete(f.engines, path)
	if f.latest == path {
		f.latest = ""
		for p := range f.engines {
			f.latest = p
			break
		}
	}
	wasFocused := f.focused == path
	if wasFocused {
		f.focused = ""
	}
	f.mu.Unlock()

	_ = f.bus.Export(nil, path, EngineInterface)
	_ = f.bus.Export(nil, path, ServiceInterface)
	if wasFocused {
		f.post(protocol.DeactivateEvent{})
	}
	f.logger.Debug("engine destroyed", "path", path)
}

// processKey posts the key with the modifier state ibus reports before it.
func (f *Frontend) processKey(path dbus.ObjectPath, keyval, keycode, state uint32) bool {
	if state&forwardMask != 0 {
		return false
	}
	pressed := state&ReleaseMask == 0
	mods := keys.Mask(state).Core()

	f.mu.Lock()
	f.focused = path
	if pressed || f.keyvals[keycode] == 0 {
		f.keyvals[keycode] = keyval
	}
	modsChanged := mods != f.mods
	f.mods = mods
	f.mu.Unlock()

	if modsChanged {
		locks := keys.ModLock | keys.ModNum
		if !f.post(protocol.ModifiersEvent{Depressed: mods &^ locks, Locked: mods & locks}) {
			return false
		}
	}
	ks := protocol.KeyReleased
	if pressed {
		ks = protocol.KeyPressed
	}
	return f.post(protocol.KeyEvent{Time: f.now(), Code: keycode, State: ks})
}

func (f *Frontend) focusIn(path dbus.ObjectPath) {
	f.mu.Lock()
	f.focused = path
	f.mu.Unlock()
	f.post(protocol.ActivateEvent{})
	f.post(protocol.DoneEvent{})
}

func (f *Frontend) setCapabilities(caps uint32) {
	f.mu.Lock()
	f.caps = caps
	f.mu.Unlock()
	f.logger.Debug("client capabilities",
		"preedit", caps&capPreeditText != 0,
		"aux", caps&capAuxiliaryText != 0,
		"lookup_table", caps&capLookupTable != 0,
		"focus", caps&capFocus != 0,
		"surrounding", caps&capSurroundingText != 0)
}

func (f *Frontend) surroundingText(v dbus.Variant, cursor, anchor uint32) {
	s, ok := textValue(v)
	if !ok {
		f.logger.Debug("surrounding text is not an IBusText", "signature", v.Signature())
		return
	}
	f.post(protocol.SurroundingTextEvent{
		Text:   s,
		Cursor: byteOffset(s, cursor),
		Anchor: byteOffset(s, anchor),
	})
}

// target returns the engine path output goes to.
func (f *Frontend) target() (dbus.ObjectPath, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.focused != "" {
		return f.focused, nil
	}
	if f.latest == "" {
		return "", fmt.Errorf("%w: no ibus engine", protocol.ErrUnavailable)
	}
	return f.latest, nil
}

func (f *Frontend) emit(member string, values ...any) error {
	path, err := f.target()
	if err != nil {
		return err
	}
	if err := f.bus.Emit(path, EngineInterface+"."+member, values...); err != nil {
		return fmt.Errorf("emit %s: %w", member, err)
	}
	return nil
}

// SetPreedit stages the preedit. cursorEnd is ignored; ibus has a single
// cursor.
func (f *Frontend) SetPreedit(text string, cursorBegin, _ int32) error {
	f.mu.Lock()
	f.preedit, f.cursor, f.hasPreedit = text, cursorBegin, true
	f.mu.Unlock()
	return nil
}

// CommitString stages committed text.
func (f *Frontend) CommitString(text string) error {
	f.mu.Lock()
	f.commits = append(f.commits, text)
	f.mu.Unlock()
	return nil
}

// Commit sends staged commits, then the staged preedit.
func (f *Frontend) Commit(serial uint32) error {
	f.mu.Lock()
	commits := f.commits
	preedit, cursor, hasPreedit := f.preedit, f.cursor, f.hasPreedit
	f.commits, f.hasPreedit = nil, false
	f.mu.Unlock()

	var errs []error
	for _, c := range commits {
		errs = append(errs, f.emit("CommitText", newText(c)))
	}
	if hasPreedit {
		if preedit == "" {
			errs = append(errs, f.emit("HidePreeditText"))
		} else {
			errs = append(errs, f.emit("UpdatePreeditText",
				newPreeditText(preedit), runeOffset(preedit, int(cursor)), true, preeditClear))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("commit %d: %w", serial, err)
	}
	return nil
}

// Keymap is accepted and ignored: ibus clients keep their own keymap.
func (f *Frontend) Keymap(format uint32, keymap string) error {
	f.logger.Debug("keymap not forwarded to ibus client", "format", format, "size", len(keymap))
	return nil
}

// Key forwards a key to the client with the last mirrored modifiers.
func (f *Frontend) Key(_ uint32, code uint32, state protocol.KeyState) error {
	f.mu.Lock()
	keyval, ok := f.keyvals[code]
	mask := f.outMods
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no keyval known for code %d", protocol.ErrUnavailable, code)
	}
	if state == protocol.KeyReleased {
		mask |= ReleaseMask
	}
	return f.emit("ForwardKeyEvent", keyval, code, mask)
}

// Modifiers records the modifier state sent with forwarded keys.
func (f *Frontend) Modifiers(depressed, latched, locked, _ uint32) error {
	f.mu.Lock()
	f.outMods = uint32(keys.Mask(depressed | latched | locked).Core())
	f.mu.Unlock()
	return nil
}

// UpdateCandidates shows page in the ibus lookup table.
func (f *Frontend) UpdateCandidates(page engine.Page) error {
	if page.Len() == 0 {
		return f.emit("HideLookupTable")
	}
	return f.emit("UpdateLookupTable", newLookupTable(page), true)
}

// UpdateAux shows text in the auxiliary line.
func (f *Frontend) UpdateAux(text string) error {
	return f.emit("UpdateAuxiliaryText", newText(text), text != "")
}

// Hide hides the lookup table and the auxiliary line.
func (f *Frontend) Hide() error {
	return errors.Join(f.emit("HideLookupTable"), f.emit("HideAuxiliaryText"))
}
