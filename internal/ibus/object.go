package ibus

import (
	"github.com/godbus/dbus/v5"

	"pinyind/internal/protocol"
)

// factory is exported at FactoryPath.
type factory struct {
	f *Frontend
}

// CreateEngine is called by ibus-daemon when the user selects the engine.
func (fa *factory) CreateEngine(name string) (dbus.ObjectPath, *dbus.Error) {
	path, err := fa.f.createEngine(name)
	if err != nil {
		return "", dbus.NewError("org.freedesktop.DBus.Error.Failed", []any{err.Error()})
	}
	return path, nil
}

// engineObject implements org.freedesktop.IBus.Engine for one input
// context.
type engineObject struct {
	f    *Frontend
	path dbus.ObjectPath
}

func (e *engineObject) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	return e.f.processKey(e.path, keyval, keycode, state), nil
}

func (e *engineObject) FocusIn() *dbus.Error {
	e.f.focusIn(e.path)
	return nil
}

func (e *engineObject) FocusOut() *dbus.Error {
	e.f.post(protocol.DeactivateEvent{})
	return nil
}

// Reset is sent when the client moved the caret or otherwise invalidated
// the composition.
func (e *engineObject) Reset() *dbus.Error {
	e.f.focusIn(e.path)
	return nil
}

func (e *engineObject) Enable() *dbus.Error { return nil }

func (e *engineObject) Disable() *dbus.Error {
	e.f.post(protocol.DeactivateEvent{})
	return nil
}

func (e *engineObject) SetCapabilities(caps uint32) *dbus.Error {
	e.f.setCapabilities(caps)
	return nil
}

func (e *engineObject) SetCursorLocation(x, y, w, h int32) *dbus.Error { return nil }

func (e *engineObject) SetContentType(purpose, hints uint32) *dbus.Error { return nil }

func (e *engineObject) SetSurroundingText(text dbus.Variant, cursorPos, anchorPos uint32) *dbus.Error {
	e.f.surroundingText(text, cursorPos, anchorPos)
	return nil
}

func (e *engineObject) PageUp() *dbus.Error {
	e.f.post(protocol.ChangePageEvent{Forward: false})
	return nil
}

func (e *engineObject) PageDown() *dbus.Error {
	e.f.post(protocol.ChangePageEvent{Forward: true})
	return nil
}

func (e *engineObject) CursorUp() *dbus.Error {
	e.f.post(protocol.MoveHighlightEvent{Delta: -1})
	return nil
}

func (e *engineObject) CursorDown() *dbus.Error {
	e.f.post(protocol.MoveHighlightEvent{Delta: 1})
	return nil
}

func (e *engineObject) CandidateClicked(index, button, state uint32) *dbus.Error {
	e.f.post(protocol.SelectCandidateEvent{Index: int(index)})
	return nil
}

func (e *engineObject) PropertyActivate(name string, state uint32) *dbus.Error { return nil }

func (e *engineObject) PropertyShow(name string) *dbus.Error { return nil }

func (e *engineObject) PropertyHide(name string) *dbus.Error { return nil }

// serviceObject implements org.freedesktop.IBus.Service at the engine path.
type serviceObject struct {
	e *engineObject
}

func (s *serviceObject) Destroy() *dbus.Error {
	s.e.f.destroyEngine(s.e.path)
	return nil
}
