package ibus

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinyind/internal/dict"
	"pinyind/internal/engine/table"
	"pinyind/internal/protocol"
	"pinyind/internal/session"
)

type idleTimer struct{}

func (idleTimer) Arm(time.Duration, time.Duration) error { return nil }
func (idleTimer) Disarm() error                          { return nil }

// X keysyms and evdev codes used below.
const (
	ksControlL = 0xffe3
	codeCtrlL  = 29
	codeA      = 30
	codeN      = 49
	codeI      = 23
	code1      = 2
)

func TestFrontendDrivesSession(t *testing.T) {
	bus := newFakeBus()
	poster := &fakePoster{}
	f := New(bus, poster, testOptions, nil)
	require.NoError(t, f.Register())
	path, derr := (&factory{f: f}).CreateEngine("pinyind")
	require.Nil(t, derr)
	obj := bus.exports[string(path)+" "+EngineInterface].(*engineObject)

	eng, err := table.New(context.Background(), nil, table.DefaultOptions(), nil)
	require.NoError(t, err)
	eng.Load([]dict.Entry{
		{Code: "ni", Text: "你", Weight: 100},
		{Code: "ni", Text: "尼", Weight: 50},
	})
	s, err := session.New(session.Deps{
		Engine:   eng,
		Input:    f,
		Keyboard: f,
		Panel:    f,
		Timer:    idleTimer{},
	}, session.DefaultOptions())
	require.NoError(t, err)

	pump := func() {
		for _, ev := range poster.events {
			require.NoError(t, protocol.Dispatch(s, ev))
		}
		poster.events = nil
	}
	tap := func(keyval, code, state uint32) {
		obj.ProcessKeyEvent(keyval, code, state)
		obj.ProcessKeyEvent(keyval, code, state|ReleaseMask)
		pump()
	}

	obj.FocusIn()
	pump()
	assert.Contains(t, bus.members(), "HidePreeditText", "state is re-sent after focus")
	bus.emits = nil

	tap('a', codeA, 0)
	assert.Equal(t, []string{"ForwardKeyEvent", "ForwardKeyEvent"}, bus.members(), "passthrough forwards")
	assert.Equal(t, []any{uint32('a'), uint32(codeA), ReleaseMask}, bus.last().values)

	for range 2 {
		obj.ProcessKeyEvent(ksControlL, codeCtrlL, 0)
		obj.ProcessKeyEvent(ksControlL, codeCtrlL, 4|ReleaseMask)
		pump()
	}
	require.Equal(t, session.Composing, s.Mode())

	bus.emits = nil
	tap('n', codeN, 0)
	tap('i', codeI, 0)
	assert.Contains(t, bus.members(), "UpdateLookupTable")
	assert.Contains(t, bus.members(), "UpdatePreeditText")
	assert.NotContains(t, bus.members(), "ForwardKeyEvent")

	bus.emits = nil
	tap('1', code1, 0)
	var commits []string
	for _, e := range bus.emits {
		if e.member == "CommitText" {
			c, _ := textValue(e.values[0].(dbus.Variant))
			commits = append(commits, c)
		}
	}
	assert.Equal(t, []string{"你"}, commits)

	require.NoError(t, s.Close())
	assert.Empty(t, s.Unreleased())
}
