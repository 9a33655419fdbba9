package protocol

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinyind/internal/keys"
)

// recorder logs every call as a string.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) error {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	return nil
}

func (r *recorder) Keymap(format uint32, keymap string) error {
	return r.add("keymap %d %q", format, keymap)
}
func (r *recorder) Key(ev KeyEvent) error { return r.add("key %d %s", ev.Code, ev.State) }
func (r *recorder) Modifiers(d, l, k keys.Mask, g uint32) error {
	return r.add("mods %d %d %d %d", d, l, k, g)
}
func (r *recorder) RepeatInfo(rate, delay int32) error { return r.add("repeat %d %d", rate, delay) }
func (r *recorder) Activate() error                    { return r.add("activate") }
func (r *recorder) Deactivate() error                  { return r.add("deactivate") }
func (r *recorder) SurroundingText(text string, cursor, anchor int) error {
	return r.add("surrounding %q %d %d", text, cursor, anchor)
}
func (r *recorder) Done() error                   { return r.add("done") }
func (r *recorder) SelectCandidate(i int) error   { return r.add("select %d", i) }
func (r *recorder) ChangePage(forward bool) error { return r.add("page %t", forward) }
func (r *recorder) MoveHighlight(delta int) error { return r.add("highlight %d", delta) }
func (r *recorder) Unavailable() error            { return r.add("unavailable") }

type bogusEvent struct{}

func (bogusEvent) event() {}

func TestDispatch(t *testing.T) {
	events := []Event{
		KeymapEvent{Format: 1, Keymap: "xkb"},
		ModifiersEvent{Depressed: keys.ModShift, Locked: keys.ModLock, Group: 0},
		RepeatInfoEvent{Rate: 25, DelayMs: 600},
		ActivateEvent{},
		SurroundingTextEvent{Text: "abc", Cursor: 3, Anchor: 3},
		DoneEvent{},
		KeyEvent{Time: time.Unix(1, 0), Code: 30, State: KeyPressed},
		KeyEvent{Code: 30, State: KeyReleased},
		SelectCandidateEvent{Index: 2},
		ChangePageEvent{Forward: true},
		MoveHighlightEvent{Delta: -1},
		DeactivateEvent{},
		UnavailableEvent{},
	}
	r := &recorder{}
	for _, ev := range events {
		require.NoError(t, Dispatch(r, ev))
	}
	assert.Equal(t, []string{
		`keymap 1 "xkb"`,
		"mods 1 0 2 0",
		"repeat 25 600",
		"activate",
		`surrounding "abc" 3 3`,
		"done",
		"key 30 pressed",
		"key 30 released",
		"select 2",
		"page true",
		"highlight -1",
		"deactivate",
		"unavailable",
	}, r.calls)
}

func TestDispatchUnknown(t *testing.T) {
	err := Dispatch(&recorder{}, bogusEvent{})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
