package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinyind/internal/engine"
	"pinyind/internal/keys"
	"pinyind/internal/protocol"
)

func TestPassThroughForwardsKeys(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())

	a := keys.Logical{Sym: keys.FromRune('a'), Code: codeA, Pressed: true}
	assert.Equal(t, Forwarded, h.s.Route(a))
	assert.Equal(t, Forwarded, h.s.Route(a.Release()))

	assert.Equal(t, []keyRecord{press(codeA), release(codeA)}, h.kb.events)
	assert.True(t, h.s.Buffer().Empty())
	assert.Equal(t, PassThrough, h.s.Mode())
	assert.False(t, eng.Active())
	assert.Empty(t, h.input.preedits)
}

func TestReleaseOfUnseenPressIsForwarded(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())

	// Control went down before the session started.
	h.up(codeCtrlL)
	assert.Equal(t, PassThrough, h.s.Mode())
	assert.Equal(t, []keyRecord{release(codeCtrlL)}, h.kb.events)

	h.toggle()
	before := len(h.kb.events)
	h.up(codeShiftL)
	assert.Equal(t, []keyRecord{release(codeShiftL)}, h.kb.events[before:], "also while composing")

	before = len(h.kb.events)
	h.tap(codeN)
	assert.Len(t, h.kb.events, before, "release of a consumed key stays here")
	assert.Empty(t, h.s.Unreleased())
}

func TestToggleIntoComposing(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())

	h.toggle()
	require.Equal(t, Composing, h.s.Mode())
	assert.True(t, eng.Active())
	assert.Len(t, h.kb.events, 4, "the toggle key itself reaches the application")

	h.tap(codeN, codeI)
	assert.Equal(t, "ni", h.s.Buffer().Text())
	assert.Equal(t, "ni", eng.input)
	assert.Equal(t, "ni <- [1]ni1 [2]ni2 [3]ni3", h.input.preedit)
	assert.Equal(t, int32(2), h.input.caret)
	assert.Len(t, h.kb.events, 4, "letters are not forwarded")
}

func TestChooseCandidate(t *testing.T) {
	eng := &fakeEngine{consumed: map[int]int{1: 1}}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN, codeI)

	h.tap(code2)
	assert.Equal(t, []int{1}, eng.chooseCalls)
	assert.Equal(t, "i", h.s.Buffer().Text(), "consumed prefix is dropped")
	assert.Empty(t, h.input.commits)
	assert.Equal(t, "ni2i <- [1]i1 [2]i2 [3]i3", h.input.preedit)
	assert.Equal(t, int32(4), h.input.caret)

	h.tap(code1)
	assert.Equal(t, []string{"ni2i1"}, h.input.commits)
	assert.True(t, h.s.Buffer().Empty())
	assert.Equal(t, "", h.input.preedit)
	assert.Equal(t, Composing, h.s.Mode(), "commit does not leave the mode")
	assert.True(t, eng.Active())
}

func TestDigitBeyondPageIsForwarded(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN)
	before := len(h.kb.events)

	h.tap(code3 + 1) // "4" with three candidates
	assert.Empty(t, eng.chooseCalls)
	assert.Equal(t, []keyRecord{press(code3 + 1), release(code3 + 1)}, h.kb.events[before:])
	assert.Equal(t, "n", h.s.Buffer().Text())
}

func TestSpaceChoosesHighlighted(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN, codeI, codeSpace)

	assert.Equal(t, []int{0}, eng.chooseCalls)
	assert.Equal(t, []string{"ni1"}, h.input.commits)
}

func TestRepeatSchedule(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	require.NoError(t, h.s.RepeatInfo(25, 600))

	h.down(codeA)
	require.True(t, h.timer.armed)
	assert.Equal(t, int64(600), h.timer.initial.Milliseconds())
	assert.Equal(t, int64(40), h.timer.interval.Milliseconds())

	gen := h.s.RepeatGeneration()
	h.s.RepeatTick(gen, 2)
	assert.Equal(t, []keyRecord{
		press(codeA),
		press(codeA), release(codeA),
		press(codeA), release(codeA),
	}, h.kb.events)

	h.up(codeA)
	assert.False(t, h.timer.armed)
	assert.Len(t, h.kb.events, 5, "the device already saw the last release")
	assert.Empty(t, h.kb.bogus)
	assert.Empty(t, h.kb.stuck())

	h.s.RepeatTick(gen, 1)
	assert.Len(t, h.kb.events, 5, "stale tick after release")
}

func TestReleaseBeforeFirstTick(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	require.NoError(t, h.s.RepeatInfo(25, 600))

	h.down(codeA)
	gen := h.s.RepeatGeneration()
	h.up(codeA)
	assert.False(t, h.timer.armed)

	h.s.RepeatTick(gen, 1)
	assert.Equal(t, []keyRecord{press(codeA), release(codeA)}, h.kb.events)
}

func TestNoRepeatWithoutInfo(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	h.down(codeA)
	assert.Zero(t, h.timer.arms)
	h.s.RepeatTick(h.s.RepeatGeneration(), 3)
	assert.Len(t, h.kb.events, 1)
}

func TestRepeatedBackSpaceEditsBuffer(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	require.NoError(t, h.s.RepeatInfo(30, 500))
	h.toggle()
	h.tap(codeN, codeI, codeH)

	h.down(codeBackSpace)
	assert.Equal(t, "ni", h.s.Buffer().Text())
	h.s.RepeatTick(h.s.RepeatGeneration(), 1)
	assert.Equal(t, "n", h.s.Buffer().Text())
	h.up(codeBackSpace)
	assert.False(t, h.timer.armed)
}

func TestToggleDisarmsRepeat(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	require.NoError(t, h.s.RepeatInfo(30, 500))
	h.down(codeA)
	require.True(t, h.timer.armed)
	gen := h.s.RepeatGeneration()

	h.toggle()
	assert.False(t, h.timer.armed)
	n := len(h.kb.events)
	h.s.RepeatTick(gen, 1)
	assert.Len(t, h.kb.events, n)
}

func TestToggleOutDiscards(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN, codeI)

	h.toggle()
	assert.Equal(t, PassThrough, h.s.Mode())
	assert.True(t, h.s.Buffer().Empty())
	assert.False(t, eng.Active())
	assert.Empty(t, h.input.commits)
	assert.Equal(t, "", h.input.preedit)
}

func TestToggleOutCommits(t *testing.T) {
	opts := DefaultOptions()
	opts.CommitOnToggleOut = true
	eng := &fakeEngine{consumed: map[int]int{0: 1}}
	h := newHarness(t, eng, nil, opts)
	h.toggle()
	h.tap(codeN, codeI, code1)

	h.toggle()
	assert.Equal(t, []string{"ni1i"}, h.input.commits)
	assert.Equal(t, PassThrough, h.s.Mode())
}

func TestToggleIntoComposingReleasesForwardedKeys(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	h.down(codeA)
	h.toggle()

	assert.Equal(t, []keyRecord{
		press(codeA),
		press(codeCtrlL), release(codeCtrlL),
		press(codeCtrlL), release(codeCtrlL),
		release(codeA),
	}, h.kb.events)

	h.up(codeA)
	assert.Len(t, h.kb.events, 6, "release of a flushed key is not repeated")
	assert.Empty(t, h.kb.bogus)
}

func TestToggleNeedsIsolatedTaps(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())

	h.tap(codeCtrlL, codeA, codeCtrlL)
	assert.Equal(t, PassThrough, h.s.Mode(), "interleaved key")

	h.down(codeShiftL)
	h.tap(codeCtrlL, codeCtrlL)
	h.up(codeShiftL)
	assert.Equal(t, PassThrough, h.s.Mode(), "another modifier held")

	h.tap(codeCtrlL, codeCtrlL)
	assert.Equal(t, Composing, h.s.Mode())
}

func TestBufferEditing(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN, codeI)

	h.tap(codeLeft, codeA)
	assert.Equal(t, "nai", h.s.Buffer().Text())
	assert.Equal(t, 2, h.s.Buffer().Cursor())
	assert.Equal(t, int32(2), h.input.caret)

	h.tap(codeBackSpace)
	assert.Equal(t, "ni", h.s.Buffer().Text())
	assert.Equal(t, "ni", eng.input)

	h.tap(codeEsc)
	assert.True(t, h.s.Buffer().Empty())
	assert.Empty(t, h.input.commits)
	assert.Equal(t, "", h.input.preedit)

	h.down(codeShiftL)
	h.tap(codeN)
	h.up(codeShiftL)
	assert.Equal(t, "N", h.s.Buffer().Text(), "shifted letters compose")
}

func TestReturnCommitsRawText(t *testing.T) {
	eng := &fakeEngine{consumed: map[int]int{0: 1}}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN, codeI, code1)
	require.Equal(t, "i", h.s.Buffer().Text())

	h.tap(codeReturn)
	assert.Equal(t, []string{"ni1i"}, h.input.commits)
	assert.True(t, h.s.Buffer().Empty())
	assert.False(t, eng.Composing())
}

func TestExitChordReleasesEverything(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN)

	h.down(codeCtrlL)
	h.down(codeC)
	assert.True(t, h.s.Exiting())
	assert.Equal(t, PassThrough, h.s.Mode())
	assert.False(t, eng.Active())
	assert.True(t, h.s.Buffer().Empty())
	assert.Equal(t, []uint32{codeCtrlL}, h.s.Unreleased())

	require.NoError(t, h.s.Close())
	assert.Empty(t, h.s.Unreleased())
	assert.Empty(t, h.kb.stuck())
	assert.Empty(t, h.kb.bogus)
	assert.Empty(t, h.input.commits)

	require.NoError(t, h.s.Close(), "close is idempotent")
}

func TestControlShortcutsPassThroughComposing(t *testing.T) {
	opts := DefaultOptions()
	opts.ExitChord = false
	h := newHarness(t, &fakeEngine{}, nil, opts)
	h.toggle()

	h.down(codeCtrlL)
	h.tap(codeC)
	h.up(codeCtrlL)
	assert.False(t, h.s.Exiting())
	assert.True(t, h.s.Buffer().Empty())
	assert.Contains(t, h.kb.events, press(codeC))
}

func TestCommitSerialStartsAtOne(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN, codeI, codeSpace)

	require.NotEmpty(t, h.input.serials)
	assert.Equal(t, uint32(1), h.input.serials[0])
	for i := 1; i < len(h.input.serials); i++ {
		assert.Equal(t, h.input.serials[i-1]+1, h.input.serials[i])
	}
	assert.Equal(t, h.input.serials[len(h.input.serials)-1], h.s.Serial())
}

func TestPanelReceivesCandidates(t *testing.T) {
	panel := &fakePanel{}
	h := newHarness(t, &fakeEngine{}, panel, DefaultOptions())
	h.toggle()
	h.tap(codeN)

	require.NotEmpty(t, panel.pages)
	assert.Equal(t, []string{"n1", "n2", "n3"}, panel.pages[len(panel.pages)-1].Items)
	assert.Equal(t, "n", h.input.preedit, "no inline candidates with a panel")

	require.NoError(t, h.s.SelectCandidate(2))
	assert.Equal(t, []string{"n3"}, h.input.commits)
	assert.Equal(t, 1, panel.hidden)

	require.NoError(t, h.s.ChangePage(true), "ignored without composition")
}

func TestFocusChangeAbandonsComposition(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	h.tap(codeN)
	h.down(codeShiftL)

	require.NoError(t, h.s.Deactivate())
	assert.True(t, h.s.Buffer().Empty())
	assert.False(t, eng.Composing())
	assert.Equal(t, "", h.input.preedit)
	assert.Empty(t, h.s.Unreleased(), "held shift released on the device")
	assert.Equal(t, Composing, h.s.Mode(), "mode survives focus changes")

	n := len(h.input.serials)
	require.NoError(t, h.s.Activate())
	require.NoError(t, h.s.Done())
	assert.Len(t, h.input.serials, n+1, "state is re-sent after activation")
	require.NoError(t, h.s.Done())
	assert.Len(t, h.input.serials, n+1)
}

func TestSurroundingTextIsFedAsContext(t *testing.T) {
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()
	require.NoError(t, h.s.SurroundingText("hello world", 5, 5))
	h.tap(codeN)
	assert.Equal(t, "hello", eng.context)
}

func TestDefaultActive(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultActive = true
	eng := &fakeEngine{}
	h := newHarness(t, eng, nil, opts)
	assert.Equal(t, Composing, h.s.Mode())
	assert.True(t, eng.Active())
}

const swappedKeymap = `xkb_keymap {
xkb_keycodes "test" {
	<AC01> = 38;
	<LCTL> = 37;
};
xkb_symbols "test" {
	key <AC01> { [ q, Q ] };
	key <LCTL> { [ Control_L ] };
};
};`

func TestKeymapUpdates(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())

	require.NoError(t, h.s.Keymap(1, swappedKeymap))
	require.NoError(t, h.s.Keymap(1, swappedKeymap+"\x00"))
	assert.Len(t, h.kb.keymaps, 1, "duplicate keymap is not forwarded")

	require.NoError(t, h.s.Keymap(1, "garbage"), "malformed keymap is logged")
	assert.Len(t, h.kb.keymaps, 1)

	h.toggle()
	h.tap(codeA)
	assert.Equal(t, "q", h.s.Buffer().Text(), "previous keymap still active")
}

func TestModifiersAreMirrored(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, nil, DefaultOptions())
	require.NoError(t, h.s.Modifiers(keys.ModShift, 0, keys.ModLock, 0))
	assert.Equal(t, [][4]uint32{{1, 0, 2, 0}}, h.kb.mods)
}

func TestRawKeyEngine(t *testing.T) {
	eng := &fakeEngine{style: engine.StyleRawKey}
	h := newHarness(t, eng, nil, DefaultOptions())
	h.toggle()

	h.tap(codeN, codeI)
	assert.Equal(t, "ni", eng.input)
	assert.True(t, h.s.Buffer().Empty(), "router buffer unused for raw-key engines")

	before := len(h.kb.events)
	h.tap(codeSpace)
	assert.Equal(t, []keyRecord{press(codeSpace), release(codeSpace)}, h.kb.events[before:],
		"unhandled keys fall back to forwarding")
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{Engine: &fakeEngine{}, Keyboard: newFakeKeyboard(), Timer: &fakeTimer{}}, DefaultOptions())
	assert.ErrorIs(t, err, protocol.ErrUnavailable)

	_, err = New(Deps{Input: &fakeInput{}, Keyboard: newFakeKeyboard(), Timer: &fakeTimer{}}, DefaultOptions())
	assert.Error(t, err)
}
