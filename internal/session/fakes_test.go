package session

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pinyind/internal/engine"
	"pinyind/internal/keys"
	"pinyind/internal/protocol"
)

// evdev codes on the built-in US layout.
const (
	codeEsc       uint32 = 1
	code1         uint32 = 2
	code2         uint32 = 3
	code3         uint32 = 4
	codeMinus     uint32 = 12
	codeEqual     uint32 = 13
	codeBackSpace uint32 = 14
	codeI         uint32 = 23
	codeReturn    uint32 = 28
	codeCtrlL     uint32 = 29
	codeA         uint32 = 30
	codeH         uint32 = 35
	codeShiftL    uint32 = 42
	codeC         uint32 = 46
	codeN         uint32 = 49
	codeSpace     uint32 = 57
	codeUp        uint32 = 103
	codeLeft      uint32 = 105
	codeDown      uint32 = 108
)

type fakeInput struct {
	preedit  string
	caret    int32
	preedits []string
	commits  []string
	serials  []uint32
}

func (f *fakeInput) SetPreedit(text string, begin, end int32) error {
	f.preedit, f.caret = text, begin
	f.preedits = append(f.preedits, text)
	return nil
}

func (f *fakeInput) CommitString(text string) error {
	f.commits = append(f.commits, text)
	return nil
}

func (f *fakeInput) Commit(serial uint32) error {
	f.serials = append(f.serials, serial)
	return nil
}

type keyRecord struct {
	code  uint32
	state protocol.KeyState
}

func (r keyRecord) String() string { return fmt.Sprintf("%d %s", r.code, r.state) }

func press(code uint32) keyRecord   { return keyRecord{code, protocol.KeyPressed} }
func release(code uint32) keyRecord { return keyRecord{code, protocol.KeyReleased} }

// fakeKeyboard tracks which keys are down on the virtual device and
// records releases of keys that were never pressed.
type fakeKeyboard struct {
	events  []keyRecord
	down    map[uint32]bool
	bogus   []uint32
	keymaps []string
	mods    [][4]uint32
}

func newFakeKeyboard() *fakeKeyboard {
	return &fakeKeyboard{down: make(map[uint32]bool)}
}

func (f *fakeKeyboard) Keymap(_ uint32, keymap string) error {
	f.keymaps = append(f.keymaps, keymap)
	return nil
}

func (f *fakeKeyboard) Key(_ uint32, code uint32, state protocol.KeyState) error {
	f.events = append(f.events, keyRecord{code, state})
	if state == protocol.KeyPressed {
		f.down[code] = true
		return nil
	}
	if !f.down[code] {
		f.bogus = append(f.bogus, code)
	}
	delete(f.down, code)
	return nil
}

func (f *fakeKeyboard) Modifiers(d, l, k, g uint32) error {
	f.mods = append(f.mods, [4]uint32{d, l, k, g})
	return nil
}

func (f *fakeKeyboard) stuck() []uint32 {
	var out []uint32
	for code := range f.down {
		out = append(out, code)
	}
	return out
}

type fakePanel struct {
	pages  []engine.Page
	aux    []string
	hidden int
}

func (f *fakePanel) UpdateCandidates(p engine.Page) error {
	f.pages = append(f.pages, p)
	return nil
}

func (f *fakePanel) UpdateAux(text string) error {
	f.aux = append(f.aux, text)
	return nil
}

func (f *fakePanel) Hide() error {
	f.hidden++
	return nil
}

type fakeTimer struct {
	armed    bool
	initial  time.Duration
	interval time.Duration
	arms     int
}

func (f *fakeTimer) Arm(initial, interval time.Duration) error {
	f.armed, f.initial, f.interval = true, initial, interval
	f.arms++
	return nil
}

func (f *fakeTimer) Disarm() error {
	f.armed = false
	return nil
}

// fakeEngine offers three candidates per input. Choosing candidate i
// consumes consumed[i] symbols, or the whole input if unset.
type fakeEngine struct {
	style    engine.Style
	active   bool
	input    string
	context  string
	cands    []string
	page     int
	chosen   string
	commit   string
	consumed map[int]int

	chooseCalls []int
	feeds       int
	rawKeys     []keys.Sym
}

var _ engine.Gateway = (*fakeEngine)(nil)

func (f *fakeEngine) Style() engine.Style { return f.style }
func (f *fakeEngine) Activate()           { f.active = true }
func (f *fakeEngine) Deactivate()         { f.active = false }
func (f *fakeEngine) Active() bool        { return f.active }

func (f *fakeEngine) Feed(input, context string) {
	f.feeds++
	f.input, f.context = input, context
	f.candidates()
}

func (f *fakeEngine) candidates() {
	f.cands, f.page = nil, 0
	if f.input == "" {
		return
	}
	f.cands = []string{f.input + "1", f.input + "2", f.input + "3"}
}

func (f *fakeEngine) Page() engine.Page {
	if len(f.cands) == 0 {
		return engine.Page{}
	}
	return engine.Page{Items: f.cands, Number: f.page, Total: 1}
}

func (f *fakeEngine) Choose(index int) (int, bool) {
	f.chooseCalls = append(f.chooseCalls, index)
	if index >= len(f.cands) {
		return 0, false
	}
	n, ok := f.consumed[index]
	if !ok || n > len(f.input) {
		n = len(f.input)
	}
	f.chosen += f.cands[index]
	f.input = f.input[n:]
	if f.input == "" {
		f.commit, f.chosen = f.chosen, ""
	}
	f.candidates()
	return n, true
}

func (f *fakeEngine) ChangePage(forward bool) bool {
	if forward {
		f.page++
	} else if f.page > 0 {
		f.page--
	}
	return true
}

func (f *fakeEngine) MoveCursor(int) bool { return false }

func (f *fakeEngine) Preedit() engine.Preedit {
	text := f.chosen + f.input
	return engine.Preedit{Text: text, SelEnd: len(f.chosen), Cursor: len(text), Chosen: f.chosen}
}

func (f *fakeEngine) TakeCommit() (string, bool) {
	c := f.commit
	f.commit = ""
	return c, c != ""
}

func (f *fakeEngine) Aux() (string, bool) { return "", false }

func (f *fakeEngine) Composing() bool { return f.input != "" || f.chosen != "" }

func (f *fakeEngine) Reset() {
	f.input, f.chosen, f.commit = "", "", ""
	f.cands, f.page = nil, 0
}

func (f *fakeEngine) ProcessRawKey(sym keys.Sym, _ keys.Mask) bool {
	f.rawKeys = append(f.rawKeys, sym)
	if !sym.IsLetter() {
		return false
	}
	f.input += string(sym.Rune())
	f.candidates()
	return true
}

type harness struct {
	t     *testing.T
	s     *Session
	input *fakeInput
	kb    *fakeKeyboard
	timer *fakeTimer
	clock time.Time
}

func newHarness(t *testing.T, eng engine.Gateway, panel protocol.Panel, opts Options) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		input: &fakeInput{},
		kb:    newFakeKeyboard(),
		timer: &fakeTimer{},
		clock: time.Unix(1_700_000_000, 0),
	}
	s, err := New(Deps{
		Engine:   eng,
		Input:    h.input,
		Keyboard: h.kb,
		Panel:    panel,
		Timer:    h.timer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, opts)
	require.NoError(t, err)
	s.now = func() time.Time { return h.clock }
	h.s = s
	return h
}

func (h *harness) key(code uint32, state protocol.KeyState) {
	h.t.Helper()
	h.clock = h.clock.Add(10 * time.Millisecond)
	require.NoError(h.t, h.s.Key(protocol.KeyEvent{Time: h.clock, Code: code, State: state}))
}

func (h *harness) down(code uint32) { h.key(code, protocol.KeyPressed) }
func (h *harness) up(code uint32)   { h.key(code, protocol.KeyReleased) }

func (h *harness) tap(codes ...uint32) {
	for _, c := range codes {
		h.down(c)
		h.up(c)
	}
}

func (h *harness) toggle() {
	h.tap(codeCtrlL, codeCtrlL)
}
