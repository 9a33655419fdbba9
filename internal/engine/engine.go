// Package engine defines the contract between the key router and a
// composition engine.
//
// An engine converts phonetic input into script. The router drives it in
// one of two styles. In the buffer style the router owns the composition
// buffer, feeds its contents on every change and maps command keys onto
// Choose, ChangePage and MoveCursor. In the raw-key style the engine owns
// all key semantics and the router only hands it keys through
// ProcessRawKey. Either way the router reads results back through Preedit,
// Page, Aux and TakeCommit.
//
// Engines are stateful and synchronous. Calls never overlap.
package engine

import (
	"fmt"

	"pinyind/internal/keys"
)

// Style selects how the router integrates an engine.
type Style int

const (
	StyleBuffer Style = iota
	StyleRawKey
)

func (s Style) String() string {
	switch s {
	case StyleBuffer:
		return "buffer"
	case StyleRawKey:
		return "rawkey"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// ParseStyle parses the configuration name of a style.
func ParseStyle(name string) (Style, error) {
	switch name {
	case "", "buffer":
		return StyleBuffer, nil
	case "rawkey", "raw":
		return StyleRawKey, nil
	}
	return StyleBuffer, fmt.Errorf("unknown engine style %q", name)
}

// Page is the visible slice of the candidate list.
type Page struct {
	Items       []string
	Number      int // zero based
	Highlighted int // index into Items
	Total       int // number of pages
}

// Len returns the number of candidates on the page.
func (p Page) Len() int { return len(p.Items) }

// Preedit is the uncommitted text shown at the cursor. Offsets are bytes.
type Preedit struct {
	Text     string
	SelStart int
	SelEnd   int
	Cursor   int

	// Chosen is the already converted text of partial selections that
	// precede the pending input. It is committed along with the raw input
	// when the user accepts the composition verbatim.
	Chosen string
}

// Gateway is implemented by composition engines.
type Gateway interface {
	Style() Style

	// Activate starts a composition cycle with empty state.
	Activate()
	// Deactivate ends the cycle. It is idempotent.
	Deactivate()
	Active() bool

	// Feed replaces the phonetic input. context is text to the left of
	// the caret, possibly empty.
	Feed(input, context string)

	Page() Page
	// Choose selects a candidate on the current page and returns how many
	// leading input symbols it consumed.
	Choose(index int) (consumed int, ok bool)
	ChangePage(forward bool) bool
	MoveCursor(delta int) bool

	Preedit() Preedit
	// TakeCommit returns pending committed text and clears it.
	TakeCommit() (string, bool)
	Aux() (string, bool)

	// Composing reports whether the engine holds uncommitted state.
	Composing() bool
	// Reset abandons the current composition without committing.
	Reset()

	// ProcessRawKey hands a press to a raw-key engine. It reports whether
	// the engine consumed the key.
	ProcessRawKey(sym keys.Sym, mods keys.Mask) bool
}

// Snapshot is a read-only copy of what an engine shows after a key.
type Snapshot struct {
	Preedit Preedit
	Page    Page
	Aux     string
	Commit  string
}

// Capture pulls a snapshot from g, draining its pending commit.
func Capture(g Gateway) Snapshot {
	s := Snapshot{
		Preedit: g.Preedit(),
		Page:    g.Page(),
	}
	s.Aux, _ = g.Aux()
	s.Commit, _ = g.TakeCommit()
	return s
}

// Empty reports whether the snapshot has nothing to display or commit.
func (s Snapshot) Empty() bool {
	return s.Preedit.Text == "" && s.Page.Len() == 0 && s.Aux == "" && s.Commit == ""
}
