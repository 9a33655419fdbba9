// Package table implements a code-table composition engine.
//
// Input is matched against dictionary codes: every code that is a prefix of
// the input yields candidates consuming that many symbols, longest code
// first, and codes that extend the input yield completions. The input as
// typed is always offered last so that nothing the user types is lost.
// Choosing a candidate that does not consume the whole input keeps it in
// the preedit until the rest is converted.
package table

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"pinyind/internal/composition"
	"pinyind/internal/dict"
	"pinyind/internal/engine"
	"pinyind/internal/keys"
)

// Options tunes the engine.
type Options struct {
	Style          engine.Style
	PageSize       int
	Learn          bool
	MaxCompletions int
}

// DefaultOptions returns the options used when the configuration is silent.
func DefaultOptions() Options {
	return Options{
		Style:          engine.StyleBuffer,
		PageSize:       5,
		MaxCompletions: 10,
	}
}

type candidate struct {
	dict.Entry
	consumed int
	raw      bool
}

// Engine is a table engine. It satisfies engine.Gateway.
type Engine struct {
	opts   Options
	store  *dict.Store
	index  atomic.Pointer[dict.Index]
	logger *slog.Logger

	active    bool
	input     []rune
	raw       *composition.Buffer
	chosen    []candidate
	cands     []candidate
	page      int
	highlight int
	commit    string
	hasCommit bool
}

var _ engine.Gateway = (*Engine)(nil)

// New creates an engine over store. A nil store gives an engine with an
// empty table that only offers the raw input.
func New(ctx context.Context, store *dict.Store, opts Options, logger *slog.Logger) (*Engine, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultOptions().PageSize
	}
	if opts.MaxCompletions < 0 {
		opts.MaxCompletions = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		opts:   opts,
		store:  store,
		raw:    composition.New(),
		logger: logger.With("component", "table"),
	}
	e.index.Store(dict.NewIndex(nil))
	if store != nil {
		if err := e.Reload(ctx); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Reload rebuilds the index from the store. It may run on any goroutine;
// the new index is picked up on the next input change.
func (e *Engine) Reload(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	entries, err := e.store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	ix := dict.NewIndex(entries)
	e.index.Store(ix)
	e.logger.Debug("index rebuilt", "entries", ix.Len(), "codes", ix.Codes())
	return nil
}

// Load replaces the index with entries, bypassing the store.
func (e *Engine) Load(entries []dict.Entry) {
	e.index.Store(dict.NewIndex(entries))
}

func (e *Engine) Style() engine.Style { return e.opts.Style }

func (e *Engine) Activate() {
	if e.active {
		return
	}
	e.active = true
	e.Reset()
}

func (e *Engine) Deactivate() {
	if !e.active {
		return
	}
	e.active = false
	e.Reset()
}

func (e *Engine) Active() bool { return e.active }

// Feed replaces the input. The table engine does not score by context.
func (e *Engine) Feed(input, _ string) {
	e.input = []rune(input)
	e.refresh()
}

func (e *Engine) refresh() {
	e.cands = e.cands[:0]
	e.page, e.highlight = 0, 0
	if len(e.input) == 0 {
		return
	}

	ix := e.index.Load()
	code := []rune(strings.ToLower(string(e.input)))
	seen := make(map[string]bool)
	add := func(c candidate) {
		if seen[c.Text] {
			return
		}
		seen[c.Text] = true
		e.cands = append(e.cands, c)
	}

	for _, en := range ix.Exact(string(code)) {
		add(candidate{Entry: en, consumed: len(code)})
	}
	for _, en := range ix.Completions(string(code), e.opts.MaxCompletions) {
		add(candidate{Entry: en, consumed: len(code)})
	}
	for l := len(code) - 1; l >= 1; l-- {
		for _, en := range ix.Exact(string(code[:l])) {
			add(candidate{Entry: en, consumed: l})
		}
	}
	add(candidate{
		Entry:    dict.Entry{Code: string(code), Text: string(e.input)},
		consumed: len(code),
		raw:      true,
	})
}

func (e *Engine) pages() int {
	return (len(e.cands) + e.opts.PageSize - 1) / e.opts.PageSize
}

func (e *Engine) Page() engine.Page {
	if len(e.cands) == 0 {
		return engine.Page{}
	}
	start := e.page * e.opts.PageSize
	end := min(start+e.opts.PageSize, len(e.cands))
	items := make([]string, 0, end-start)
	for _, c := range e.cands[start:end] {
		items = append(items, c.Text)
	}
	return engine.Page{
		Items:       items,
		Number:      e.page,
		Highlighted: e.highlight,
		Total:       e.pages(),
	}
}

func (e *Engine) Choose(index int) (int, bool) {
	if !e.active || index < 0 || index >= e.opts.PageSize {
		return 0, false
	}
	global := e.page*e.opts.PageSize + index
	if global >= len(e.cands) {
		return 0, false
	}
	c := e.cands[global]
	e.chosen = append(e.chosen, c)

	if e.opts.Style == engine.StyleRawKey {
		e.raw.TruncateFront(c.consumed)
		e.input = []rune(e.raw.Text())
	} else {
		e.input = e.input[min(c.consumed, len(e.input)):]
	}

	if len(e.input) == 0 {
		e.finish(chosenText(e.chosen))
	} else {
		e.refresh()
	}
	return c.consumed, true
}

func (e *Engine) finish(text string) {
	if e.opts.Learn {
		e.learn(e.chosen)
	}
	e.commit = text
	e.hasCommit = text != ""
	e.chosen = e.chosen[:0]
	e.input = e.input[:0]
	e.cands = e.cands[:0]
	e.page, e.highlight = 0, 0
	e.raw.Reset()
}

func (e *Engine) learn(chosen []candidate) {
	ix := e.index.Load()
	for _, c := range chosen {
		if c.raw {
			continue
		}
		ix.Bump(c.Code, c.Text)
		if e.store == nil {
			continue
		}
		if err := e.store.Bump(context.Background(), c.Code, c.Text); err != nil {
			e.logger.Warn("failed to record selection", "error", err)
		}
	}
}

func chosenText(chosen []candidate) string {
	var sb strings.Builder
	for _, c := range chosen {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func (e *Engine) ChangePage(forward bool) bool {
	switch {
	case forward && e.page+1 < e.pages():
		e.page++
	case !forward && e.page > 0:
		e.page--
	default:
		return false
	}
	e.highlight = 0
	return true
}

func (e *Engine) MoveCursor(delta int) bool {
	if len(e.cands) == 0 {
		return false
	}
	cur := e.page*e.opts.PageSize + e.highlight
	next := max(0, min(cur+delta, len(e.cands)-1))
	if next == cur {
		return false
	}
	e.page = next / e.opts.PageSize
	e.highlight = next % e.opts.PageSize
	return true
}

// Preedit shows the converted selections followed by the pending input.
// The selection range covers the converted part.
func (e *Engine) Preedit() engine.Preedit {
	chosen := chosenText(e.chosen)
	text := chosen + string(e.input)
	cursor := len(text)
	if e.opts.Style == engine.StyleRawKey {
		cursor = len(chosen) + len(string([]rune(e.raw.Text())[:e.raw.Cursor()]))
	}
	return engine.Preedit{
		Text:   text,
		SelEnd: len(chosen),
		Cursor: cursor,
		Chosen: chosen,
	}
}

func (e *Engine) TakeCommit() (string, bool) {
	if !e.hasCommit {
		return "", false
	}
	c := e.commit
	e.commit, e.hasCommit = "", false
	return c, true
}

func (e *Engine) Aux() (string, bool) {
	if len(e.cands) == 0 {
		return "", false
	}
	return fmt.Sprintf("%s  %d/%d", string(e.input), e.page+1, e.pages()), true
}

func (e *Engine) Composing() bool {
	return len(e.input) > 0 || len(e.chosen) > 0
}

func (e *Engine) Reset() {
	e.input = e.input[:0]
	e.chosen = e.chosen[:0]
	e.cands = e.cands[:0]
	e.page, e.highlight = 0, 0
	e.commit, e.hasCommit = "", false
	e.raw.Reset()
}

// ProcessRawKey implements the raw-key style with the same bindings the
// router uses for buffer-style engines.
func (e *Engine) ProcessRawKey(sym keys.Sym, mods keys.Mask) bool {
	if e.opts.Style != engine.StyleRawKey || !e.active {
		return false
	}
	if mods.Any(keys.ModCommand) {
		return false
	}
	if !e.Composing() {
		if !sym.IsLetter() {
			return false
		}
		e.raw.Insert(sym.Rune())
		e.syncRaw()
		return true
	}

	cmd, index := engine.CommandFor(sym)
	switch cmd {
	case engine.CmdChoose:
		e.Choose(index)
	case engine.CmdChooseHighlighted:
		e.Choose(e.highlight)
	case engine.CmdBufferLeft:
		e.raw.MoveCursor(-1)
	case engine.CmdBufferRight:
		e.raw.MoveCursor(1)
	case engine.CmdHighlightPrev:
		e.MoveCursor(-1)
	case engine.CmdHighlightNext:
		e.MoveCursor(1)
	case engine.CmdNextPage:
		e.ChangePage(true)
	case engine.CmdPrevPage:
		e.ChangePage(false)
	case engine.CmdDeleteForward:
		if e.raw.DeleteForward() {
			e.syncRaw()
		}
	case engine.CmdDeleteBackward:
		if e.raw.DeleteBackward() {
			e.syncRaw()
		}
	case engine.CmdCommitRaw:
		e.finish(chosenText(e.chosen) + e.raw.Text())
	case engine.CmdCancel:
		e.Reset()
	default:
		if !sym.IsLetter() && sym != keys.Apostrophe {
			return false
		}
		e.raw.Insert(sym.Rune())
		e.syncRaw()
	}
	return true
}

func (e *Engine) syncRaw() {
	e.input = []rune(e.raw.Text())
	e.refresh()
}
