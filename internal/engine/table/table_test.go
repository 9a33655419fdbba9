package table

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinyind/internal/dict"
	"pinyind/internal/engine"
	"pinyind/internal/keys"
)

var testEntries = []dict.Entry{
	{Code: "ni", Text: "你", Weight: 100},
	{Code: "ni", Text: "尼", Weight: 20},
	{Code: "hao", Text: "好", Weight: 95},
	{Code: "nihao", Text: "你好", Weight: 90},
	{Code: "nimen", Text: "你们", Weight: 80},
	{Code: "n", Text: "嗯", Weight: 1},
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(context.Background(), nil, opts, nil)
	require.NoError(t, err)
	e.Load(testEntries)
	e.Activate()
	return e
}

func indexOf(items []string, s string) int {
	for i, item := range items {
		if item == s {
			return i
		}
	}
	return -1
}

func TestCandidateOrder(t *testing.T) {
	e := newTestEngine(t, Options{PageSize: 3, MaxCompletions: 5})
	e.Feed("ni", "")

	p := e.Page()
	assert.Equal(t, []string{"你", "尼", "你好"}, p.Items)
	assert.Equal(t, 0, p.Number)
	assert.Equal(t, 2, p.Total)

	require.True(t, e.ChangePage(true))
	p = e.Page()
	assert.Equal(t, []string{"你们", "嗯", "ni"}, p.Items, "shorter codes, then the raw input")
	assert.False(t, e.ChangePage(true))
	assert.True(t, e.ChangePage(false))
	assert.False(t, e.ChangePage(false))

	aux, ok := e.Aux()
	require.True(t, ok)
	assert.Equal(t, "ni  1/2", aux)
}

func TestChooseWholeInputCommits(t *testing.T) {
	e := newTestEngine(t, Options{PageSize: 5})
	e.Feed("nihao", "")

	p := e.Page()
	require.NotEmpty(t, p.Items)
	assert.Equal(t, "你好", p.Items[0])

	consumed, ok := e.Choose(0)
	require.True(t, ok)
	assert.Equal(t, 5, consumed)

	commit, ok := e.TakeCommit()
	require.True(t, ok)
	assert.Equal(t, "你好", commit)
	_, ok = e.TakeCommit()
	assert.False(t, ok, "commit is drained")
	assert.False(t, e.Composing())
}

func TestPartialChoiceStaysInPreedit(t *testing.T) {
	e := newTestEngine(t, Options{PageSize: 9})
	e.Feed("nihaoma", "")

	// The longer "nihao" match is listed before "ni".
	idx := indexOf(e.Page().Items, "你")
	require.Equal(t, 1, idx)

	consumed, ok := e.Choose(idx)
	require.True(t, ok)
	assert.Equal(t, 2, consumed)
	_, ok = e.TakeCommit()
	assert.False(t, ok)
	assert.True(t, e.Composing())

	pre := e.Preedit()
	assert.Equal(t, "你haoma", pre.Text)
	assert.Equal(t, "你", pre.Chosen)
	assert.Equal(t, len("你"), pre.SelEnd)

	// The router truncates its buffer and feeds the rest back.
	e.Feed("haoma", "")
	assert.Equal(t, "好", e.Page().Items[0])
	consumed, ok = e.Choose(0)
	require.True(t, ok)
	assert.Equal(t, 3, consumed)

	e.Feed("ma", "")
	last := e.Page().Len() - 1
	consumed, ok = e.Choose(last)
	require.True(t, ok)
	assert.Equal(t, 2, consumed)

	commit, ok := e.TakeCommit()
	require.True(t, ok)
	assert.Equal(t, "你好ma", commit)
}

func TestChooseOutOfRange(t *testing.T) {
	e := newTestEngine(t, Options{PageSize: 5})
	e.Feed("hao", "")
	n := e.Page().Len()

	_, ok := e.Choose(n)
	assert.False(t, ok)
	_, ok = e.Choose(-1)
	assert.False(t, ok)

	e.Deactivate()
	_, ok = e.Choose(0)
	assert.False(t, ok)
}

func TestMoveCursorCrossesPages(t *testing.T) {
	e := newTestEngine(t, Options{PageSize: 2, MaxCompletions: 5})
	e.Feed("ni", "")

	assert.False(t, e.MoveCursor(-1))
	assert.True(t, e.MoveCursor(1))
	assert.Equal(t, 1, e.Page().Highlighted)
	assert.True(t, e.MoveCursor(1))
	p := e.Page()
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 0, p.Highlighted)
	assert.True(t, e.MoveCursor(100))
	assert.False(t, e.MoveCursor(1))
}

func TestActivateDeactivateIdempotent(t *testing.T) {
	e := newTestEngine(t, Options{})
	e.Feed("ni", "")
	e.Activate()
	assert.True(t, e.Composing(), "activating an active engine keeps its state")

	e.Deactivate()
	e.Deactivate()
	assert.False(t, e.Active())
	assert.False(t, e.Composing())

	fresh, err := New(context.Background(), nil, Options{}, nil)
	require.NoError(t, err)
	assert.NotPanics(t, fresh.Deactivate)
}

func TestEmptyTableOffersRawInput(t *testing.T) {
	e, err := New(context.Background(), nil, DefaultOptions(), nil)
	require.NoError(t, err)
	e.Activate()
	e.Feed("Xyz", "")
	assert.Equal(t, []string{"Xyz"}, e.Page().Items)
}

func TestLearningWithStore(t *testing.T) {
	ctx := context.Background()
	store, err := dict.Open(filepath.Join(t.TempDir(), "dict.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Insert(ctx, []dict.Entry{
		{Code: "shi", Text: "是", Weight: 10},
		{Code: "shi", Text: "十", Weight: 9},
	}))

	e, err := New(ctx, store, Options{PageSize: 5, Learn: true}, nil)
	require.NoError(t, err)
	e.Activate()

	for i := 0; i < 2; i++ {
		e.Feed("shi", "")
		idx := indexOf(e.Page().Items, "十")
		require.GreaterOrEqual(t, idx, 0)
		_, ok := e.Choose(idx)
		require.True(t, ok)
		e.TakeCommit()
	}

	e.Feed("shi", "")
	assert.Equal(t, "十", e.Page().Items[0], "in-memory index learned")

	got, err := store.Lookup(ctx, "shi")
	require.NoError(t, err)
	assert.Equal(t, int64(11), got[0].Weight)
	assert.Equal(t, "十", got[0].Text)

	require.NoError(t, e.Reload(ctx))
	e.Feed("shi", "")
	assert.Equal(t, "十", e.Page().Items[0], "store persisted the weights")
}

func TestRawKeyStyle(t *testing.T) {
	e := newTestEngine(t, Options{Style: engine.StyleRawKey, PageSize: 5})
	assert.Equal(t, engine.StyleRawKey, e.Style())

	assert.False(t, e.ProcessRawKey(keys.Key1, 0), "digits pass through when idle")
	assert.False(t, e.ProcessRawKey(keys.FromRune('n'), keys.ModControl))

	for _, r := range "nihao" {
		require.True(t, e.ProcessRawKey(keys.FromRune(r), 0))
	}
	assert.Equal(t, "nihao", e.Preedit().Text)

	require.True(t, e.ProcessRawKey(keys.BackSpace, 0))
	assert.Equal(t, "niha", e.Preedit().Text)
	require.True(t, e.ProcessRawKey(keys.FromRune('o'), 0))

	require.True(t, e.ProcessRawKey(keys.Left, 0))
	assert.Equal(t, len("niha"), e.Preedit().Cursor)
	require.True(t, e.ProcessRawKey(keys.Right, 0))

	assert.False(t, e.ProcessRawKey(keys.Comma, 0), "unbound keys fall through")

	require.True(t, e.ProcessRawKey(keys.Space, 0))
	commit, ok := e.TakeCommit()
	require.True(t, ok)
	assert.Equal(t, "你好", commit)
	assert.False(t, e.Composing())

	for _, r := range "ni" {
		e.ProcessRawKey(keys.FromRune(r), 0)
	}
	require.True(t, e.ProcessRawKey(keys.Escape, 0))
	assert.False(t, e.Composing())
	_, ok = e.TakeCommit()
	assert.False(t, ok)

	for _, r := range "ni" {
		e.ProcessRawKey(keys.FromRune(r), 0)
	}
	require.True(t, e.ProcessRawKey(keys.Return, 0))
	commit, _ = e.TakeCommit()
	assert.Equal(t, "ni", commit)
}

func TestRawKeyIgnoredInBufferStyle(t *testing.T) {
	e := newTestEngine(t, Options{})
	assert.False(t, e.ProcessRawKey(keys.LowerA, 0))
}
