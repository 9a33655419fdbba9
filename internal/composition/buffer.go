// Package composition holds the pending phonetic input of a session.
package composition

// Buffer is an editable sequence of input symbols with a cursor.
// The cursor is always within [0, Len()].
type Buffer struct {
	symbols []rune
	cursor  int
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Text returns the buffer contents.
func (b *Buffer) Text() string { return string(b.symbols) }

// Len returns the number of symbols.
func (b *Buffer) Len() int { return len(b.symbols) }

// Empty reports whether the buffer holds no symbols.
func (b *Buffer) Empty() bool { return len(b.symbols) == 0 }

// Cursor returns the insertion point.
func (b *Buffer) Cursor() int { return b.cursor }

// Insert puts r at the cursor and advances the cursor past it.
func (b *Buffer) Insert(r rune) {
	b.symbols = append(b.symbols, 0)
	copy(b.symbols[b.cursor+1:], b.symbols[b.cursor:])
	b.symbols[b.cursor] = r
	b.cursor++
}

// DeleteForward removes the symbol under the cursor. It reports false at the
// end of the buffer.
func (b *Buffer) DeleteForward() bool {
	if b.cursor >= len(b.symbols) {
		return false
	}
	b.symbols = append(b.symbols[:b.cursor], b.symbols[b.cursor+1:]...)
	return true
}

// DeleteBackward removes the symbol before the cursor. It reports false at
// the start of the buffer.
func (b *Buffer) DeleteBackward() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor--
	b.symbols = append(b.symbols[:b.cursor], b.symbols[b.cursor+1:]...)
	return true
}

// MoveCursor shifts the cursor by delta, clamped to the buffer bounds.
// It reports whether the cursor moved.
func (b *Buffer) MoveCursor(delta int) bool {
	next := clamp(b.cursor+delta, 0, len(b.symbols))
	if next == b.cursor {
		return false
	}
	b.cursor = next
	return true
}

// TruncateFront drops the first k symbols. k is clamped to [0, Len()] and
// the cursor moves left by k, stopping at 0.
func (b *Buffer) TruncateFront(k int) {
	k = clamp(k, 0, len(b.symbols))
	if k == 0 {
		return
	}
	n := copy(b.symbols, b.symbols[k:])
	b.symbols = b.symbols[:n]
	b.cursor = max(b.cursor-k, 0)
}

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() {
	b.symbols = b.symbols[:0]
	b.cursor = 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
