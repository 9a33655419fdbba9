package keycodec

import (
	"fmt"
	"strings"

	"pinyind/internal/keys"
)

// Codec tracks layout and modifier state for one seat. It is not safe for
// concurrent use; the session owns it.
type Codec struct {
	keymap *Keymap
	format uint32
	source string

	depressed keys.Mask
	latched   keys.Mask
	locked    keys.Mask
	group     uint32

	// held maps pressed modifier keys to the bit they set.
	held map[uint32]keys.Mask
}

// New returns a codec using the built-in US layout.
func New() *Codec {
	return &Codec{
		keymap: DefaultKeymap(),
		held:   make(map[uint32]keys.Mask),
	}
}

// UpdateKeymap installs a keymap blob. It reports whether the keymap
// changed. A blob identical to the active one is ignored; a malformed blob
// leaves the previous keymap in place.
func (c *Codec) UpdateKeymap(format uint32, blob string) (bool, error) {
	if format != FormatXKBV1 {
		return false, fmt.Errorf("%w: format %d", ErrNoKeymap, format)
	}
	blob = strings.TrimRight(blob, "\x00")
	if c.source != "" && blob == c.source {
		return false, nil
	}
	km, err := ParseKeymap(blob)
	if err != nil {
		return false, err
	}

	c.keymap = km
	c.format = format
	c.source = blob
	c.depressed, c.latched, c.locked, c.group = 0, 0, 0, 0
	clear(c.held)
	return true, nil
}

// Keymap returns the active protocol keymap, or false while the built-in
// layout is in use.
func (c *Codec) Keymap() (format uint32, blob string, ok bool) {
	if c.source == "" {
		return FormatNoKeymap, "", false
	}
	return c.format, c.source, true
}

// UpdateModifiers replaces the modifier state with the compositor's view.
func (c *Codec) UpdateModifiers(depressed, latched, locked keys.Mask, group uint32) {
	c.depressed = depressed
	c.latched = latched
	c.locked = locked
	c.group = group
}

// Modifiers returns the serialized modifier state.
func (c *Codec) Modifiers() (depressed, latched, locked keys.Mask, group uint32) {
	return c.depressed, c.latched, c.locked, c.group
}

// Mods returns the effective modifier mask.
func (c *Codec) Mods() keys.Mask {
	return c.depressed | c.latched | c.locked
}

// Lookup resolves code under the current state without changing it.
func (c *Codec) Lookup(code uint32) keys.Sym {
	def, ok := c.keymap.Key(code)
	if !ok {
		return keys.NoSymbol
	}
	return def.Sym(c.Mods())
}

// Resolve turns a hardware event into a logical key and then applies the
// key to the modifier state. The returned key carries the modifiers that
// were effective when it went down or up.
func (c *Codec) Resolve(code uint32, pressed bool) keys.Logical {
	k := keys.Logical{
		Sym:     c.Lookup(code),
		Code:    code,
		Mods:    c.Mods(),
		Pressed: pressed,
	}
	c.apply(code, k.Sym, pressed)
	return k
}

func (c *Codec) apply(code uint32, sym keys.Sym, pressed bool) {
	if def, ok := c.keymap.Key(code); ok && len(def.Levels) > 0 {
		// Modifier behaviour follows the base level, as xkb interprets do.
		sym = def.Levels[0]
	}
	if bit := keys.LockFor(sym); bit != 0 {
		if pressed {
			c.locked ^= bit
		}
		return
	}
	bit := keys.ModifierFor(sym)
	if bit == 0 {
		if pressed {
			c.latched = 0
		}
		return
	}
	if pressed {
		c.held[code] = bit
		c.depressed |= bit
		return
	}
	delete(c.held, code)
	for _, b := range c.held {
		if b == bit {
			return
		}
	}
	c.depressed &^= bit
}

// KeyRepeats reports whether the active keymap marks code as repeating.
func (c *Codec) KeyRepeats(code uint32) bool {
	def, ok := c.keymap.Key(code)
	return ok && def.Repeats
}
