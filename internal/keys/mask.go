package keys

import "strings"

// Mask is an xkb core modifier mask. IBus and the Wayland virtual keyboard
// use the same bit assignment.
type Mask uint32

// Modifier bits
const (
	ModShift   Mask = 1 << 0
	ModLock    Mask = 1 << 1
	ModControl Mask = 1 << 2
	ModMod1    Mask = 1 << 3 // Alt
	ModMod2    Mask = 1 << 4 // Num Lock
	ModMod3    Mask = 1 << 5
	ModMod4    Mask = 1 << 6 // Super
	ModMod5    Mask = 1 << 7

	ModAlt   = ModMod1
	ModNum   = ModMod2
	ModSuper = ModMod4

	// ModCommand covers modifiers that turn a key into a shortcut.
	ModCommand = ModControl | ModAlt | ModSuper

	modAll Mask = 0xff
)

var maskNames = []struct {
	bit  Mask
	name string
}{
	{ModShift, "Shift"},
	{ModLock, "Lock"},
	{ModControl, "Control"},
	{ModMod1, "Mod1"},
	{ModMod2, "Mod2"},
	{ModMod3, "Mod3"},
	{ModMod4, "Mod4"},
	{ModMod5, "Mod5"},
}

// Has reports whether every bit of m2 is set in m.
func (m Mask) Has(m2 Mask) bool {
	return m&m2 == m2
}

// Any reports whether at least one bit of m2 is set in m.
func (m Mask) Any(m2 Mask) bool {
	return m&m2 != 0
}

// Core strips bits outside the eight core modifiers.
func (m Mask) Core() Mask {
	return m & modAll
}

func (m Mask) String() string {
	if m.Core() == 0 {
		return "none"
	}
	var parts []string
	for _, mn := range maskNames {
		if m&mn.bit != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, "+")
}

// ModifierFor returns the modifier bit a modifier key sets while held, or 0.
func ModifierFor(s Sym) Mask {
	switch s {
	case ShiftL, ShiftR:
		return ModShift
	case ControlL, ControlR:
		return ModControl
	case AltL, AltR, MetaL, MetaR:
		return ModAlt
	case SuperL, SuperR:
		return ModSuper
	case ISOLevel3Shift:
		return ModMod5
	}
	return 0
}

// LockFor returns the modifier bit a locking key toggles, or 0.
func LockFor(s Sym) Mask {
	switch s {
	case CapsLock:
		return ModLock
	case NumLock:
		return ModNum
	}
	return 0
}
