// Package keys defines symbolic key identities (X keysyms), modifier masks and
// the logical key value the router consumes.
//
// Keysym values follow xkbcommon-keysyms.h so that they are interchangeable
// with what a compositor, IBus or an xkb keymap produce.
package keys

// Sym is a layout-resolved key identity.
type Sym uint32

// NoSymbol is returned when a key has no symbol at the current level.
const NoSymbol Sym = 0

// Latin-1 keysyms coincide with their code points.
const (
	Space        Sym = 0x0020
	Exclam       Sym = 0x0021
	QuoteDbl     Sym = 0x0022
	NumberSign   Sym = 0x0023
	Dollar       Sym = 0x0024
	Percent      Sym = 0x0025
	Ampersand    Sym = 0x0026
	Apostrophe   Sym = 0x0027
	ParenLeft    Sym = 0x0028
	ParenRight   Sym = 0x0029
	Asterisk     Sym = 0x002a
	Plus         Sym = 0x002b
	Comma        Sym = 0x002c
	Minus        Sym = 0x002d
	Period       Sym = 0x002e
	Slash        Sym = 0x002f
	Key0         Sym = 0x0030
	Key1         Sym = 0x0031
	Key9         Sym = 0x0039
	Colon        Sym = 0x003a
	Semicolon    Sym = 0x003b
	Less         Sym = 0x003c
	Equal        Sym = 0x003d
	Greater      Sym = 0x003e
	Question     Sym = 0x003f
	At           Sym = 0x0040
	UpperA       Sym = 0x0041
	UpperZ       Sym = 0x005a
	BracketLeft  Sym = 0x005b
	Backslash    Sym = 0x005c
	BracketRight Sym = 0x005d
	AsciiCircum  Sym = 0x005e
	Underscore   Sym = 0x005f
	Grave        Sym = 0x0060
	LowerA       Sym = 0x0061
	LowerZ       Sym = 0x007a
	BraceLeft    Sym = 0x007b
	Bar          Sym = 0x007c
	BraceRight   Sym = 0x007d
	AsciiTilde   Sym = 0x007e
)

// Function and editing keys.
const (
	BackSpace Sym = 0xff08
	Tab       Sym = 0xff09
	Return    Sym = 0xff0d
	Escape    Sym = 0xff1b
	Home      Sym = 0xff50
	Left      Sym = 0xff51
	Up        Sym = 0xff52
	Right     Sym = 0xff53
	Down      Sym = 0xff54
	PageUp    Sym = 0xff55 // Prior
	PageDown  Sym = 0xff56 // Next
	End       Sym = 0xff57
	Insert    Sym = 0xff63
	Menu      Sym = 0xff67
	NumLock   Sym = 0xff7f
	Delete    Sym = 0xffff

	F1  Sym = 0xffbe
	F12 Sym = 0xffc9
)

// Keypad keysyms.
const (
	KPEnter    Sym = 0xff8d
	KPHome     Sym = 0xff95
	KPLeft     Sym = 0xff96
	KPUp       Sym = 0xff97
	KPRight    Sym = 0xff98
	KPDown     Sym = 0xff99
	KPPageUp   Sym = 0xff9a
	KPPageDown Sym = 0xff9b
	KPEnd      Sym = 0xff9c
	KPBegin    Sym = 0xff9d
	KPInsert   Sym = 0xff9e
	KPDelete   Sym = 0xff9f
	KPMultiply Sym = 0xffaa
	KPAdd      Sym = 0xffab
	KPSubtract Sym = 0xffad
	KPDecimal  Sym = 0xffae
	KPDivide   Sym = 0xffaf
	KP0        Sym = 0xffb0
	KP1        Sym = 0xffb1
	KP9        Sym = 0xffb9
)

// Modifier keysyms.
const (
	ShiftL          Sym = 0xffe1
	ShiftR          Sym = 0xffe2
	ControlL        Sym = 0xffe3
	ControlR        Sym = 0xffe4
	CapsLock        Sym = 0xffe5
	MetaL           Sym = 0xffe7
	MetaR           Sym = 0xffe8
	AltL            Sym = 0xffe9
	AltR            Sym = 0xffea
	SuperL          Sym = 0xffeb
	SuperR          Sym = 0xffec
	ISOLevel3Shift  Sym = 0xfe03
	unicodeKeysym   Sym = 0x01000000
	unicodeKeysymHi Sym = 0x0110ffff
)

// Rune returns the character a keysym produces, or 0 for non-character keys.
func (s Sym) Rune() rune {
	switch {
	case s >= Space && s <= AsciiTilde:
		return rune(s)
	case s >= 0xa0 && s <= 0xff:
		return rune(s)
	case s >= KP0 && s <= KP9:
		return rune('0' + (s - KP0))
	case s == KPAdd:
		return '+'
	case s == KPSubtract:
		return '-'
	case s == KPMultiply:
		return '*'
	case s == KPDivide:
		return '/'
	case s == KPDecimal:
		return '.'
	case s >= unicodeKeysym && s <= unicodeKeysymHi:
		return rune(s - unicodeKeysym)
	}
	return 0
}

// FromRune returns the keysym for a character.
func FromRune(r rune) Sym {
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return Sym(r)
	}
	return unicodeKeysym + Sym(r)
}

// IsLetter reports whether s is an ASCII letter of either case.
func (s Sym) IsLetter() bool {
	return (s >= LowerA && s <= LowerZ) || (s >= UpperA && s <= UpperZ)
}

// Digit returns the value of a 1–9 key on the main row or the keypad.
func (s Sym) Digit() (int, bool) {
	switch {
	case s >= Key1 && s <= Key9:
		return int(s-Key1) + 1, true
	case s >= KP1 && s <= KP9:
		return int(s-KP1) + 1, true
	}
	return 0, false
}

// IsModifier reports whether s is a modifier key.
func (s Sym) IsModifier() bool {
	switch s {
	case ShiftL, ShiftR, ControlL, ControlR, CapsLock, MetaL, MetaR,
		AltL, AltR, SuperL, SuperR, ISOLevel3Shift, NumLock:
		return true
	}
	return false
}

// Lower folds ASCII upper case letters to lower case.
func (s Sym) Lower() Sym {
	if s >= UpperA && s <= UpperZ {
		return s + (LowerA - UpperA)
	}
	return s
}
