package keycodec

import "pinyind/internal/keys"

// usLayout is the pc105 "us" layout on evdev codes. It is in effect until
// the protocol delivers a keymap, and backs frontends that never send one.
var usLayout = map[uint32][]keys.Sym{
	1:  {keys.Escape},
	2:  {keys.Key1, keys.Exclam},
	3:  {keys.Key1 + 1, keys.At},
	4:  {keys.Key1 + 2, keys.NumberSign},
	5:  {keys.Key1 + 3, keys.Dollar},
	6:  {keys.Key1 + 4, keys.Percent},
	7:  {keys.Key1 + 5, keys.AsciiCircum},
	8:  {keys.Key1 + 6, keys.Ampersand},
	9:  {keys.Key1 + 7, keys.Asterisk},
	10: {keys.Key9, keys.ParenLeft},
	11: {keys.Key0, keys.ParenRight},
	12: {keys.Minus, keys.Underscore},
	13: {keys.Equal, keys.Plus},
	14: {keys.BackSpace},
	15: {keys.Tab},
	16: letter('q'), 17: letter('w'), 18: letter('e'), 19: letter('r'),
	20: letter('t'), 21: letter('y'), 22: letter('u'), 23: letter('i'),
	24: letter('o'), 25: letter('p'),
	26: {keys.BracketLeft, keys.BraceLeft},
	27: {keys.BracketRight, keys.BraceRight},
	28: {keys.Return},
	29: {keys.ControlL},
	30: letter('a'), 31: letter('s'), 32: letter('d'), 33: letter('f'),
	34: letter('g'), 35: letter('h'), 36: letter('j'), 37: letter('k'),
	38: letter('l'),
	39: {keys.Semicolon, keys.Colon},
	40: {keys.Apostrophe, keys.QuoteDbl},
	41: {keys.Grave, keys.AsciiTilde},
	42: {keys.ShiftL},
	43: {keys.Backslash, keys.Bar},
	44: letter('z'), 45: letter('x'), 46: letter('c'), 47: letter('v'),
	48: letter('b'), 49: letter('n'), 50: letter('m'),
	51: {keys.Comma, keys.Less},
	52: {keys.Period, keys.Greater},
	53: {keys.Slash, keys.Question},
	54: {keys.ShiftR},
	55: {keys.KPMultiply},
	56: {keys.AltL, keys.MetaL},
	57: {keys.Space},
	58: {keys.CapsLock},
	59: {keys.F1}, 60: {keys.F1 + 1}, 61: {keys.F1 + 2}, 62: {keys.F1 + 3},
	63: {keys.F1 + 4}, 64: {keys.F1 + 5}, 65: {keys.F1 + 6}, 66: {keys.F1 + 7},
	67: {keys.F1 + 8}, 68: {keys.F1 + 9},
	69: {keys.NumLock},
	71: {keys.KPHome, keys.KP0 + 7},
	72: {keys.KPUp, keys.KP0 + 8},
	73: {keys.KPPageUp, keys.KP9},
	74: {keys.KPSubtract},
	75: {keys.KPLeft, keys.KP0 + 4},
	76: {keys.KPBegin, keys.KP0 + 5},
	77: {keys.KPRight, keys.KP0 + 6},
	78: {keys.KPAdd},
	79: {keys.KPEnd, keys.KP1},
	80: {keys.KPDown, keys.KP0 + 2},
	81: {keys.KPPageDown, keys.KP0 + 3},
	82: {keys.KPInsert, keys.KP0},
	83: {keys.KPDelete, keys.KPDecimal},
	87: {keys.F1 + 10},
	88: {keys.F12},
	96: {keys.KPEnter},
	97: {keys.ControlR},
	98: {keys.KPDivide},
	100: {keys.AltR, keys.MetaR},
	102: {keys.Home},
	103: {keys.Up},
	104: {keys.PageUp},
	105: {keys.Left},
	106: {keys.Right},
	107: {keys.End},
	108: {keys.Down},
	109: {keys.PageDown},
	110: {keys.Insert},
	111: {keys.Delete},
	125: {keys.SuperL},
	126: {keys.SuperR},
	127: {keys.Menu},
}

func letter(c rune) []keys.Sym {
	lower := keys.FromRune(c)
	return []keys.Sym{lower, lower - (keys.LowerA - keys.UpperA)}
}

// DefaultKeymap returns the built-in US layout.
func DefaultKeymap() *Keymap {
	km := &Keymap{keys: make(map[uint32]KeyDef, len(usLayout))}
	for code, levels := range usLayout {
		km.keys[code] = KeyDef{
			Levels:  levels,
			Type:    inferType(levels),
			Repeats: !levels[0].IsModifier(),
		}
	}
	return km
}
