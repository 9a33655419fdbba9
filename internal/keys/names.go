package keys

import (
	"fmt"
	"strconv"
	"strings"
)

var namedSyms = map[string]Sym{
	"space":        Space,
	"exclam":       Exclam,
	"quotedbl":     QuoteDbl,
	"numbersign":   NumberSign,
	"dollar":       Dollar,
	"percent":      Percent,
	"ampersand":    Ampersand,
	"apostrophe":   Apostrophe,
	"parenleft":    ParenLeft,
	"parenright":   ParenRight,
	"asterisk":     Asterisk,
	"plus":         Plus,
	"comma":        Comma,
	"minus":        Minus,
	"period":       Period,
	"slash":        Slash,
	"colon":        Colon,
	"semicolon":    Semicolon,
	"less":         Less,
	"equal":        Equal,
	"greater":      Greater,
	"question":     Question,
	"at":           At,
	"bracketleft":  BracketLeft,
	"backslash":    Backslash,
	"bracketright": BracketRight,
	"asciicircum":  AsciiCircum,
	"underscore":   Underscore,
	"grave":        Grave,
	"braceleft":    BraceLeft,
	"bar":          Bar,
	"braceright":   BraceRight,
	"asciitilde":   AsciiTilde,
	"agrave":       0xe0,
	"aacute":       0xe1,
	"egrave":       0xe8,
	"eacute":       0xe9,
	"udiaeresis":   0xfc,
	"Agrave":       0xc0,
	"Aacute":       0xc1,
	"Egrave":       0xc8,
	"Eacute":       0xc9,
	"Udiaeresis":   0xdc,

	"BackSpace": BackSpace,
	"Tab":       Tab,
	"Return":    Return,
	"Escape":    Escape,
	"Home":      Home,
	"Left":      Left,
	"Up":        Up,
	"Right":     Right,
	"Down":      Down,
	"Prior":     PageUp,
	"Page_Up":   PageUp,
	"Next":      PageDown,
	"Page_Down": PageDown,
	"End":       End,
	"Insert":    Insert,
	"Menu":      Menu,
	"Num_Lock":  NumLock,
	"Delete":    Delete,

	"KP_Enter":     KPEnter,
	"KP_Home":      KPHome,
	"KP_Left":      KPLeft,
	"KP_Up":        KPUp,
	"KP_Right":     KPRight,
	"KP_Down":      KPDown,
	"KP_Prior":     KPPageUp,
	"KP_Page_Up":   KPPageUp,
	"KP_Next":      KPPageDown,
	"KP_Page_Down": KPPageDown,
	"KP_End":       KPEnd,
	"KP_Begin":     KPBegin,
	"KP_Insert":    KPInsert,
	"KP_Delete":    KPDelete,
	"KP_Multiply":  KPMultiply,
	"KP_Add":       KPAdd,
	"KP_Subtract":  KPSubtract,
	"KP_Decimal":   KPDecimal,
	"KP_Divide":    KPDivide,

	"Shift_L":          ShiftL,
	"Shift_R":          ShiftR,
	"Control_L":        ControlL,
	"Control_R":        ControlR,
	"Caps_Lock":        CapsLock,
	"Meta_L":           MetaL,
	"Meta_R":           MetaR,
	"Alt_L":            AltL,
	"Alt_R":            AltR,
	"Super_L":          SuperL,
	"Super_R":          SuperR,
	"ISO_Level3_Shift": ISOLevel3Shift,
}

var symNames = make(map[Sym]string, len(namedSyms)+80)

func init() {
	for c := 'a'; c <= 'z'; c++ {
		namedSyms[string(c)] = Sym(c)
		namedSyms[string(c-'a'+'A')] = Sym(c - 'a' + 'A')
	}
	for d := 0; d <= 9; d++ {
		namedSyms[strconv.Itoa(d)] = Key0 + Sym(d)
		namedSyms["KP_"+strconv.Itoa(d)] = KP0 + Sym(d)
	}
	for f := 1; f <= 12; f++ {
		namedSyms["F"+strconv.Itoa(f)] = F1 + Sym(f-1)
	}
	for name, sym := range namedSyms {
		symNames[sym] = name
	}
	// Aliases above make the reverse map ambiguous; pin the xkb spelling.
	symNames[PageUp] = "Prior"
	symNames[PageDown] = "Next"
	symNames[KPPageUp] = "KP_Prior"
	symNames[KPPageDown] = "KP_Next"
}

// Lookup resolves an xkb keysym name, a single character, a U+XXXX code
// point or a 0x-prefixed keysym value.
func Lookup(name string) (Sym, bool) {
	if name == "" {
		return NoSymbol, false
	}
	if sym, ok := namedSyms[name]; ok {
		return sym, true
	}
	if strings.HasPrefix(name, "0x") {
		v, err := strconv.ParseUint(name[2:], 16, 32)
		if err != nil {
			return NoSymbol, false
		}
		return Sym(v), true
	}
	if len(name) > 1 && (name[0] == 'U' || name[0] == 'u') {
		v, err := strconv.ParseUint(name[1:], 16, 32)
		if err == nil {
			return FromRune(rune(v)), true
		}
	}
	if r := []rune(name); len(r) == 1 {
		return FromRune(r[0]), true
	}
	return NoSymbol, false
}

// String returns the xkb name of the keysym.
func (s Sym) String() string {
	if name, ok := symNames[s]; ok {
		return name
	}
	if s == NoSymbol {
		return "NoSymbol"
	}
	if s >= unicodeKeysym && s <= unicodeKeysymHi {
		return fmt.Sprintf("U%04X", uint32(s-unicodeKeysym))
	}
	return fmt.Sprintf("0x%04x", uint32(s))
}
