// Package keycodec turns hardware key codes into logical keys.
//
// It understands the subset of the xkb text format that compositors send
// with xkb_keymap_get_as_string: keycode names from xkb_keycodes and the
// first symbol group of every key in xkb_symbols. Key types are honoured as
// far as the core Shift, Lock, NumLock and Level3 behaviour goes; anything
// richer (multiple groups, actions, virtual modifiers) is ignored.
package keycodec

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pinyind/internal/keys"
)

// Keymap formats as sent by the text-input protocol.
const (
	FormatNoKeymap uint32 = 0
	FormatXKBV1    uint32 = 1
)

// EvdevOffset is the difference between xkb keycodes and evdev codes.
const EvdevOffset = 8

var (
	// ErrNoKeymap is returned for keymap events that carry no xkb keymap.
	ErrNoKeymap = errors.New("keycodec: no keymap")

	// ErrMalformedKeymap is returned when a keymap blob cannot be parsed.
	ErrMalformedKeymap = errors.New("keycodec: malformed keymap")
)

// KeyType selects how modifiers map to shift levels.
type KeyType int

const (
	TypeTwoLevel KeyType = iota
	TypeOneLevel
	TypeAlphabetic
	TypeKeypad
)

// KeyDef is the first-group definition of one key.
type KeyDef struct {
	Name    string
	Levels  []keys.Sym
	Type    KeyType
	Repeats bool
}

// Sym returns the symbol the key produces under mods.
func (k KeyDef) Sym(mods keys.Mask) keys.Sym {
	if len(k.Levels) == 0 {
		return keys.NoSymbol
	}
	shift := mods.Has(keys.ModShift)
	switch k.Type {
	case TypeOneLevel:
		return k.Levels[0]
	case TypeAlphabetic:
		if mods.Has(keys.ModLock) {
			shift = !shift
		}
	case TypeKeypad:
		if mods.Has(keys.ModNum) {
			shift = !shift
		}
	}

	level := 0
	if shift {
		level = 1
	}
	if mods.Has(keys.ModMod5) && len(k.Levels) > 2 {
		level += 2
	}
	// Missing higher levels fall back to the same shift state, then to base.
	for _, l := range []int{level, level & 1, 0} {
		if l < len(k.Levels) && k.Levels[l] != keys.NoSymbol {
			return k.Levels[l]
		}
	}
	return keys.NoSymbol
}

// Keymap maps evdev codes to key definitions.
type Keymap struct {
	keys map[uint32]KeyDef
}

// Key returns the definition of an evdev code.
func (m *Keymap) Key(code uint32) (KeyDef, bool) {
	k, ok := m.keys[code]
	return k, ok
}

// Len returns the number of defined keys.
func (m *Keymap) Len() int { return len(m.keys) }

// CodeFor returns the first evdev code producing sym at its base level,
// preferring the lowest code.
func (m *Keymap) CodeFor(sym keys.Sym) (uint32, bool) {
	var best uint32
	found := false
	for code, k := range m.keys {
		if len(k.Levels) == 0 || k.Levels[0] != sym {
			continue
		}
		if !found || code < best {
			best, found = code, true
		}
	}
	return best, found
}

var (
	reComment   = regexp.MustCompile(`(?m)//.*$`)
	reKeycode   = regexp.MustCompile(`<([^>\s]+)>\s*=\s*(\d+)\s*;`)
	reAlias     = regexp.MustCompile(`alias\s+<([^>\s]+)>\s*=\s*<([^>\s]+)>\s*;`)
	reKeyBlock  = regexp.MustCompile(`key\s+<([^>\s]+)>\s*\{([^}]*)\}`)
	reSymbols   = regexp.MustCompile(`symbols\s*\[[^\]]*\]\s*=\s*\[([^\]]*)\]`)
	reIndexed   = regexp.MustCompile(`\w+\s*\[[^\]]*\]\s*=\s*(?:\[[^\]]*\]|"[^"]*")`)
	reBare      = regexp.MustCompile(`\[([^\]]*)\]`)
	reType      = regexp.MustCompile(`type\s*(?:\[[^\]]*\])?\s*=\s*"([^"]+)"`)
	reRepeat    = regexp.MustCompile(`repeat\s*=\s*(\w+)`)
	reSectionKC = regexp.MustCompile(`xkb_keycodes\b`)
	reSectionSy = regexp.MustCompile(`xkb_symbols\b`)
)

// ParseKeymap parses an xkb_v1 text keymap.
func ParseKeymap(text string) (*Keymap, error) {
	text = strings.TrimRight(text, "\x00")
	text = reComment.ReplaceAllString(text, "")

	if strings.Count(text, "{") != strings.Count(text, "}") {
		return nil, fmt.Errorf("%w: unbalanced braces", ErrMalformedKeymap)
	}
	kcLoc := reSectionKC.FindStringIndex(text)
	syLoc := reSectionSy.FindStringIndex(text)
	if kcLoc == nil || syLoc == nil {
		return nil, fmt.Errorf("%w: missing xkb_keycodes or xkb_symbols", ErrMalformedKeymap)
	}

	codes := make(map[string]uint32)
	keycodes := section(text, kcLoc[1])
	for _, m := range reKeycode.FindAllStringSubmatch(keycodes, -1) {
		v, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil || v < EvdevOffset {
			continue
		}
		codes[m[1]] = uint32(v) - EvdevOffset
	}
	for _, m := range reAlias.FindAllStringSubmatch(keycodes, -1) {
		if code, ok := codes[m[2]]; ok {
			codes[m[1]] = code
		}
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no keycodes", ErrMalformedKeymap)
	}

	km := &Keymap{keys: make(map[uint32]KeyDef)}
	symbols := section(text, syLoc[1])
	for _, m := range reKeyBlock.FindAllStringSubmatch(symbols, -1) {
		code, ok := codes[m[1]]
		if !ok {
			continue
		}
		def, ok := parseKeyBody(m[1], m[2])
		if !ok {
			continue
		}
		km.keys[code] = def
	}
	if len(km.keys) == 0 {
		return nil, fmt.Errorf("%w: no key symbols", ErrMalformedKeymap)
	}
	return km, nil
}

// section returns the brace-delimited body that starts after offset.
func section(text string, offset int) string {
	open := strings.IndexByte(text[offset:], '{')
	if open < 0 {
		return ""
	}
	start := offset + open + 1
	depth := 1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start:i]
			}
		}
	}
	return text[start:]
}

func parseKeyBody(name, body string) (KeyDef, bool) {
	var list string
	if m := reSymbols.FindStringSubmatch(body); m != nil {
		list = m[1]
	} else {
		stripped := reIndexed.ReplaceAllString(body, "")
		m := reBare.FindStringSubmatch(stripped)
		if m == nil {
			return KeyDef{}, false
		}
		list = m[1]
	}

	var levels []keys.Sym
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		sym, ok := keys.Lookup(field)
		if !ok {
			sym = keys.NoSymbol
		}
		levels = append(levels, sym)
	}
	if len(levels) == 0 {
		return KeyDef{}, false
	}

	def := KeyDef{Name: name, Levels: levels, Repeats: true}
	if m := reType.FindStringSubmatch(body); m != nil {
		def.Type = typeByName(m[1], levels)
	} else {
		def.Type = inferType(levels)
	}
	if m := reRepeat.FindStringSubmatch(body); m != nil {
		switch strings.ToLower(m[1]) {
		case "no", "false", "off":
			def.Repeats = false
		}
	} else if levels[0].IsModifier() {
		def.Repeats = false
	}
	return def, true
}

func typeByName(name string, levels []keys.Sym) KeyType {
	switch {
	case name == "ONE_LEVEL":
		return TypeOneLevel
	case strings.Contains(name, "KEYPAD"):
		return TypeKeypad
	case strings.Contains(name, "ALPHABETIC"):
		return TypeAlphabetic
	case strings.HasPrefix(name, "TWO_LEVEL"), strings.HasPrefix(name, "FOUR_LEVEL"):
		return TypeTwoLevel
	}
	return inferType(levels)
}

func inferType(levels []keys.Sym) KeyType {
	if len(levels) == 1 {
		return TypeOneLevel
	}
	if levels[0] >= keys.LowerA && levels[0] <= keys.LowerZ && levels[1] == levels[0]-(keys.LowerA-keys.UpperA) {
		return TypeAlphabetic
	}
	for _, s := range levels[:2] {
		if (s >= keys.KPHome && s <= keys.KPDelete) || (s >= keys.KP0 && s <= keys.KP9) || s == keys.KPDecimal {
			return TypeKeypad
		}
	}
	return TypeTwoLevel
}
