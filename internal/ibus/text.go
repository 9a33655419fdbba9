package ibus

import (
	"strconv"
	"unicode/utf8"

	"github.com/godbus/dbus/v5"

	"pinyind/internal/engine"
)

// Attribute types and values from ibusattribute.h.
const (
	attrTypeUnderline   uint32 = 1
	attrUnderlineSingle uint32 = 1
)

// Preedit modes from ibustypes.h.
const (
	preeditClear  uint32 = 0
	preeditCommit uint32 = 1
)

// Lookup table orientation: let the panel decide.
const orientationSystem int32 = 2

// The IBus serializable objects are D-Bus structs that start with the type
// name and an attachment dictionary.

type attribute struct {
	Name        string
	Attachments map[string]dbus.Variant
	Type        uint32
	Value       uint32
	Start       uint32
	End         uint32
}

type attrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attributes  []dbus.Variant
}

type text struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	AttrList    dbus.Variant
}

type lookupTable struct {
	Name          string
	Attachments   map[string]dbus.Variant
	PageSize      uint32
	CursorPos     uint32
	CursorVisible bool
	Round         bool
	Orientation   int32
	Candidates    []dbus.Variant
	Labels        []dbus.Variant
}

func newText(s string) dbus.Variant {
	return dbus.MakeVariant(text{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        s,
		AttrList: dbus.MakeVariant(attrList{
			Name:        "IBusAttrList",
			Attachments: map[string]dbus.Variant{},
			Attributes:  []dbus.Variant{},
		}),
	})
}

// newPreeditText underlines the whole string.
func newPreeditText(s string) dbus.Variant {
	attrs := []dbus.Variant{}
	if n := utf8.RuneCountInString(s); n > 0 {
		attrs = append(attrs, dbus.MakeVariant(attribute{
			Name:        "IBusAttribute",
			Attachments: map[string]dbus.Variant{},
			Type:        attrTypeUnderline,
			Value:       attrUnderlineSingle,
			Start:       0,
			End:         uint32(n),
		}))
	}
	return dbus.MakeVariant(text{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        s,
		AttrList: dbus.MakeVariant(attrList{
			Name:        "IBusAttrList",
			Attachments: map[string]dbus.Variant{},
			Attributes:  attrs,
		}),
	})
}

// newLookupTable builds a table holding one page. Labels are the digits
// that choose each candidate.
func newLookupTable(page engine.Page) dbus.Variant {
	cands := make([]dbus.Variant, 0, page.Len())
	labels := make([]dbus.Variant, 0, page.Len())
	for i, item := range page.Items {
		cands = append(cands, newText(item))
		labels = append(labels, newText(strconv.Itoa(i+1)))
	}
	cursor := page.Highlighted
	if cursor < 0 || cursor >= page.Len() {
		cursor = 0
	}
	return dbus.MakeVariant(lookupTable{
		Name:          "IBusLookupTable",
		Attachments:   map[string]dbus.Variant{},
		PageSize:      uint32(max(page.Len(), 1)),
		CursorPos:     uint32(cursor),
		CursorVisible: page.Len() > 0,
		Orientation:   orientationSystem,
		Candidates:    cands,
		Labels:        labels,
	})
}

// textValue extracts the string from an IBusText variant.
func textValue(v dbus.Variant) (string, bool) {
	if t, ok := v.Value().(text); ok {
		return t.Text, true
	}
	fields, ok := v.Value().([]any)
	if !ok || len(fields) < 3 {
		return "", false
	}
	if name, _ := fields[0].(string); name != "IBusText" {
		return "", false
	}
	s, ok := fields[2].(string)
	return s, ok
}

// runeOffset converts a byte offset in s to a character offset.
func runeOffset(s string, b int) uint32 {
	b = min(max(b, 0), len(s))
	return uint32(utf8.RuneCountInString(s[:b]))
}

// byteOffset converts a character offset in s to a byte offset.
func byteOffset(s string, chars uint32) int {
	i := 0
	for n := uint32(0); n < chars && i < len(s); n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
