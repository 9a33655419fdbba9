package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymRune(t *testing.T) {
	tests := []struct {
		name string
		sym  Sym
		want rune
	}{
		{"space", Space, ' '},
		{"letter a", LowerA, 'a'},
		{"letter Z", UpperZ, 'Z'},
		{"tilde", AsciiTilde, '~'},
		{"latin-1 pound", 0xa3, '£'},
		{"keypad 7", KP0 + 7, '7'},
		{"keypad add", KPAdd, '+'},
		{"unicode euro", 0x010020ac, '€'},
		{"backspace", BackSpace, 0},
		{"F1", F1, 0},
		{"control", ControlL, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sym.Rune())
		})
	}
}

func TestFromRuneRoundTrip(t *testing.T) {
	for _, r := range []rune{'a', 'Q', '!', 'é', '你', '€'} {
		assert.Equal(t, r, FromRune(r).Rune(), "rune %q", r)
	}
	assert.Equal(t, LowerA, FromRune('a'))
	assert.Equal(t, Sym(0x01004f60), FromRune('你'))
}

func TestDigit(t *testing.T) {
	n, ok := Key1.Digit()
	require.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = Key9.Digit()
	require.True(t, ok)
	assert.Equal(t, 9, n)

	n, ok = (KP0 + 3).Digit()
	require.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = Key0.Digit()
	assert.False(t, ok, "0 is not a candidate index")
	_, ok = KP0.Digit()
	assert.False(t, ok)
	_, ok = LowerA.Digit()
	assert.False(t, ok)
}

func TestLetterAndLower(t *testing.T) {
	assert.True(t, LowerA.IsLetter())
	assert.True(t, UpperZ.IsLetter())
	assert.False(t, Key1.IsLetter())
	assert.False(t, At.IsLetter())
	assert.False(t, BracketLeft.IsLetter())

	assert.Equal(t, LowerA, UpperA.Lower())
	assert.Equal(t, LowerZ, UpperZ.Lower())
	assert.Equal(t, Key1, Key1.Lower())
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want Sym
		ok   bool
	}{
		{"Control_L", ControlL, true},
		{"Page_Up", PageUp, true},
		{"Prior", PageUp, true},
		{"KP_5", KP0 + 5, true},
		{"F12", F12, true},
		{"a", LowerA, true},
		{"equal", Equal, true},
		{"=", Equal, true},
		{"0xff0d", Return, true},
		{"U4F60", 0x01004f60, true},
		{"", NoSymbol, false},
		{"NotAKey", NoSymbol, false},
		{"0xzz", NoSymbol, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSymString(t *testing.T) {
	assert.Equal(t, "Control_L", ControlL.String())
	assert.Equal(t, "Prior", PageUp.String())
	assert.Equal(t, "KP_Next", KPPageDown.String())
	assert.Equal(t, "a", LowerA.String())
	assert.Equal(t, "U4F60", Sym(0x01004f60).String())
	assert.Equal(t, "NoSymbol", NoSymbol.String())
}

func TestMask(t *testing.T) {
	m := ModShift | ModControl
	assert.True(t, m.Has(ModShift))
	assert.True(t, m.Has(ModShift|ModControl))
	assert.False(t, m.Has(ModShift|ModAlt))
	assert.True(t, m.Any(ModCommand))
	assert.False(t, ModShift.Any(ModCommand))
	assert.Equal(t, "Shift+Control", m.String())
	assert.Equal(t, "none", Mask(0).String())
	assert.Equal(t, ModShift, (ModShift | 1<<30).Core())
}

func TestModifierFor(t *testing.T) {
	assert.Equal(t, ModControl, ModifierFor(ControlL))
	assert.Equal(t, ModShift, ModifierFor(ShiftR))
	assert.Equal(t, ModAlt, ModifierFor(AltL))
	assert.Equal(t, ModSuper, ModifierFor(SuperL))
	assert.Equal(t, Mask(0), ModifierFor(LowerA))
	assert.Equal(t, ModLock, LockFor(CapsLock))
	assert.Equal(t, ModNum, LockFor(NumLock))
	assert.Equal(t, Mask(0), LockFor(ShiftL))
	assert.True(t, CapsLock.IsModifier())
	assert.False(t, Space.IsModifier())
}

func TestLogical(t *testing.T) {
	k := Logical{Sym: LowerA, Code: 30, Mods: ModShift, Pressed: true}
	assert.Equal(t, 'a', k.Rune())
	r := k.Release()
	assert.False(t, r.Pressed)
	assert.True(t, k.Pressed)
	assert.Equal(t, uint32(0), k.Millis())
	assert.Equal(t, "a(30) down [Shift]", k.String())
}
