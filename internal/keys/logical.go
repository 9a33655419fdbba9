package keys

import (
	"fmt"
	"time"
)

// Logical is a resolved key event: what the key means under the current
// layout and modifier state, plus the hardware code it came from.
type Logical struct {
	Sym     Sym
	Code    uint32 // evdev code, never offset by 8
	Mods    Mask
	Pressed bool
	Time    time.Time
}

// Rune returns the character the key produces, or 0.
func (k Logical) Rune() rune {
	return k.Sym.Rune()
}

// Release returns the matching release event for a press.
func (k Logical) Release() Logical {
	k.Pressed = false
	return k
}

// Millis returns the event timestamp in protocol milliseconds.
func (k Logical) Millis() uint32 {
	if k.Time.IsZero() {
		return 0
	}
	return uint32(k.Time.UnixMilli())
}

func (k Logical) String() string {
	state := "up"
	if k.Pressed {
		state = "down"
	}
	return fmt.Sprintf("%s(%d) %s [%s]", k.Sym, k.Code, state, k.Mods)
}
