package session

import (
	"fmt"
	"time"

	"pinyind/internal/keys"
)

// Toggle describes the key sequence that switches modes: Taps isolated
// press-release pairs of Sym, with no other key in between and no other
// modifier held. A positive Window bounds the time from the first press to
// the final release.
type Toggle struct {
	Sym    keys.Sym
	Taps   int
	Window time.Duration
}

// DefaultToggle is a double tap of the left Control key.
func DefaultToggle() Toggle {
	return Toggle{Sym: keys.ControlL, Taps: 2}
}

// ParseToggle builds a toggle from configuration values.
func ParseToggle(name string, taps, windowMs int) (Toggle, error) {
	sym, ok := keys.Lookup(name)
	if !ok {
		return Toggle{}, fmt.Errorf("unknown toggle key %q", name)
	}
	if taps < 1 {
		return Toggle{}, fmt.Errorf("toggle needs at least one tap, got %d", taps)
	}
	return Toggle{Sym: sym, Taps: taps, Window: time.Duration(windowMs) * time.Millisecond}, nil
}

// ToggleDetector recognizes a Toggle in the key stream. It sees every key
// event in both modes.
type ToggleDetector struct {
	toggle Toggle
	taps   int
	down   bool
	first  time.Time // press of the first counted tap
	press  time.Time // press of the current tap
}

// NewToggleDetector returns a detector for t.
func NewToggleDetector(t Toggle) *ToggleDetector {
	if t.Taps < 1 {
		t.Taps = 1
	}
	return &ToggleDetector{toggle: t}
}

// Observe feeds one key event and reports whether it completed the toggle.
// Only releases can complete it.
func (d *ToggleDetector) Observe(k keys.Logical) bool {
	if k.Sym != d.toggle.Sym {
		d.Reset()
		return false
	}
	// Lock states are not held modifiers.
	other := k.Mods.Core() &^ keys.ModifierFor(k.Sym) &^ (keys.ModLock | keys.ModNum)
	if other != 0 {
		d.Reset()
		return false
	}

	if k.Pressed {
		if d.down {
			return false // autorepeat of the held toggle key
		}
		if d.taps > 0 && d.toggle.Window > 0 && k.Time.Sub(d.first) > d.toggle.Window {
			d.taps = 0
		}
		if d.taps == 0 {
			d.first = k.Time
		}
		d.press = k.Time
		d.down = true
		return false
	}

	if !d.down {
		d.Reset()
		return false
	}
	d.down = false
	d.taps++
	if d.toggle.Window > 0 && k.Time.Sub(d.first) > d.toggle.Window {
		d.taps = 1
		d.first = d.press
	}
	if d.taps < d.toggle.Taps {
		return false
	}
	d.taps = 0
	return true
}

// Reset forgets partial progress.
func (d *ToggleDetector) Reset() {
	d.taps = 0
	d.down = false
}
