package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Modifiers is a bitset of modifier keys. Bit values match the Carbon
// constants so persisted masks stay compatible across versions.
type Modifiers uint32

const (
	ModCommand Modifiers = 0x0100
	ModShift   Modifiers = 0x0200
	ModOption  Modifiers = 0x0800
	ModControl Modifiers = 0x1000

	allModifiers = ModCommand | ModShift | ModOption | ModControl
)

// ErrNoModifiers is returned for bindings that would hijack ordinary typing
var ErrNoModifiers = errors.New("hotkey must include at least one modifier")

// Has reports whether every modifier in m2 is set in m
func (m Modifiers) Has(m2 Modifiers) bool {
	return m&m2 == m2
}

// Known strips bits that are not one of the four modifier keys
func (m Modifiers) Known() Modifiers {
	return m & allModifiers
}

// String renders the modifiers the way the macOS menu bar does
func (m Modifiers) String() string {
	var b strings.Builder
	if m.Has(ModControl) {
		b.WriteString("^")
	}
	if m.Has(ModOption) {
		b.WriteString("⌥")
	}
	if m.Has(ModShift) {
		b.WriteString("⇧")
	}
	if m.Has(ModCommand) {
		b.WriteString("⌘")
	}
	return b.String()
}

// Binding is a key code plus modifier mask. Key codes are macOS virtual key codes.
type Binding struct {
	KeyCode   int
	Modifiers Modifiers
}

// DefaultBinding is control+option+V
var DefaultBinding = Binding{KeyCode: KeyV, Modifiers: ModControl | ModOption}

// Validate rejects malformed bindings before they reach the OS
func (b Binding) Validate() error {
	if b.Modifiers.Known() == 0 {
		return ErrNoModifiers
	}
	if b.Modifiers != b.Modifiers.Known() {
		return fmt.Errorf("unknown modifier bits: %#x", uint32(b.Modifiers&^allModifiers))
	}
	if b.KeyCode < 0 || b.KeyCode > 0x7F {
		return fmt.Errorf("key code out of range: %d", b.KeyCode)
	}
	return nil
}

// String returns the display form, e.g. "^⌥V"
func (b Binding) String() string {
	return b.Modifiers.String() + KeyName(b.KeyCode)
}

// Combo returns the config form, e.g. "ctrl+option+v"
func (b Binding) Combo() string {
	var parts []string
	if b.Modifiers.Has(ModControl) {
		parts = append(parts, "ctrl")
	}
	if b.Modifiers.Has(ModOption) {
		parts = append(parts, "option")
	}
	if b.Modifiers.Has(ModShift) {
		parts = append(parts, "shift")
	}
	if b.Modifiers.Has(ModCommand) {
		parts = append(parts, "cmd")
	}
	name := strings.ToLower(KeyName(b.KeyCode))
	for n, code := range keyCodes {
		if code == b.KeyCode {
			name = n
			break
		}
	}
	parts = append(parts, name)
	return strings.Join(parts, "+")
}

// macOS virtual key codes (kVK_ANSI_*)
const (
	KeyA      = 0x00
	KeyS      = 0x01
	KeyD      = 0x02
	KeyF      = 0x03
	KeyH      = 0x04
	KeyG      = 0x05
	KeyZ      = 0x06
	KeyX      = 0x07
	KeyC      = 0x08
	KeyV      = 0x09
	KeyB      = 0x0B
	KeyQ      = 0x0C
	KeyW      = 0x0D
	KeyE      = 0x0E
	KeyR      = 0x0F
	KeyY      = 0x10
	KeyT      = 0x11
	Key1      = 0x12
	Key2      = 0x13
	Key3      = 0x14
	Key4      = 0x15
	Key6      = 0x16
	Key5      = 0x17
	Key9      = 0x19
	Key7      = 0x1A
	Key8      = 0x1C
	Key0      = 0x1D
	KeyO      = 0x1F
	KeyU      = 0x20
	KeyI      = 0x22
	KeyP      = 0x23
	KeyReturn = 0x24
	KeyL      = 0x25
	KeyJ      = 0x26
	KeyK      = 0x28
	KeyN      = 0x2D
	KeyM      = 0x2E
	KeyTab    = 0x30
	KeySpace  = 0x31
	KeyDelete = 0x33
	KeyEscape = 0x35
)

var keyCodes = map[string]int{
	"a": KeyA, "b": KeyB, "c": KeyC, "d": KeyD, "e": KeyE,
	"f": KeyF, "g": KeyG, "h": KeyH, "i": KeyI, "j": KeyJ,
	"k": KeyK, "l": KeyL, "m": KeyM, "n": KeyN, "o": KeyO,
	"p": KeyP, "q": KeyQ, "r": KeyR, "s": KeyS, "t": KeyT,
	"u": KeyU, "v": KeyV, "w": KeyW, "x": KeyX, "y": KeyY, "z": KeyZ,
	"0": Key0, "1": Key1, "2": Key2, "3": Key3, "4": Key4,
	"5": Key5, "6": Key6, "7": Key7, "8": Key8, "9": Key9,
	"return": KeyReturn, "space": KeySpace, "tab": KeyTab,
	"delete": KeyDelete, "esc": KeyEscape,
}

var keyNames = map[int]string{
	KeyReturn: "Return",
	KeySpace:  "Space",
	KeyTab:    "Tab",
	KeyDelete: "Delete",
	KeyEscape: "Esc",
}

// KeyName returns a display name for a virtual key code
func KeyName(code int) string {
	if name, ok := keyNames[code]; ok {
		return name
	}
	for name, c := range keyCodes {
		if c == code && len(name) == 1 {
			return strings.ToUpper(name)
		}
	}
	return fmt.Sprintf("Key%d", code)
}

// ParseBinding parses a combo string like "ctrl+option+v"
func ParseBinding(combo string) (Binding, error) {
	var b Binding
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	if len(parts) < 2 {
		return b, fmt.Errorf("invalid hotkey %q: need modifier+key", combo)
	}

	for i, part := range parts {
		part = strings.TrimSpace(part)

		if i == len(parts)-1 {
			code, ok := keyCodes[part]
			if !ok {
				return b, fmt.Errorf("unknown key: %s", part)
			}
			b.KeyCode = code
			continue
		}

		switch part {
		case "ctrl", "control":
			b.Modifiers |= ModControl
		case "alt", "opt", "option":
			b.Modifiers |= ModOption
		case "shift":
			b.Modifiers |= ModShift
		case "cmd", "command", "win", "super":
			b.Modifiers |= ModCommand
		default:
			return b, fmt.Errorf("unknown modifier: %s", part)
		}
	}

	return b, b.Validate()
}
