//go:build windows

package platform

import (
	"fmt"

	"golang.design/x/hotkey"
)

var modifierMap = map[Modifiers]hotkey.Modifier{
	ModControl: hotkey.ModCtrl,
	ModShift:   hotkey.ModShift,
	ModOption:  hotkey.ModAlt,
	ModCommand: hotkey.ModWin,
}

func nativeModifiers(m Modifiers) []hotkey.Modifier {
	var mods []hotkey.Modifier
	for _, bit := range []Modifiers{ModControl, ModOption, ModShift, ModCommand} {
		if m.Has(bit) {
			mods = append(mods, modifierMap[bit])
		}
	}
	return mods
}

func nativeKey(code int) (hotkey.Key, error) {
	vk, err := VKCode(code)
	if err != nil {
		return 0, err
	}
	return hotkey.Key(vk), nil
}

// Windows virtual key codes keyed by the portable key name
var vkCodes = map[string]int{
	"a": 0x41, "b": 0x42, "c": 0x43, "d": 0x44, "e": 0x45,
	"f": 0x46, "g": 0x47, "h": 0x48, "i": 0x49, "j": 0x4A,
	"k": 0x4B, "l": 0x4C, "m": 0x4D, "n": 0x4E, "o": 0x4F,
	"p": 0x50, "q": 0x51, "r": 0x52, "s": 0x53, "t": 0x54,
	"u": 0x55, "v": 0x56, "w": 0x57, "x": 0x58, "y": 0x59, "z": 0x5A,
	"0": 0x30, "1": 0x31, "2": 0x32, "3": 0x33, "4": 0x34,
	"5": 0x35, "6": 0x36, "7": 0x37, "8": 0x38, "9": 0x39,
	"space": 0x20, "return": 0x0D, "esc": 0x1B,
	"tab": 0x09, "delete": 0x08,
}

// VKCode translates a macOS virtual key code to its Windows counterpart
func VKCode(code int) (int, error) {
	for name, c := range keyCodes {
		if c != code {
			continue
		}
		if vk, ok := vkCodes[name]; ok {
			return vk, nil
		}
	}
	return 0, fmt.Errorf("no Windows key for key code %d", code)
}

// keyCodeFromVK is the inverse of VKCode; ok is false for unmapped keys
func keyCodeFromVK(vk int) (int, bool) {
	for name, v := range vkCodes {
		if v == vk {
			return keyCodes[name], true
		}
	}
	return 0, false
}
