//go:build darwin

package platform

import (
	"golang.design/x/hotkey"
)

// modifierMap maps our modifier bits to the macOS hotkey modifiers
var modifierMap = map[Modifiers]hotkey.Modifier{
	ModControl: hotkey.ModCtrl,
	ModShift:   hotkey.ModShift,
	ModOption:  hotkey.ModOption,
	ModCommand: hotkey.ModCmd,
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

// Binding key codes already are macOS virtual key codes
func nativeKey(code int) (hotkey.Key, error) {
	return hotkey.Key(code), nil
}
