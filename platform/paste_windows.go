//go:build windows

package platform

import (
	"fmt"
	"time"
	"unsafe"
)

var (
	sendInput      = user32.NewProc("SendInput")
	mapVirtualKeyW = user32.NewProc("MapVirtualKeyW")
)

const (
	inputKeyboard  = 1
	keyeventfKeyup = 0x0002
	mapvkVkToVsc   = 0
	vkV            = 0x56
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type input struct {
	inputType uint32
	ki        keyboardInput
	padding   [8]byte // union size of INPUT
}

// WindowsPaster implements the Paster interface for Windows
type WindowsPaster struct{}

// NewPaster creates a new Windows paster instance
func NewPaster() Paster {
	return &WindowsPaster{}
}

// Paste sends Ctrl+V. Modifiers still held when the paste is forced are
// lifted first, otherwise the target would see e.g. Ctrl+Alt+V.
func (p *WindowsPaster) Paste() error {
	var held []uint16
	for _, vk := range []uint16{vkShift, vkAlt, vkLwin, vkRwin} {
		if isKeyPressed(int(vk)) {
			held = append(held, vk)
		}
	}

	inputs := pasteSequence(held)
	ret, _, err := sendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if ret == 0 {
		return fmt.Errorf("SendInput failed: %w", err)
	}
	if int(ret) != len(inputs) {
		return fmt.Errorf("SendInput injected %d of %d events", ret, len(inputs))
	}

	// let the target drain its queue before the clipboard can change again
	time.Sleep(20 * time.Millisecond)
	return nil
}

func pasteSequence(held []uint16) []input {
	inputs := make([]input, 0, len(held)+4)
	for _, vk := range held {
		inputs = append(inputs, keyEvent(vk, true))
	}
	return append(inputs,
		keyEvent(vkCtrl, false),
		keyEvent(vkV, false),
		keyEvent(vkV, true),
		keyEvent(vkCtrl, true),
	)
}

// keyEvent carries the scan code as well, elevated windows ignore bare
// virtual keys
func keyEvent(vk uint16, up bool) input {
	scan, _, _ := mapVirtualKeyW.Call(uintptr(vk), mapvkVkToVsc)
	ev := input{
		inputType: inputKeyboard,
		ki:        keyboardInput{wVk: vk, wScan: uint16(scan)},
	}
	if up {
		ev.ki.dwFlags = keyeventfKeyup
	}
	return ev
}
