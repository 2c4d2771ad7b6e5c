//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	peekMessage         = user32.NewProc("PeekMessageW")
	getAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmSyskeydown = 0x0104
	pmRemove     = 0x0001
)

const (
	vkShift = 0x10
	vkCtrl  = 0x11
	vkAlt   = 0x12
	vkLwin  = 0x5B // Left Windows key
	vkRwin  = 0x5C // Right Windows key
)

const flagsPollInterval = 10 * time.Millisecond

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// hook callbacks are a finite resource, so one is shared by every capture
var (
	hookOnce     sync.Once
	hookCallback uintptr
	hookMu       sync.Mutex
	hookSink     func(vk uint32)
)

// WindowsKeyboard implements the Keyboard interface for Windows
type WindowsKeyboard struct{}

// NewKeyboard creates a new Windows keyboard observer
func NewKeyboard() Keyboard {
	return &WindowsKeyboard{}
}

// HeldModifiers polls GetAsyncKeyState for every modifier
func (k *WindowsKeyboard) HeldModifiers() Modifiers {
	var m Modifiers
	if isKeyPressed(vkCtrl) {
		m |= ModControl
	}
	if isKeyPressed(vkAlt) {
		m |= ModOption
	}
	if isKeyPressed(vkShift) {
		m |= ModShift
	}
	if isKeyPressed(vkLwin) || isKeyPressed(vkRwin) {
		m |= ModCommand
	}
	return m
}

// WatchModifiers emits the held modifiers whenever they change
func (k *WindowsKeyboard) WatchModifiers(ctx context.Context) <-chan Modifiers {
	out := make(chan Modifiers, 10)
	go func() {
		defer close(out)
		ticker := time.NewTicker(flagsPollInterval)
		defer ticker.Stop()

		last := k.HeldModifiers()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				held := k.HeldModifiers()
				if held == last {
					continue
				}
				last = held
				select {
				case out <- held:
				default:
				}
			}
		}
	}()
	return out
}

// KeyDowns installs a low-level keyboard hook for the lifetime of ctx
func (k *WindowsKeyboard) KeyDowns(ctx context.Context) (<-chan KeyEvent, error) {
	out := make(chan KeyEvent, 10)

	hookMu.Lock()
	hookSink = func(vk uint32) {
		code, ok := keyCodeFromVK(int(vk))
		if !ok {
			return
		}
		select {
		case out <- KeyEvent{KeyCode: code, Modifiers: k.HeldModifiers()}:
		default:
		}
	}
	hookMu.Unlock()

	errCh := make(chan error, 1)
	go runHook(ctx, errCh, out)

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return out, nil
}

func runHook(ctx context.Context, errCh chan<- error, out chan KeyEvent) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hookOnce.Do(func() {
		hookCallback = windows.NewCallback(func(nCode int32, wParam uintptr, lParam uintptr) uintptr {
			if nCode >= 0 && (wParam == wmKeydown || wParam == wmSyskeydown) {
				kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
				hookMu.Lock()
				sink := hookSink
				hookMu.Unlock()
				if sink != nil {
					sink(kbInfo.vkCode)
				}
			}
			r, _, _ := callNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
			return r
		})
	})

	hook, _, err := setWindowsHookEx.Call(whKeyboardLL, hookCallback, 0, 0)
	if hook == 0 {
		close(out)
		errCh <- fmt.Errorf("SetWindowsHookEx failed: %w", err)
		return
	}
	errCh <- nil

	defer func() {
		unhookWindowsHookEx.Call(hook)
		hookMu.Lock()
		hookSink = nil
		hookMu.Unlock()
		close(out)
	}()

	// Message loop
	var m msg
	for {
		select {
		case <-ctx.Done():
			return
		default:
			r, _, _ := peekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
			if r != 0 {
				continue
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func isKeyPressed(vk int) bool {
	r, _, _ := getAsyncKeyState.Call(uintptr(vk))
	return r&0x8000 != 0
}
