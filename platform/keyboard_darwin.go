//go:build darwin

package platform

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>

static uint64_t pip_flags_state(void) {
    return (uint64_t)CGEventSourceFlagsState(kCGEventSourceStateCombinedSessionState);
}
*/
import "C"

import (
	"context"
	"time"

	hook "github.com/robotn/gohook"
)

const (
	cgMaskShift     = 0x00020000
	cgMaskControl   = 0x00040000
	cgMaskAlternate = 0x00080000
	cgMaskCommand   = 0x00100000
)

// modifier polling interval for WatchModifiers
const flagsPollInterval = 10 * time.Millisecond

// DarwinKeyboard implements the Keyboard interface for macOS
type DarwinKeyboard struct{}

// NewKeyboard creates a new macOS keyboard observer
func NewKeyboard() Keyboard {
	return &DarwinKeyboard{}
}

// HeldModifiers reads the combined session flags state
func (k *DarwinKeyboard) HeldModifiers() Modifiers {
	return modifiersFromFlags(uint64(C.pip_flags_state()))
}

// WatchModifiers emits the held modifiers whenever they change
func (k *DarwinKeyboard) WatchModifiers(ctx context.Context) <-chan Modifiers {
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

// gohook runs a single event tap per process
var hookKeys = newKeyHub(startHook, hook.End)

func startHook(done <-chan struct{}) <-chan KeyEvent {
	events := hook.Start()
	out := make(chan KeyEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Kind != hook.KeyHold {
					continue
				}
				select {
				case out <- KeyEvent{KeyCode: int(ev.Rawcode), Modifiers: modifiersFromFlags(uint64(C.pip_flags_state()))}:
				default:
				}
			}
		}
	}()
	return out
}

// KeyDowns delivers physical key presses from the shared key hook until ctx
// is done
func (k *DarwinKeyboard) KeyDowns(ctx context.Context) (<-chan KeyEvent, error) {
	keys, unsubscribe := hookKeys.subscribe()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return keys, nil
}

func modifiersFromFlags(flags uint64) Modifiers {
	var m Modifiers
	if flags&cgMaskControl != 0 {
		m |= ModControl
	}
	if flags&cgMaskAlternate != 0 {
		m |= ModOption
	}
	if flags&cgMaskShift != 0 {
		m |= ModShift
	}
	if flags&cgMaskCommand != 0 {
		m |= ModCommand
	}
	return m
}
