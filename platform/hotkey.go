//go:build darwin || windows

package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"
)

// SystemHotkey implements the Hotkey interface on top of the OS hotkey service
type SystemHotkey struct {
	mu      sync.Mutex
	hk      *hotkey.Hotkey
	current Binding
	stop    chan struct{}
	presses chan struct{}
}

// NewHotkey creates a new system hotkey registrar
func NewHotkey() Hotkey {
	return &SystemHotkey{
		presses: make(chan struct{}, 10),
	}
}

// Register unregisters any active combo and registers b in its place
func (h *SystemHotkey) Register(b Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unregisterLocked()

	key, err := nativeKey(b.KeyCode)
	if err != nil {
		return err
	}

	hk := hotkey.New(nativeModifiers(b.Modifiers), key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register %s: %w", b, err)
	}

	h.hk = hk
	h.current = b
	h.stop = make(chan struct{})
	go h.forward(hk.Keydown(), h.stop)

	slog.Debug("Registered global hotkey", "hotkey", b.String())
	return nil
}

// Unregister removes the active registration, if any
func (h *SystemHotkey) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unregisterLocked()
}

// Presses returns the channel receiving one value per hotkey press
func (h *SystemHotkey) Presses() <-chan struct{} {
	return h.presses
}

func (h *SystemHotkey) unregisterLocked() error {
	if h.hk == nil {
		return nil
	}
	close(h.stop)
	err := h.hk.Unregister()
	h.hk = nil
	h.stop = nil
	if err != nil {
		return fmt.Errorf("failed to unregister %s: %w", h.current, err)
	}
	return nil
}

func (h *SystemHotkey) forward(keydown <-chan hotkey.Event, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			select {
			case h.presses <- struct{}{}:
			default:
				slog.Warn("Dropping hotkey press, consumer is busy")
			}
		}
	}
}
