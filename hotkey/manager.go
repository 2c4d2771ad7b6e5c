// Package hotkey manages the single global paste hotkey and the capture mode
// used to record a new one.
package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	"markestedt/pasteimagepath/platform"
)

// State is the hotkey state shown on the status surface
type State string

const (
	StateReady     State = "Ready"
	StateFailed    State = "Failed"
	StateRecording State = "Recording"
)

// RegistrationError reports a binding the OS would not accept, or one that
// was malformed
type RegistrationError struct {
	Binding platform.Binding
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register hotkey %s: %v", e.Binding, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Manager owns the registration of one binding at a time
type Manager struct {
	mu      sync.Mutex
	os      platform.Hotkey
	active  *platform.Binding
	lastErr error
}

// NewManager wraps an OS hotkey registrar
func NewManager(h platform.Hotkey) *Manager {
	return &Manager{os: h}
}

// Register activates b, replacing any previous registration. Registering the
// binding that is already active does nothing.
func (m *Manager) Register(b platform.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(b)
}

func (m *Manager) register(b platform.Binding) error {
	if err := b.Validate(); err != nil {
		m.lastErr = &RegistrationError{Binding: b, Err: err}
		return m.lastErr
	}
	if m.active != nil && *m.active == b {
		return nil
	}

	m.active = nil
	if err := m.os.Register(b); err != nil {
		m.lastErr = &RegistrationError{Binding: b, Err: err}
		return m.lastErr
	}

	m.active = &b
	m.lastErr = nil
	slog.Info("Hotkey registered", "hotkey", b.String())
	return nil
}

// Rebind replaces the active binding with b. When b is refused the previous
// binding is registered again and the original error is returned.
func (m *Manager) Rebind(b platform.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var previous *platform.Binding
	if m.active != nil {
		p := *m.active
		previous = &p
	}

	err := m.register(b)
	if err == nil {
		return nil
	}

	if previous != nil && (m.active == nil || *m.active != *previous) {
		if ferr := m.register(*previous); ferr != nil {
			slog.Error("Failed to restore previous hotkey", "hotkey", previous.String(), "error", ferr)
		} else {
			slog.Warn("Restored previous hotkey", "hotkey", previous.String(), "rejected", b.String())
		}
	}
	return err
}

// Unregister releases the active binding
func (m *Manager) Unregister() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	m.active = nil
	if err := m.os.Unregister(); err != nil {
		return fmt.Errorf("failed to unregister hotkey: %w", err)
	}
	return nil
}

// Active returns the registered binding, if any
func (m *Manager) Active() (platform.Binding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return platform.Binding{}, false
	}
	return *m.active, true
}

// State reports Ready when a binding is registered and Failed otherwise
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return StateReady
	}
	return StateFailed
}

// LastError returns the most recent registration failure
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Presses delivers one value per hotkey press
func (m *Manager) Presses() <-chan struct{} {
	return m.os.Presses()
}

// Released reports whether none of the required modifiers are held
func Released(held, required platform.Modifiers) bool {
	return held.Known()&required.Known() == 0
}
