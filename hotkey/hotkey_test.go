package hotkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"markestedt/pasteimagepath/platform"
	"markestedt/pasteimagepath/platform/platformtest"
)

func TestRegisterIdempotent(t *testing.T) {
	osHotkey := platformtest.NewHotkey()
	m := NewManager(osHotkey)

	b := platform.Binding{KeyCode: platform.KeyV, Modifiers: platform.ModControl | platform.ModOption}
	if err := m.Register(b); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := m.Register(b); err != nil {
		t.Fatalf("second Register failed: %v", err)
	}

	if n := osHotkey.Registrations(); n != 1 {
		t.Fatalf("OS saw %d registrations, want 1", n)
	}
	if got, ok := osHotkey.Current(); !ok || got != b {
		t.Fatalf("OS binding = %+v (%v), want %+v", got, ok, b)
	}
	if m.State() != StateReady {
		t.Fatalf("state = %s", m.State())
	}
}

func TestRegisterRejectsEmptyModifiers(t *testing.T) {
	osHotkey := platformtest.NewHotkey()
	m := NewManager(osHotkey)

	err := m.Register(platform.Binding{KeyCode: platform.KeyV})
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected RegistrationError, got %v", err)
	}
	if !errors.Is(err, platform.ErrNoModifiers) {
		t.Fatalf("expected ErrNoModifiers, got %v", err)
	}
	if osHotkey.Registrations() != 0 {
		t.Fatal("invalid binding reached the OS layer")
	}
}

func TestRebindFallsBack(t *testing.T) {
	osHotkey := platformtest.NewHotkey()
	m := NewManager(osHotkey)

	good := platform.DefaultBinding
	claimed := platform.Binding{KeyCode: platform.KeyP, Modifiers: platform.ModCommand}
	osHotkey.Reject(claimed)

	if err := m.Register(good); err != nil {
		t.Fatal(err)
	}

	err := m.Rebind(claimed)
	if !errors.Is(err, platformtest.ErrClaimed) {
		t.Fatalf("expected claimed error, got %v", err)
	}
	var regErr *RegistrationError
	if !errors.As(err, &regErr) || regErr.Binding != claimed {
		t.Fatalf("error does not name the rejected binding: %v", err)
	}

	if active, ok := m.Active(); !ok || active != good {
		t.Fatalf("active = %+v (%v), want fallback %+v", active, ok, good)
	}
	if got, ok := osHotkey.Current(); !ok || got != good {
		t.Fatalf("OS binding = %+v, want %+v", got, good)
	}
}

func TestRebindSuccess(t *testing.T) {
	osHotkey := platformtest.NewHotkey()
	m := NewManager(osHotkey)
	if err := m.Register(platform.DefaultBinding); err != nil {
		t.Fatal(err)
	}

	next := platform.Binding{KeyCode: platform.KeyI, Modifiers: platform.ModCommand | platform.ModShift}
	if err := m.Rebind(next); err != nil {
		t.Fatalf("Rebind failed: %v", err)
	}
	if active, _ := m.Active(); active != next {
		t.Fatalf("active = %+v, want %+v", active, next)
	}
}

func TestFailedStateWithoutBinding(t *testing.T) {
	osHotkey := platformtest.NewHotkey()
	osHotkey.Reject(platform.DefaultBinding)
	m := NewManager(osHotkey)

	if err := m.Register(platform.DefaultBinding); err == nil {
		t.Fatal("expected error")
	}
	if m.State() != StateFailed {
		t.Fatalf("state = %s, want Failed", m.State())
	}
	if m.LastError() == nil {
		t.Fatal("LastError not recorded")
	}
}

func TestReleased(t *testing.T) {
	required := platform.ModControl | platform.ModOption
	tests := []struct {
		name string
		held platform.Modifiers
		want bool
	}{
		{"none held", 0, true},
		{"both held", platform.ModControl | platform.ModOption, false},
		{"one still held", platform.ModOption, false},
		{"unrelated held", platform.ModCommand, true},
	}
	for _, tt := range tests {
		if got := Released(tt.held, required); got != tt.want {
			t.Errorf("%s: Released(%v) = %v, want %v", tt.name, tt.held, got, tt.want)
		}
	}
}

func TestCaptureSkipsBareKeys(t *testing.T) {
	kb := platformtest.NewKeyboard()
	kb.Press(platform.KeyEvent{KeyCode: platform.KeyA})
	kb.Press(platform.KeyEvent{KeyCode: platform.KeyK, Modifiers: platform.ModCommand | platform.ModShift})

	b, err := Capture(context.Background(), kb, time.Second)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	want := platform.Binding{KeyCode: platform.KeyK, Modifiers: platform.ModCommand | platform.ModShift}
	if b != want {
		t.Fatalf("captured %+v, want %+v", b, want)
	}
}

func TestCaptureTimeout(t *testing.T) {
	kb := platformtest.NewKeyboard()
	kb.Press(platform.KeyEvent{KeyCode: platform.KeyA})

	_, err := Capture(context.Background(), kb, 20*time.Millisecond)
	if !errors.Is(err, ErrCaptureTimeout) {
		t.Fatalf("expected ErrCaptureTimeout, got %v", err)
	}
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Capture(ctx, platformtest.NewKeyboard(), time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
