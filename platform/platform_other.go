//go:build !darwin && !windows

package platform

import (
	"context"
	"runtime"
)

type unsupported struct{}

// NewHotkey returns a Hotkey that always fails to register
func NewHotkey() Hotkey { return unsupported{} }

// NewKeyboard returns a Keyboard that never reports modifiers
func NewKeyboard() Keyboard { return unsupported{} }

// NewClipboard returns a Clipboard that is always empty
func NewClipboard() Clipboard { return unsupported{} }

// NewPaster returns a Paster that always fails
func NewPaster() Paster { return unsupported{} }

// NewAccessibility returns an Accessibility that never grants injection
func NewAccessibility() Accessibility { return unsupported{} }

func (unsupported) Register(Binding) error   { return ErrUnsupported }
func (unsupported) Unregister() error        { return nil }
func (unsupported) Presses() <-chan struct{} { return nil }

func (unsupported) HeldModifiers() Modifiers { return 0 }

func (unsupported) WatchModifiers(ctx context.Context) <-chan Modifiers {
	out := make(chan Modifiers)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}

func (unsupported) KeyDowns(context.Context) (<-chan KeyEvent, error) {
	return nil, ErrUnsupported
}

func (unsupported) Data(ContentType) ([]byte, error) { return nil, ErrUnsupported }
func (unsupported) Items() ([]Item, error)          { return nil, ErrUnsupported }
func (unsupported) Write([]Item) error              { return ErrUnsupported }
func (unsupported) SetText(string) error            { return ErrUnsupported }

func (unsupported) Paste() error { return ErrUnsupported }

func (unsupported) Trusted(bool) bool { return false }

// OpenAccessibilitySettings is not available on this platform
func OpenAccessibilitySettings() error { return ErrUnsupported }

// OSVersion returns the GOOS name
func OSVersion() string { return runtime.GOOS }
