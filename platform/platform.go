package platform

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported is returned by capabilities that have no implementation on this OS
	ErrUnsupported = errors.New("not supported on this platform")

	// ErrPermissionDenied is returned when synthetic input is not allowed
	ErrPermissionDenied = errors.New("input injection permission not granted")
)

// ContentType identifies a clipboard payload format
type ContentType string

const (
	TypePNG  ContentType = "public.png"
	TypeTIFF ContentType = "public.tiff"
	TypeText ContentType = "public.utf8-plain-text"
)

// Representation is one typed payload of a clipboard item
type Representation struct {
	Type ContentType
	Data []byte
}

// Item is a single clipboard item carrying one or more representations
type Item []Representation

// KeyEvent is a raw key-down observed outside the registered hotkey
type KeyEvent struct {
	KeyCode   int
	Modifiers Modifiers
}

// Hotkey registers a single global key combination with the OS.
// Register replaces any existing registration.
type Hotkey interface {
	Register(b Binding) error
	Unregister() error
	Presses() <-chan struct{}
}

// Keyboard exposes live modifier state and raw key observation
type Keyboard interface {
	// HeldModifiers polls the OS for the modifier keys currently down
	HeldModifiers() Modifiers
	// WatchModifiers delivers the held modifiers every time they change
	WatchModifiers(ctx context.Context) <-chan Modifiers
	// KeyDowns delivers raw key-down events until ctx is done
	KeyDowns(ctx context.Context) (<-chan KeyEvent, error)
}

// Clipboard provides clipboard access
type Clipboard interface {
	// Data returns the bytes of the first item for the given type, or nil when absent
	Data(t ContentType) ([]byte, error)
	Items() ([]Item, error)
	Write(items []Item) error
	SetText(text string) error
}

// Paster simulates paste operation
type Paster interface {
	Paste() error
}

// Accessibility reports whether the process may inject input
type Accessibility interface {
	Trusted(prompt bool) bool
}
