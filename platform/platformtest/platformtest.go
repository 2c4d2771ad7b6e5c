// Package platformtest provides in-memory implementations of the platform
// capabilities for tests.
package platformtest

import (
	"context"
	"errors"
	"sync"

	"markestedt/pasteimagepath/platform"
)

// Clipboard is an in-memory clipboard
type Clipboard struct {
	mu       sync.Mutex
	items    []platform.Item
	writes   int
	ReadErr  error
	WriteErr error
}

// NewClipboard creates a clipboard holding items
func NewClipboard(items ...platform.Item) *Clipboard {
	c := &Clipboard{}
	c.items = clone(items)
	return c
}

func (c *Clipboard) Data(t platform.ContentType) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	for _, item := range c.items {
		for _, rep := range item {
			if rep.Type == t {
				return append([]byte(nil), rep.Data...), nil
			}
		}
	}
	return nil, nil
}

func (c *Clipboard) Items() ([]platform.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	return clone(c.items), nil
}

func (c *Clipboard) Write(items []platform.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.items = clone(items)
	c.writes++
	return nil
}

func (c *Clipboard) SetText(text string) error {
	return c.Write([]platform.Item{{{Type: platform.TypeText, Data: []byte(text)}}})
}

// Text returns the plain-text payload of the first item
func (c *Clipboard) Text() string {
	data, _ := c.Data(platform.TypeText)
	return string(data)
}

// Snapshot returns a copy of the current contents
func (c *Clipboard) Snapshot() []platform.Item {
	items, _ := c.Items()
	return items
}

// Writes counts successful writes
func (c *Clipboard) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func clone(items []platform.Item) []platform.Item {
	if items == nil {
		return nil
	}
	out := make([]platform.Item, len(items))
	for i, item := range items {
		out[i] = make(platform.Item, len(item))
		for j, rep := range item {
			out[i][j] = platform.Representation{Type: rep.Type, Data: append([]byte{}, rep.Data...)}
		}
	}
	return out
}

// Keyboard is a scriptable keyboard
type Keyboard struct {
	mu      sync.Mutex
	held    platform.Modifiers
	changes chan platform.Modifiers
	keys    chan platform.KeyEvent
	KeyErr  error
}

// NewKeyboard creates a keyboard with no modifiers held
func NewKeyboard() *Keyboard {
	return &Keyboard{
		changes: make(chan platform.Modifiers, 16),
		keys:    make(chan platform.KeyEvent, 16),
	}
}

func (k *Keyboard) HeldModifiers() platform.Modifiers {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.held
}

// Hold sets the held modifiers without emitting a change
func (k *Keyboard) Hold(m platform.Modifiers) {
	k.mu.Lock()
	k.held = m
	k.mu.Unlock()
}

// Release clears the held modifiers and emits a change notification
func (k *Keyboard) Release() {
	k.Hold(0)
	k.changes <- 0
}

func (k *Keyboard) WatchModifiers(ctx context.Context) <-chan platform.Modifiers {
	return k.changes
}

func (k *Keyboard) KeyDowns(ctx context.Context) (<-chan platform.KeyEvent, error) {
	if k.KeyErr != nil {
		return nil, k.KeyErr
	}
	return k.keys, nil
}

// Press emits a raw key-down
func (k *Keyboard) Press(ev platform.KeyEvent) {
	k.keys <- ev
}

// ErrClaimed is returned by Hotkey for rejected combos
var ErrClaimed = errors.New("hotkey already claimed")

// Hotkey records registrations
type Hotkey struct {
	mu            sync.Mutex
	current       *platform.Binding
	registrations int
	rejected      map[platform.Binding]bool
	presses       chan struct{}
}

// NewHotkey creates a hotkey registrar
func NewHotkey() *Hotkey {
	return &Hotkey{
		rejected: make(map[platform.Binding]bool),
		presses:  make(chan struct{}, 16),
	}
}

// Reject makes Register fail for b
func (h *Hotkey) Reject(b platform.Binding) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected[b] = true
}

func (h *Hotkey) Register(b platform.Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
	h.registrations++
	if h.rejected[b] {
		return ErrClaimed
	}
	h.current = &b
	return nil
}

func (h *Hotkey) Unregister() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
	return nil
}

func (h *Hotkey) Presses() <-chan struct{} {
	return h.presses
}

// Press delivers a hotkey press
func (h *Hotkey) Press() {
	h.presses <- struct{}{}
}

// Current returns the active binding
func (h *Hotkey) Current() (platform.Binding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return platform.Binding{}, false
	}
	return *h.current, true
}

// Registrations counts calls that reached the OS layer
func (h *Hotkey) Registrations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registrations
}

// Paster counts paste injections
type Paster struct {
	mu     sync.Mutex
	count  int
	Err    error
	pasted chan int
	// OnPaste runs inside Paste, before it returns
	OnPaste func()
}

// NewPaster creates a paster
func NewPaster() *Paster {
	return &Paster{pasted: make(chan int, 16)}
}

func (p *Paster) Paste() error {
	if p.OnPaste != nil {
		p.OnPaste()
	}
	p.mu.Lock()
	if p.Err != nil {
		p.mu.Unlock()
		return p.Err
	}
	p.count++
	n := p.count
	p.mu.Unlock()

	select {
	case p.pasted <- n:
	default:
	}
	return nil
}

// Count returns the number of successful pastes
func (p *Paster) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Pasted receives the running count after every paste
func (p *Paster) Pasted() <-chan int {
	return p.pasted
}

// Accessibility is a fixed permission answer
type Accessibility struct {
	mu      sync.Mutex
	trusted bool
	prompts int
}

// NewAccessibility creates an Accessibility that answers trusted
func NewAccessibility(trusted bool) *Accessibility {
	return &Accessibility{trusted: trusted}
}

func (a *Accessibility) Trusted(prompt bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prompt {
		a.prompts++
	}
	return a.trusted
}

// Prompts counts Trusted(true) calls
func (a *Accessibility) Prompts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prompts
}
