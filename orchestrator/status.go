package orchestrator

import (
	"image"
	"sync"
	"time"

	"markestedt/pasteimagepath/hotkey"
	"markestedt/pasteimagepath/recent"
)

// Phase is the position in the press pipeline
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCapturing Phase = "capturing"
	PhasePasting   Phase = "pasting"
)

// Trigger names what started a paste
type Trigger string

const (
	TriggerHotkey Trigger = "hotkey"
	TriggerRecent Trigger = "recent"
	TriggerManual Trigger = "manual"
)

// Outcome is how a paste attempt ended
type Outcome string

const (
	OutcomeInjected   Outcome = "injected"
	OutcomeDenied     Outcome = "denied"
	OutcomeFailed     Outcome = "failed"
	OutcomeSuperseded Outcome = "superseded"
)

// PasteReport describes one completed or abandoned paste
type PasteReport struct {
	ID         string        `json:"id"`
	Time       time.Time     `json:"time"`
	Trigger    Trigger       `json:"trigger"`
	Path       string        `json:"path,omitempty"`
	SourceType string        `json:"source_type,omitempty"`
	HadImage   bool          `json:"had_image"`
	Injected   bool          `json:"injected"`
	Forced     bool          `json:"forced"`
	Superseded bool          `json:"superseded,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency_ns"`
}

// Preview is the image most recently turned into a path
type Preview struct {
	Path      string      `json:"path"`
	Thumbnail image.Image `json:"-"`
	ShownAt   time.Time   `json:"shown_at"`
}

// Status is the observable state consumed by the tray and the web UI
type Status struct {
	HotkeyState   hotkey.State   `json:"hotkey_state"`
	Hotkey        string         `json:"hotkey"`
	HotkeyCombo   string         `json:"hotkey_combo"`
	Detail        string         `json:"detail,omitempty"`
	Alert         string         `json:"alert,omitempty"`
	Phase         Phase          `json:"phase"`
	Recent        []recent.Entry `json:"recent"`
	Preview       *Preview       `json:"preview,omitempty"`
	LastPaste     *PasteReport   `json:"last_paste,omitempty"`
	Accessibility bool           `json:"accessibility"`
	InsertSpace   bool           `json:"insert_space_before_path"`
	QuotePaths    bool           `json:"quote_paths"`
}

// statusHub fans the latest status out to subscribers. A slow subscriber
// only ever sees the newest value.
type statusHub struct {
	mu     sync.RWMutex
	status Status
	subs   map[chan Status]struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{subs: make(map[chan Status]struct{})}
}

func (h *statusHub) get() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *statusHub) set(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (h *statusHub) subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	ch <- h.status
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}
