package platform

import (
	"testing"
	"time"
)

type fakeKeySource struct {
	starts int
	stops  int
	events chan KeyEvent
}

func (s *fakeKeySource) hub() *keyHub {
	return newKeyHub(func(done <-chan struct{}) <-chan KeyEvent {
		s.starts++
		s.events = make(chan KeyEvent, 10)
		return s.events
	}, func() {
		s.stops++
	})
}

func receive(t *testing.T, ch <-chan KeyEvent) KeyEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("no key event delivered")
	}
	return KeyEvent{}
}

func TestKeyHubOverlappingSubscribers(t *testing.T) {
	src := &fakeKeySource{}
	h := src.hub()

	first, stopFirst := h.subscribe()
	second, stopSecond := h.subscribe()
	if src.starts != 1 {
		t.Fatalf("source started %d times, want 1", src.starts)
	}

	stopFirst()
	if src.stops != 0 {
		t.Fatal("source stopped while a subscriber remains")
	}
	if _, ok := <-first; ok {
		t.Fatal("first channel should be closed")
	}

	src.events <- KeyEvent{KeyCode: KeyK, Modifiers: ModCommand}
	if ev := receive(t, second); ev.KeyCode != KeyK {
		t.Fatalf("got %+v", ev)
	}

	stopSecond()
	stopSecond()
	if src.stops != 1 {
		t.Fatalf("source stopped %d times, want 1", src.stops)
	}
}

func TestKeyHubRestartsSource(t *testing.T) {
	src := &fakeKeySource{}
	h := src.hub()

	_, stop := h.subscribe()
	stop()

	keys, stop := h.subscribe()
	defer stop()
	if src.starts != 2 || src.stops != 1 {
		t.Fatalf("starts = %d, stops = %d; want 2, 1", src.starts, src.stops)
	}

	src.events <- KeyEvent{KeyCode: KeyA, Modifiers: ModControl}
	if ev := receive(t, keys); ev.KeyCode != KeyA {
		t.Fatalf("got %+v", ev)
	}
}
