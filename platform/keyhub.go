package platform

import "sync"

// keyHub shares one process-wide key source between subscribers. The
// source starts with the first subscriber and stops after the last one
// leaves, so a capture that is replaced by a newer one cannot stop the
// newer one's feed.
type keyHub struct {
	start func(done <-chan struct{}) <-chan KeyEvent
	stop  func()

	mu   sync.Mutex
	subs map[chan KeyEvent]struct{}
	done chan struct{}
}

func newKeyHub(start func(done <-chan struct{}) <-chan KeyEvent, stop func()) *keyHub {
	return &keyHub{
		start: start,
		stop:  stop,
		subs:  make(map[chan KeyEvent]struct{}),
	}
}

// subscribe returns a channel of key events and a function that closes it
func (h *keyHub) subscribe() (<-chan KeyEvent, func()) {
	ch := make(chan KeyEvent, 10)

	h.mu.Lock()
	if len(h.subs) == 0 {
		h.done = make(chan struct{})
		go h.dispatch(h.start(h.done), h.done)
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() { once.Do(func() { h.unsubscribe(ch) }) }
}

func (h *keyHub) unsubscribe(ch chan KeyEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, ch)
	close(ch)
	if len(h.subs) == 0 {
		close(h.done)
		h.stop()
	}
}

func (h *keyHub) dispatch(events <-chan KeyEvent, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.mu.Lock()
			select {
			case <-done:
				// a restarted source owns the subscribers now
				h.mu.Unlock()
				return
			default:
			}
			for ch := range h.subs {
				select {
				case ch <- ev:
				default:
				}
			}
			h.mu.Unlock()
		}
	}
}
