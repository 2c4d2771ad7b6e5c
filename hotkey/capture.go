package hotkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"markestedt/pasteimagepath/platform"
)

// DefaultCaptureTimeout bounds how long capture mode listens
const DefaultCaptureTimeout = 8 * time.Second

// ErrCaptureTimeout means no combo with a modifier was pressed in time
var ErrCaptureTimeout = errors.New("no hotkey recorded before timeout")

// Capture listens to raw key-downs and returns the first combo that includes
// at least one modifier. Bare keys are ignored. Cancelling ctx aborts the
// capture with ctx.Err().
func Capture(ctx context.Context, kb platform.Keyboard, timeout time.Duration) (platform.Binding, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	keys, err := kb.KeyDowns(ctx)
	if err != nil {
		return platform.Binding{}, fmt.Errorf("failed to listen for keys: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return platform.Binding{}, ErrCaptureTimeout
			}
			return platform.Binding{}, ctx.Err()
		case ev, ok := <-keys:
			if !ok {
				return platform.Binding{}, ErrCaptureTimeout
			}
			b := platform.Binding{KeyCode: ev.KeyCode, Modifiers: ev.Modifiers.Known()}
			if b.Validate() != nil {
				continue
			}
			return b, nil
		}
	}
}
