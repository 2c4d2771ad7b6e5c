package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"markestedt/pasteimagepath/hotkey"
	"markestedt/pasteimagepath/metrics"
	"markestedt/pasteimagepath/platform"
)

func (o *Orchestrator) startCapture(ctx context.Context) {
	if o.captureCancel != nil {
		o.captureCancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	o.captureCancel = cancel
	o.captureSeq++
	seq := o.captureSeq
	o.recording = true
	o.alert = ""
	o.detail = "Press the new hotkey"
	o.publish()
	slog.Info("Recording new hotkey")

	go func() {
		b, err := hotkey.Capture(cctx, o.keyboard, o.opts.CaptureTimeout)
		o.post(func() { o.finishCapture(seq, b, err) })
	}()
}

func (o *Orchestrator) finishCapture(seq int, b platform.Binding, err error) {
	if seq != o.captureSeq {
		return
	}
	o.recording = false
	if o.captureCancel != nil {
		o.captureCancel()
		o.captureCancel = nil
	}

	switch {
	case errors.Is(err, hotkey.ErrCaptureTimeout):
		o.detail = "No hotkey recorded"
	case errors.Is(err, context.Canceled):
		o.detail = "Recording cancelled"
	case err != nil:
		o.detail = ""
		o.alert = fmt.Sprintf("Could not record hotkey: %v", err)
	default:
		o.rebind(b)
	}
	o.publish()
}

// stopCapture abandons a capture without reporting its result
func (o *Orchestrator) stopCapture() {
	if o.captureCancel != nil {
		o.captureCancel()
		o.captureCancel = nil
	}
	o.captureSeq++
	o.recording = false
}

func (o *Orchestrator) rebind(b platform.Binding) {
	if err := o.hotkeys.Rebind(b); err != nil {
		metrics.HotkeyRegistrationFailures.Inc()
		slog.Warn("Hotkey unavailable, keeping previous", "hotkey", b.String(), "error", err)
		o.detail = ""
		o.alert = fmt.Sprintf("%s is unavailable: %v", b, errors.Unwrap(err))
		return
	}

	o.binding = b
	o.alert = ""
	o.detail = "Hotkey set to " + b.String()
	if err := o.settings.SaveBinding(b); err != nil {
		slog.Error("Failed to save hotkey", "hotkey", b.String(), "error", err)
	}
}
