// Package orchestrator runs the hotkey-triggered clipboard-to-path pipeline.
//
// Every state transition happens on the goroutine running Run. Hotkey
// presses, modifier changes, UI intents, timer callbacks and capture results
// are all delivered to it over channels, so the pending paste needs no
// locking.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"markestedt/pasteimagepath/clipboard"
	"markestedt/pasteimagepath/hotkey"
	"markestedt/pasteimagepath/metrics"
	"markestedt/pasteimagepath/platform"
	"markestedt/pasteimagepath/postprocess"
	"markestedt/pasteimagepath/recent"
	"markestedt/pasteimagepath/tempstore"
)

// Options holds the pipeline timings
type Options struct {
	// ReleaseTimeout forces the paste when modifiers stay held
	ReleaseTimeout time.Duration

	// RestoreDelay lets the injected paste read the path before the
	// original clipboard comes back
	RestoreDelay time.Duration

	// RecentPasteDelay gives the menu time to close before a recent path is pasted
	RecentPasteDelay time.Duration

	// PreviewDuration is how long a freshly saved image stays in the
	// menu, RecentPreviewDuration the same after a recent selection
	PreviewDuration       time.Duration
	RecentPreviewDuration time.Duration

	MaxAge         time.Duration
	CaptureTimeout time.Duration
}

// DefaultOptions returns the production timings
func DefaultOptions() Options {
	return Options{
		ReleaseTimeout:        800 * time.Millisecond,
		RestoreDelay:          350 * time.Millisecond,
		RecentPasteDelay:      100 * time.Millisecond,
		PreviewDuration:       3 * time.Second,
		RecentPreviewDuration: 2 * time.Second,
		MaxAge:                tempstore.DefaultMaxAge,
		CaptureTimeout:        hotkey.DefaultCaptureTimeout,
	}
}

// Settings is the persisted preference store
type Settings interface {
	InsertSpaceBeforePath() bool
	SetInsertSpaceBeforePath(enabled bool) error
	QuotePaths() bool
	SetQuotePaths(enabled bool) error
	SaveBinding(b platform.Binding) error
}

// Recorder receives a report for every paste attempt
type Recorder interface {
	RecordPaste(r PasteReport) error
}

// Deps are the collaborators of an Orchestrator. Recorder is optional.
type Deps struct {
	Hotkeys   *hotkey.Manager
	Keyboard  platform.Keyboard
	Clipboard platform.Clipboard
	Paster    platform.Paster
	Access    platform.Accessibility
	Store     *tempstore.Store
	Recent    *recent.Registry
	Settings  Settings
	Recorder  Recorder
	// Binding is registered when Run starts
	Binding platform.Binding
}

type pendingPaste struct {
	report   PasteReport
	required platform.Modifiers
	snapshot *clipboard.Snapshot
	armed    bool
	timer    *time.Timer
	start    time.Time
}

// pendingRecent is a recent path waiting for the menu to close. snapshot is
// the clipboard of a paste it superseded and is restored after it fires.
type pendingRecent struct {
	report   PasteReport
	snapshot *clipboard.Snapshot
	timer    *time.Timer
}

type pendingRestore struct {
	snapshot clipboard.Snapshot
	pasteID  string
	timer    *time.Timer
}

// Orchestrator owns the paste state machine
type Orchestrator struct {
	hotkeys   *hotkey.Manager
	keyboard  platform.Keyboard
	clipboard platform.Clipboard
	paster    platform.Paster
	access    platform.Accessibility
	store     *tempstore.Store
	recent    *recent.Registry
	settings  Settings
	recorder  Recorder
	binding   platform.Binding
	opts      Options

	intents chan Intent
	calls   chan func()
	done    chan struct{}

	// owned by the loop
	phase         Phase
	pending       *pendingPaste
	recentPaste   *pendingRecent
	restore       *pendingRestore
	captureCancel context.CancelFunc
	captureSeq    int
	recording     bool
	detail        string
	alert         string
	preview       *Preview
	lastPaste     *PasteReport
	trusted       bool

	hub *statusHub
	now func() time.Time
}

// New creates an orchestrator. Call Run to start it.
func New(deps Deps, opts Options) *Orchestrator {
	return &Orchestrator{
		hotkeys:   deps.Hotkeys,
		keyboard:  deps.Keyboard,
		clipboard: deps.Clipboard,
		paster:    deps.Paster,
		access:    deps.Access,
		store:     deps.Store,
		recent:    deps.Recent,
		settings:  deps.Settings,
		recorder:  deps.Recorder,
		binding:   deps.Binding,
		opts:      opts,
		intents:   make(chan Intent, 16),
		calls:     make(chan func(), 16),
		done:      make(chan struct{}),
		phase:     PhaseIdle,
		hub:       newStatusHub(),
		now:       time.Now,
	}
}

// Status returns the latest published status
func (o *Orchestrator) Status() Status {
	return o.hub.get()
}

// Subscribe delivers the current status and every later change. Call the
// returned function to stop.
func (o *Orchestrator) Subscribe() (<-chan Status, func()) {
	return o.hub.subscribe()
}

// Send queues an intent for the event loop
func (o *Orchestrator) Send(in Intent) {
	select {
	case o.intents <- in:
	case <-o.done:
	default:
		slog.Warn("Dropping intent, event loop is busy", "intent", fmt.Sprintf("%T", in))
	}
}

// Run processes events until ctx is done
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)

	o.trusted = o.access.Trusted(true)
	if !o.trusted {
		slog.Warn("Accessibility permission not granted, paths will be left on the clipboard")
	}
	o.sweep()
	o.registerInitial()
	o.publish()

	presses := o.hotkeys.Presses()
	changes := o.keyboard.WatchModifiers(ctx)

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil

		case <-presses:
			metrics.HotkeyPresses.Inc()
			o.handlePress(ctx, TriggerHotkey, o.pressModifiers())

		case held, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			o.handleModifiers(held)

		case in := <-o.intents:
			o.handleIntent(ctx, in)

		case fn := <-o.calls:
			fn()
		}
	}
}

func (o *Orchestrator) registerInitial() {
	err := o.hotkeys.Register(o.binding)
	if err == nil {
		return
	}
	metrics.HotkeyRegistrationFailures.Inc()
	slog.Error("Failed to register hotkey", "hotkey", o.binding.String(), "error", err)

	if o.binding != platform.DefaultBinding {
		if ferr := o.hotkeys.Register(platform.DefaultBinding); ferr == nil {
			o.alert = fmt.Sprintf("%s is unavailable, using %s", o.binding, platform.DefaultBinding)
			return
		}
	}
	o.alert = fmt.Sprintf("Could not register %s: %v", o.binding, errors.Unwrap(err))
}

func (o *Orchestrator) pressModifiers() platform.Modifiers {
	if b, ok := o.hotkeys.Active(); ok {
		return b.Modifiers
	}
	return o.binding.Modifiers
}

// after runs fn on the loop once d has elapsed
func (o *Orchestrator) after(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { o.post(fn) })
}

func (o *Orchestrator) post(fn func()) {
	select {
	case o.calls <- fn:
	case <-o.done:
	}
}

func (o *Orchestrator) handleIntent(ctx context.Context, in Intent) {
	switch in := in.(type) {
	case RecordHotkey:
		o.startCapture(ctx)
	case CancelRecording:
		if o.captureCancel != nil {
			o.captureCancel()
		}
	case SelectRecentImage:
		o.selectRecent(ctx, in.Path)
	case SetInsertSpace:
		if err := o.settings.SetInsertSpaceBeforePath(in.Enabled); err != nil {
			slog.Error("Failed to save preference", "error", err)
		}
		o.publish()
	case SetQuotePaths:
		if err := o.settings.SetQuotePaths(in.Enabled); err != nil {
			slog.Error("Failed to save preference", "error", err)
		}
		o.publish()
	case SetHotkey:
		o.stopCapture()
		o.rebind(in.Binding)
		o.publish()
	case PasteNow:
		o.handlePress(ctx, TriggerManual, 0)
	case RefreshStatus:
		o.trusted = o.access.Trusted(false)
		o.publish()
	default:
		slog.Warn("Unknown intent", "intent", fmt.Sprintf("%T", in))
	}
}

// handlePress runs Idle -> Capturing -> Pasting
func (o *Orchestrator) handlePress(ctx context.Context, trigger Trigger, required platform.Modifiers) {
	if o.recording {
		slog.Debug("Ignoring hotkey press while recording a new hotkey")
		return
	}

	start := o.now()
	o.runRestore()

	inherited := o.cancelPending()

	o.setPhase(PhaseCapturing)
	o.sweep()

	p := &pendingPaste{
		report:   PasteReport{ID: uuid.NewString(), Time: start, Trigger: trigger},
		required: required,
		start:    start,
	}

	snap, rewrote := o.capture(ctx, p)
	switch {
	case inherited != nil:
		p.snapshot = inherited
	case rewrote && !snap.Empty():
		p.snapshot = &snap
	}

	o.arm(p)
}

// capture snapshots the clipboard and swaps an image for its saved path.
// It reports whether the clipboard was rewritten.
func (o *Orchestrator) capture(ctx context.Context, p *pendingPaste) (clipboard.Snapshot, bool) {
	id := p.report.ID

	snap, err := clipboard.Take(o.clipboard)
	if err != nil {
		metrics.PipelineFailures.WithLabelValues("snapshot").Inc()
		slog.Warn("Failed to snapshot clipboard", "paste_id", id, "error", err)
	}

	img, typ, err := clipboard.ReadImage(o.clipboard)
	if err != nil {
		var decErr *clipboard.DecodeError
		switch {
		case errors.Is(err, clipboard.ErrNoImage):
			slog.Debug("No image on clipboard, pasting as is", "paste_id", id)
		case errors.As(err, &decErr):
			metrics.PipelineFailures.WithLabelValues("decode").Inc()
			slog.Debug("Clipboard image unreadable, pasting as is", "paste_id", id, "type", decErr.Type, "error", err)
		default:
			metrics.PipelineFailures.WithLabelValues("read").Inc()
			slog.Warn("Failed to read clipboard", "paste_id", id, "error", err)
		}
		return snap, false
	}
	p.report.HadImage = true
	p.report.SourceType = string(typ)

	path, err := o.store.SavePNG(img)
	if err != nil {
		stage := "io"
		var encErr *tempstore.EncodeError
		if errors.As(err, &encErr) {
			stage = "encode"
		}
		metrics.PipelineFailures.WithLabelValues(stage).Inc()
		slog.Warn("Failed to save image, pasting as is", "paste_id", id, "error", err)
		p.report.Error = err.Error()
		return snap, false
	}
	metrics.ImagesSaved.Inc()

	text, err := o.formatPath(ctx, path)
	if err != nil {
		slog.Warn("Failed to format path", "paste_id", id, "path", path, "error", err)
		return snap, false
	}
	if err := o.clipboard.SetText(text); err != nil {
		metrics.PipelineFailures.WithLabelValues("clipboard").Inc()
		slog.Warn("Failed to put path on clipboard", "paste_id", id, "error", err)
		p.report.Error = err.Error()
		return snap, false
	}
	p.report.Path = path

	thumb := recent.Thumbnail(img, recent.ThumbnailSize, recent.ThumbnailSize)
	o.recent.Record(path, thumb)
	o.showPreview(path, thumb, o.opts.PreviewDuration)

	slog.Info("Image saved", "paste_id", id, "path", path, "type", typ)
	return snap, true
}

// arm runs Capturing -> Pasting. The paste fires on release or on timeout,
// whichever comes first.
func (o *Orchestrator) arm(p *pendingPaste) {
	p.armed = true
	o.pending = p
	o.setPhase(PhasePasting)

	p.timer = o.after(o.opts.ReleaseTimeout, func() {
		if o.pending != p || !p.armed {
			return
		}
		slog.Info("Modifiers still held, forcing paste", "paste_id", p.report.ID)
		o.fire(p, true)
	})

	if hotkey.Released(o.keyboard.HeldModifiers(), p.required) {
		o.fire(p, false)
	}
}

func (o *Orchestrator) handleModifiers(held platform.Modifiers) {
	p := o.pending
	if p == nil || !p.armed {
		return
	}
	if hotkey.Released(held, p.required) {
		o.fire(p, false)
	}
}

// fire runs Pasting -> Idle. It is a no-op once the pending paste is disarmed.
func (o *Orchestrator) fire(p *pendingPaste, forced bool) {
	if !p.armed {
		return
	}
	p.armed = false
	if p.timer != nil {
		p.timer.Stop()
	}
	if o.pending == p {
		o.pending = nil
	}

	p.report.Forced = forced
	if forced {
		metrics.ForcedPastes.Inc()
	}

	err := o.inject()
	p.report.Latency = o.now().Sub(p.start)
	switch {
	case errors.Is(err, platform.ErrPermissionDenied):
		p.report.Error = err.Error()
		slog.Warn("Paste skipped, accessibility permission missing", "paste_id", p.report.ID, "path", p.report.Path)
	case err != nil:
		p.report.Error = err.Error()
		slog.Error("Failed to paste", "paste_id", p.report.ID, "error", err)
	default:
		p.report.Injected = true
		metrics.PasteLatency.Observe(p.report.Latency.Seconds())
		if p.snapshot != nil {
			o.scheduleRestore(*p.snapshot, p.report.ID)
		}
	}

	o.setPhase(PhaseIdle)
	o.finish(p.report)
}

// supersede cancels an armed paste in favour of a newer press
func (o *Orchestrator) supersede(p *pendingPaste) {
	p.armed = false
	if p.timer != nil {
		p.timer.Stop()
	}
	o.pending = nil
	p.report.Superseded = true
	p.report.Latency = o.now().Sub(p.start)
	slog.Info("Pending paste superseded by a newer press", "paste_id", p.report.ID)
	o.finish(p.report)
}

// cancelPending supersedes whatever paste has not fired yet and hands back
// the clipboard snapshot it would have restored
func (o *Orchestrator) cancelPending() *clipboard.Snapshot {
	var snap *clipboard.Snapshot
	if p := o.pending; p != nil && p.armed {
		snap = p.snapshot
		o.supersede(p)
	}
	if r := o.recentPaste; r != nil {
		o.recentPaste = nil
		r.timer.Stop()
		if snap == nil {
			snap = r.snapshot
		}
		r.report.Superseded = true
		r.report.Latency = o.now().Sub(r.report.Time)
		slog.Info("Recent paste superseded", "paste_id", r.report.ID)
		o.finish(r.report)
	}
	return snap
}

func (o *Orchestrator) inject() error {
	o.trusted = o.access.Trusted(false)
	if !o.trusted {
		return platform.ErrPermissionDenied
	}
	if err := o.paster.Paste(); err != nil {
		return fmt.Errorf("failed to inject paste: %w", err)
	}
	return nil
}

func (o *Orchestrator) scheduleRestore(snap clipboard.Snapshot, pasteID string) {
	o.runRestore()
	r := &pendingRestore{snapshot: snap, pasteID: pasteID}
	r.timer = o.after(o.opts.RestoreDelay, func() {
		if o.restore == r {
			o.runRestore()
		}
	})
	o.restore = r
}

// runRestore puts a scheduled snapshot back now. A newer press flushes the
// pending restore so its own snapshot sees the original content.
func (o *Orchestrator) runRestore() {
	r := o.restore
	if r == nil {
		return
	}
	o.restore = nil
	if r.timer != nil {
		r.timer.Stop()
	}

	if err := r.snapshot.Restore(o.clipboard); err != nil {
		metrics.Restores.WithLabelValues("failed").Inc()
		slog.Warn("Failed to restore clipboard", "paste_id", r.pasteID, "error", err)
		return
	}
	metrics.Restores.WithLabelValues("restored").Inc()
	slog.Debug("Clipboard restored", "paste_id", r.pasteID, "items", r.snapshot.Len())
}

func (o *Orchestrator) selectRecent(ctx context.Context, path string) {
	entry, ok := o.recent.Select(path)
	if !ok {
		slog.Info("Recent image is gone, removed from list", "path", path)
		o.publish()
		return
	}

	o.runRestore()
	inherited := o.cancelPending()

	rp := &pendingRecent{
		report:   PasteReport{ID: uuid.NewString(), Time: o.now(), Trigger: TriggerRecent, Path: path, HadImage: true},
		snapshot: inherited,
	}
	text, err := o.formatPath(ctx, path)
	if err != nil {
		slog.Warn("Failed to format path", "path", path, "error", err)
		o.restoreNow(inherited, rp.report.ID)
		return
	}
	if err := o.clipboard.SetText(text); err != nil {
		slog.Error("Failed to put path on clipboard", "path", path, "error", err)
		o.restoreNow(inherited, rp.report.ID)
		return
	}
	o.recent.Record(path, entry.Thumbnail)
	o.showPreview(path, entry.Thumbnail, o.opts.RecentPreviewDuration)
	o.publish()

	o.recentPaste = rp
	rp.timer = o.after(o.opts.RecentPasteDelay, func() {
		if o.recentPaste != rp {
			return
		}
		o.recentPaste = nil

		err := o.inject()
		rp.report.Latency = o.now().Sub(rp.report.Time)
		if err != nil {
			rp.report.Error = err.Error()
			slog.Warn("Failed to paste recent image", "path", path, "error", err)
		} else {
			rp.report.Injected = true
			if rp.snapshot != nil {
				o.scheduleRestore(*rp.snapshot, rp.report.ID)
			}
		}
		o.finish(rp.report)
	})
}

// restoreNow puts snap back without waiting, used when a paste is abandoned
// before it touched the target app
func (o *Orchestrator) restoreNow(snap *clipboard.Snapshot, pasteID string) {
	if snap == nil {
		return
	}
	o.restore = &pendingRestore{snapshot: *snap, pasteID: pasteID}
	o.runRestore()
}

func (o *Orchestrator) showPreview(path string, thumb image.Image, d time.Duration) {
	pv := &Preview{Path: path, Thumbnail: thumb, ShownAt: o.now()}
	o.preview = pv
	o.after(d, func() {
		if o.preview == pv {
			o.preview = nil
			o.publish()
		}
	})
}

func (o *Orchestrator) formatPath(ctx context.Context, path string) (string, error) {
	return postprocess.FormatPath(ctx, path, postprocess.Options{
		LeadingSpace: o.settings.InsertSpaceBeforePath(),
		ShellQuote:   o.settings.QuotePaths(),
	})
}

func (o *Orchestrator) sweep() {
	n, err := o.store.Sweep(o.opts.MaxAge)
	if err != nil {
		slog.Warn("Failed to sweep scratch dir", "error", err)
		return
	}
	metrics.SweptFiles.Add(float64(n))
}

func (o *Orchestrator) finish(r PasteReport) {
	switch {
	case r.Superseded:
		r.Outcome = OutcomeSuperseded
	case r.Injected:
		r.Outcome = OutcomeInjected
	case r.Error == platform.ErrPermissionDenied.Error():
		r.Outcome = OutcomeDenied
	default:
		r.Outcome = OutcomeFailed
	}
	metrics.Pastes.WithLabelValues(string(r.Trigger), string(r.Outcome)).Inc()

	o.lastPaste = &r
	if o.recorder != nil {
		if err := o.recorder.RecordPaste(r); err != nil {
			slog.Warn("Failed to record paste", "paste_id", r.ID, "error", err)
		}
	}
	o.publish()
}

func (o *Orchestrator) setPhase(p Phase) {
	if o.phase == p {
		return
	}
	o.phase = p
	o.publish()
}

func (o *Orchestrator) shutdown() {
	if o.captureCancel != nil {
		o.captureCancel()
		o.captureCancel = nil
	}
	if p := o.pending; p != nil && p.armed {
		p.armed = false
		p.timer.Stop()
		o.pending = nil
		if p.snapshot != nil {
			o.restore = &pendingRestore{snapshot: *p.snapshot, pasteID: p.report.ID}
		}
	}
	if r := o.recentPaste; r != nil {
		o.recentPaste = nil
		r.timer.Stop()
		if r.snapshot != nil && o.restore == nil {
			o.restore = &pendingRestore{snapshot: *r.snapshot, pasteID: r.report.ID}
		}
	}
	o.runRestore()
	if err := o.hotkeys.Unregister(); err != nil {
		slog.Warn("Failed to unregister hotkey", "error", err)
	}
}

func (o *Orchestrator) publish() {
	st := Status{
		HotkeyState:   o.hotkeys.State(),
		Detail:        o.detail,
		Alert:         o.alert,
		Phase:         o.phase,
		Recent:        o.recent.Entries(),
		Preview:       o.preview,
		LastPaste:     o.lastPaste,
		Accessibility: o.trusted,
		InsertSpace:   o.settings.InsertSpaceBeforePath(),
		QuotePaths:    o.settings.QuotePaths(),
	}
	if o.recording {
		st.HotkeyState = hotkey.StateRecording
	}
	b, ok := o.hotkeys.Active()
	if !ok {
		b = o.binding
	}
	st.Hotkey = b.String()
	st.HotkeyCombo = b.Combo()
	o.hub.set(st)
}
