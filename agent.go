package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"markestedt/pasteimagepath/config"
	"markestedt/pasteimagepath/hotkey"
	"markestedt/pasteimagepath/orchestrator"
	"markestedt/pasteimagepath/platform"
	"markestedt/pasteimagepath/recent"
	"markestedt/pasteimagepath/storage"
	"markestedt/pasteimagepath/tempstore"
	"markestedt/pasteimagepath/web"
)

// Agent wires the paste pipeline to its persistence and UI surfaces
type Agent struct {
	cfg  *config.Store
	db   *storage.DB
	orch *orchestrator.Orchestrator
	web  *web.Server
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config) (*Agent, error) {
	store := config.NewStore(cfg)
	snap := store.Snapshot()

	registry, err := recent.New(recent.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create recent registry: %w", err)
	}

	opts := orchestrator.DefaultOptions()
	a := &Agent{cfg: store}

	if snap.History.Enabled {
		db, err := storage.Open(filepath.Dir(cfg.Path()))
		if err != nil {
			slog.Warn("Paste history disabled", "error", err)
		} else {
			a.db = db
			hydrateRecent(db, registry, opts.MaxAge)
		}
	}

	deps := orchestrator.Deps{
		Hotkeys:   hotkey.NewManager(platform.NewHotkey()),
		Keyboard:  platform.NewKeyboard(),
		Clipboard: platform.NewClipboard(),
		Paster:    platform.NewPaster(),
		Access:    platform.NewAccessibility(),
		Store:     tempstore.New(snap.Storage.ScratchDir),
		Recent:    registry,
		Settings:  store,
		Binding:   store.Binding(),
	}
	if a.db != nil {
		deps.Recorder = &historyRecorder{db: a.db}
	}
	a.orch = orchestrator.New(deps, opts)

	if snap.Web.Enabled {
		a.web = web.NewServer(a.db, store, a.orch, snap.Web.Port)
	}

	slog.Info("Agent created",
		"hotkey", deps.Binding.String(),
		"scratch_dir", deps.Store.Dir(),
		"history", a.db != nil,
		"web", a.web != nil,
		"os", platform.OSVersion())
	return a, nil
}

// Orchestrator exposes the pipeline to the tray
func (a *Agent) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}

// WebURL is the dashboard address, or empty when the web UI is off
func (a *Agent) WebURL() string {
	if a.web == nil {
		return ""
	}
	return a.web.URL()
}

// Run starts the pipeline and the web server and blocks until ctx is done
func (a *Agent) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.orch.Run(gctx)
	})
	if a.web != nil {
		g.Go(func() error {
			// the dashboard is optional, keep pasting without it
			if err := a.web.Start(gctx); err != nil {
				slog.Error("Web server stopped", "error", err)
			}
			return nil
		})
	}

	slog.Info("Paste Image Path started", "hotkey", a.cfg.Binding().String())
	return g.Wait()
}

func (a *Agent) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("Failed to close history database", "error", err)
	}
}

// historyRecorder stores paste reports in the history database
type historyRecorder struct {
	db *storage.DB
}

func (h *historyRecorder) RecordPaste(r orchestrator.PasteReport) error {
	return h.db.SavePaste(pasteFromReport(r))
}

func pasteFromReport(r orchestrator.PasteReport) *storage.Paste {
	return &storage.Paste{
		PasteID:      r.ID,
		Timestamp:    r.Time,
		Trigger:      string(r.Trigger),
		Path:         r.Path,
		SourceType:   r.SourceType,
		HadImage:     r.HadImage,
		Outcome:      string(r.Outcome),
		Injected:     r.Injected,
		Forced:       r.Forced,
		LatencyMs:    r.Latency.Milliseconds(),
		ErrorMessage: r.Error,
	}
}

// hydrateRecent refills the recent list from history. Files that are gone
// or old enough to be swept are skipped.
func hydrateRecent(db *storage.DB, reg *recent.Registry, maxAge time.Duration) {
	paths, err := db.RecentImagePaths(recent.Capacity)
	if err != nil {
		slog.Warn("Failed to load recent images", "error", err)
		return
	}

	// oldest first so the newest ends up at the front
	for i := len(paths) - 1; i >= 0; i-- {
		path := paths[i]
		info, err := os.Stat(path)
		if err != nil || time.Since(info.ModTime()) > maxAge {
			continue
		}
		reg.Record(path, loadThumbnail(path))
	}
	slog.Debug("Recent images restored", "count", reg.Len())
}

func loadThumbnail(path string) image.Image {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		slog.Debug("Failed to decode recent image", "path", path, "error", err)
		return nil
	}
	return recent.Thumbnail(img, recent.ThumbnailSize, recent.ThumbnailSize)
}
