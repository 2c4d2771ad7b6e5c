package systray

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"markestedt/pasteimagepath/hotkey"
	"markestedt/pasteimagepath/orchestrator"
	"markestedt/pasteimagepath/platform"
	"markestedt/pasteimagepath/recent"
)

// Agent is the running paste pipeline
type Agent interface {
	Status() orchestrator.Status
	Subscribe() (<-chan orchestrator.Status, func())
	Send(in orchestrator.Intent)
}

// SystrayManager manages the menu bar icon and menu
type SystrayManager struct {
	agent  Agent
	webURL string
	icon   []byte

	quit     chan struct{}
	quitOnce sync.Once

	mStatus      *systray.MenuItem
	mAlert       *systray.MenuItem
	mPreview     *systray.MenuItem
	mRecent      *systray.MenuItem
	mNoRecent    *systray.MenuItem
	recentSlots  []*systray.MenuItem
	mPaste       *systray.MenuItem
	mRecord      *systray.MenuItem
	mInsertSpace *systray.MenuItem
	mWebUI       *systray.MenuItem
	mAccess      *systray.MenuItem
	mQuit        *systray.MenuItem

	mu          sync.Mutex
	recentPaths []string
	icons       map[string][]byte
	recording   bool
}

// NewSystrayManager creates a tray for agent. webURL is empty when the web
// UI is disabled.
func NewSystrayManager(agent Agent, webURL string) *SystrayManager {
	return &SystrayManager{
		agent:  agent,
		webURL: webURL,
		icon:   appIcon(),
		quit:   make(chan struct{}),
		icons:  make(map[string][]byte),
	}
}

// Run shows the tray until ctx is done or the user quits. It blocks and
// must be called from the main thread.
func (m *SystrayManager) Run(ctx context.Context) {
	systray.Run(func() { m.onReady(ctx) }, m.onExit)
}

// WaitForQuit returns a channel that is closed when the user clicks Quit
func (m *SystrayManager) WaitForQuit() <-chan struct{} {
	return m.quit
}

func (m *SystrayManager) onReady(ctx context.Context) {
	systray.SetTemplateIcon(m.icon, m.icon)
	systray.SetTooltip("Paste Image Path")

	m.mStatus = systray.AddMenuItem("Starting…", "Hotkey status")
	m.mStatus.Disable()
	m.mAlert = systray.AddMenuItem("", "")
	m.mAlert.Disable()
	m.mAlert.Hide()
	m.mPreview = systray.AddMenuItem("", "Last saved image")
	m.mPreview.Disable()
	m.mPreview.Hide()
	systray.AddSeparator()

	m.mRecent = systray.AddMenuItem("Recent Images", "Paste the path of a recent image")
	m.mNoRecent = m.mRecent.AddSubMenuItem("No recent images", "")
	m.mNoRecent.Disable()
	m.recentSlots = make([]*systray.MenuItem, recent.Capacity)
	for i := range m.recentSlots {
		slot := m.mRecent.AddSubMenuItem("", "")
		slot.Hide()
		m.recentSlots[i] = slot
		go m.watchRecentSlot(ctx, i, slot)
	}

	m.mPaste = systray.AddMenuItem("Paste Image Path Now", "Convert the clipboard image and paste its path")
	m.mRecord = systray.AddMenuItem("Record New Hotkey", "Press a new key combination")
	m.mInsertSpace = systray.AddMenuItemCheckbox("Insert space before path", "Prefix pasted paths with a space", true)
	systray.AddSeparator()

	if m.webURL != "" {
		m.mWebUI = systray.AddMenuItem("Open Web UI", "Open the dashboard in a browser")
	}
	m.mAccess = systray.AddMenuItem("Open Accessibility Settings", "Allow the app to send Cmd+V")
	systray.AddSeparator()
	m.mQuit = systray.AddMenuItem("Quit", "Exit Paste Image Path")

	go m.watchStatus(ctx)
	go m.handleClicks(ctx)
}

func (m *SystrayManager) onExit() {
	slog.Info("System tray exited")
}

func (m *SystrayManager) handleClicks(ctx context.Context) {
	var webClicks <-chan struct{}
	if m.mWebUI != nil {
		webClicks = m.mWebUI.ClickedCh
	}

	for {
		select {
		case <-ctx.Done():
			systray.Quit()
			return
		case <-m.mPaste.ClickedCh:
			m.agent.Send(orchestrator.PasteNow{})
		case <-m.mRecord.ClickedCh:
			m.mu.Lock()
			recording := m.recording
			m.mu.Unlock()
			if recording {
				m.agent.Send(orchestrator.CancelRecording{})
			} else {
				m.agent.Send(orchestrator.RecordHotkey{})
			}
		case <-m.mInsertSpace.ClickedCh:
			m.agent.Send(orchestrator.SetInsertSpace{Enabled: !m.mInsertSpace.Checked()})
		case <-webClicks:
			openURL(m.webURL)
		case <-m.mAccess.ClickedCh:
			if err := platform.OpenAccessibilitySettings(); err != nil {
				slog.Error("Failed to open accessibility settings", "error", err)
			}
			m.agent.Send(orchestrator.RefreshStatus{})
		case <-m.mQuit.ClickedCh:
			slog.Info("User requested quit from system tray")
			m.quitOnce.Do(func() { close(m.quit) })
			systray.Quit()
			return
		}
	}
}

func (m *SystrayManager) watchRecentSlot(ctx context.Context, i int, slot *systray.MenuItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-slot.ClickedCh:
			m.mu.Lock()
			var path string
			if i < len(m.recentPaths) {
				path = m.recentPaths[i]
			}
			m.mu.Unlock()
			if path != "" {
				m.agent.Send(orchestrator.SelectRecentImage{Path: path})
			}
		}
	}
}

func (m *SystrayManager) watchStatus(ctx context.Context) {
	updates, stop := m.agent.Subscribe()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			m.render(st)
		}
	}
}

func (m *SystrayManager) render(st orchestrator.Status) {
	m.mStatus.SetTitle(statusLine(st))
	m.mu.Lock()
	m.recording = st.HotkeyState == hotkey.StateRecording
	m.mu.Unlock()
	if st.HotkeyState == hotkey.StateRecording {
		m.mRecord.SetTitle("Cancel Recording")
	} else {
		m.mRecord.SetTitle("Record New Hotkey")
	}

	if st.Alert != "" {
		m.mAlert.SetTitle("⚠ " + st.Alert)
		m.mAlert.Show()
	} else {
		m.mAlert.Hide()
	}

	if st.Preview != nil {
		m.mPreview.SetTitle("Saved " + filepath.Base(st.Preview.Path))
		if icon := m.iconFor(st.Preview.Path, st.Preview.Thumbnail); icon != nil {
			m.mPreview.SetIcon(icon)
		}
		m.mPreview.Show()
	} else {
		m.mPreview.Hide()
	}

	if st.InsertSpace {
		m.mInsertSpace.Check()
	} else {
		m.mInsertSpace.Uncheck()
	}

	if st.Accessibility {
		m.mAccess.Hide()
	} else {
		m.mAccess.Show()
	}

	m.renderRecent(st.Recent)
	systray.SetTooltip(tooltip(st))
}

func (m *SystrayManager) renderRecent(entries []recent.Entry) {
	m.mu.Lock()
	m.recentPaths = m.recentPaths[:0]
	live := make(map[string][]byte, len(entries))
	for _, e := range entries {
		m.recentPaths = append(m.recentPaths, e.Path)
		if icon, ok := m.icons[e.Path]; ok {
			live[e.Path] = icon
		}
	}
	m.icons = live
	m.mu.Unlock()

	if len(entries) == 0 {
		m.mNoRecent.Show()
	} else {
		m.mNoRecent.Hide()
	}

	for i, slot := range m.recentSlots {
		if i >= len(entries) {
			slot.Hide()
			continue
		}
		e := entries[i]
		slot.SetTitle(recentLabel(e))
		slot.SetTooltip(e.Path)
		if icon := m.iconFor(e.Path, e.Thumbnail); icon != nil {
			slot.SetIcon(icon)
		}
		slot.Show()
	}
}

// iconFor returns the PNG bytes of thumb, encoding each path once
func (m *SystrayManager) iconFor(path string, thumb image.Image) []byte {
	if thumb == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if icon, ok := m.icons[path]; ok {
		return icon
	}
	icon, err := encodePNG(thumb)
	if err != nil {
		slog.Warn("Failed to encode thumbnail", "path", path, "error", err)
		return nil
	}
	m.icons[path] = icon
	return icon
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func statusLine(st orchestrator.Status) string {
	switch st.HotkeyState {
	case hotkey.StateRecording:
		return "Press the new hotkey…"
	case hotkey.StateFailed:
		return "Hotkey unavailable"
	}
	if st.Phase == orchestrator.PhaseCapturing || st.Phase == orchestrator.PhasePasting {
		return fmt.Sprintf("Hotkey: %s (pasting)", st.Hotkey)
	}
	return "Hotkey: " + st.Hotkey
}

func tooltip(st orchestrator.Status) string {
	if st.Detail != "" {
		return "Paste Image Path: " + st.Detail
	}
	return "Paste Image Path (" + st.Hotkey + ")"
}

func recentLabel(e recent.Entry) string {
	name := filepath.Base(e.Path)
	if e.AddedAt.IsZero() {
		return name
	}
	return fmt.Sprintf("%s  %s", e.AddedAt.Format("15:04"), name)
}

// openURL opens url in the default browser
func openURL(url string) {
	slog.Info("Opening web UI", "url", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open web UI", "error", err)
	}
}
