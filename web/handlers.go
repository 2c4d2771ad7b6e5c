package web

import (
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"markestedt/pasteimagepath/config"
	"markestedt/pasteimagepath/orchestrator"
	"markestedt/pasteimagepath/platform"
	"markestedt/pasteimagepath/recent"
	"markestedt/pasteimagepath/storage"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleStatus returns the current agent status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Status())
}

type configResponse struct {
	Hotkey                string `json:"hotkey"`
	HotkeyDisplay         string `json:"hotkeyDisplay"`
	InsertSpaceBeforePath bool   `json:"insertSpaceBeforePath"`
	QuotePaths            bool   `json:"quotePaths"`
	ScratchDir            string `json:"scratchDir"`
	HistoryEnabled        bool   `json:"historyEnabled"`
	TrayEnabled           bool   `json:"trayEnabled"`
	WebEnabled            bool   `json:"webEnabled"`
	WebPort               int    `json:"webPort"`
	LogLevel              string `json:"logLevel"`
}

// handleGetConfig returns the current configuration
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Snapshot()
	b := cfg.Binding()

	writeJSON(w, http.StatusOK, configResponse{
		Hotkey:                b.Combo(),
		HotkeyDisplay:         b.String(),
		InsertSpaceBeforePath: cfg.Paste.InsertSpaceBeforePath,
		QuotePaths:            cfg.Paste.QuotePaths,
		ScratchDir:            cfg.Storage.ScratchDir,
		HistoryEnabled:        cfg.History.Enabled,
		TrayEnabled:           cfg.Tray.Enabled,
		WebEnabled:            cfg.Web.Enabled,
		WebPort:               cfg.Web.Port,
		LogLevel:              cfg.LogLevel,
	})
}

// handlePutConfig updates the configuration. Live settings go through the
// agent. The rest is saved and applies on the next start.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hotkey                *string `json:"hotkey"`
		InsertSpaceBeforePath *bool   `json:"insertSpaceBeforePath"`
		QuotePaths            *bool   `json:"quotePaths"`
		ScratchDir            *string `json:"scratchDir"`
		HistoryEnabled        *bool   `json:"historyEnabled"`
		TrayEnabled           *bool   `json:"trayEnabled"`
		WebEnabled            *bool   `json:"webEnabled"`
		WebPort               *int    `json:"webPort"`
		LogLevel              *string `json:"logLevel"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var binding *platform.Binding
	if req.Hotkey != nil {
		b, err := platform.ParseBinding(*req.Hotkey)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		binding = &b
	}
	if req.WebPort != nil && (*req.WebPort < 1 || *req.WebPort > 65535) {
		http.Error(w, "Invalid port", http.StatusBadRequest)
		return
	}

	restart := req.ScratchDir != nil || req.HistoryEnabled != nil || req.TrayEnabled != nil ||
		req.WebEnabled != nil || req.WebPort != nil || req.LogLevel != nil
	if restart {
		err := s.config.Update(func(c *config.Config) {
			if req.ScratchDir != nil {
				c.Storage.ScratchDir = *req.ScratchDir
			}
			if req.HistoryEnabled != nil {
				c.History.Enabled = *req.HistoryEnabled
			}
			if req.TrayEnabled != nil {
				c.Tray.Enabled = *req.TrayEnabled
			}
			if req.WebEnabled != nil {
				c.Web.Enabled = *req.WebEnabled
			}
			if req.WebPort != nil {
				c.Web.Port = *req.WebPort
			}
			if req.LogLevel != nil {
				c.LogLevel = *req.LogLevel
			}
		})
		if err != nil {
			slog.Error("Failed to save config", "error", err)
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}
	}

	if req.InsertSpaceBeforePath != nil {
		s.agent.Send(orchestrator.SetInsertSpace{Enabled: *req.InsertSpaceBeforePath})
	}
	if req.QuotePaths != nil {
		s.agent.Send(orchestrator.SetQuotePaths{Enabled: *req.QuotePaths})
	}
	if binding != nil {
		s.agent.Send(orchestrator.SetHotkey{Binding: *binding})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"restartRequired": restart,
	})
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	overall, err := s.db.GetOverallStats(days)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	triggers, err := s.db.GetTriggerStats(days)
	if err != nil {
		slog.Error("Failed to get trigger stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":     days,
		"overall":  overall,
		"daily":    daily,
		"triggers": triggers,
	})
}

// handleGetHistory returns paginated paste history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, 500)
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	pastes, err := s.db.GetPastes(limit, offset)
	if err != nil {
		slog.Error("Failed to get pastes", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}
	if pastes == nil {
		pastes = []storage.Paste{}
	}

	total, err := s.db.GetPasteCount()
	if err != nil {
		slog.Error("Failed to get paste count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pastes": pastes,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleDeleteHistory deletes a paste by ID
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.db.DeletePaste(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Paste not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete paste", "error", err, "id", id)
		http.Error(w, "Failed to delete paste", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleGetRecent lists the recent images, newest first
func (s *Server) handleGetRecent(w http.ResponseWriter, r *http.Request) {
	entries := s.agent.Status().Recent
	if entries == nil {
		entries = []recent.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recent": entries})
}

func (s *Server) findRecent(path string) (recent.Entry, bool) {
	for _, e := range s.agent.Status().Recent {
		if e.Path == path {
			return e, true
		}
	}
	return recent.Entry{}, false
}

// handleSelectRecent pastes one of the recent image paths
func (s *Server) handleSelectRecent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, ok := s.findRecent(req.Path); !ok {
		http.Error(w, "Not a recent image", http.StatusNotFound)
		return
	}

	s.agent.Send(orchestrator.SelectRecentImage{Path: req.Path})
	accepted(w)
}

// handleThumbnail serves the thumbnail of a recent image as PNG
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	e, ok := s.findRecent(r.URL.Query().Get("path"))
	if !ok || e.Thumbnail == nil {
		http.Error(w, "Thumbnail not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, e.Thumbnail); err != nil {
		slog.Debug("Failed to write thumbnail", "error", err)
	}
}

func (s *Server) handleRecordHotkey(w http.ResponseWriter, r *http.Request) {
	s.agent.Send(orchestrator.RecordHotkey{})
	accepted(w)
}

func (s *Server) handleCancelRecording(w http.ResponseWriter, r *http.Request) {
	s.agent.Send(orchestrator.CancelRecording{})
	accepted(w)
}

// handlePaste runs a paste as if the hotkey had been pressed
func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	s.agent.Send(orchestrator.PasteNow{})
	accepted(w)
}
