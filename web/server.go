package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"markestedt/pasteimagepath/config"
	"markestedt/pasteimagepath/metrics"
	"markestedt/pasteimagepath/orchestrator"
	"markestedt/pasteimagepath/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// Agent is the running paste pipeline
type Agent interface {
	Status() orchestrator.Status
	Subscribe() (<-chan orchestrator.Status, func())
	Send(in orchestrator.Intent)
}

// Server represents the web server
type Server struct {
	db     *storage.DB
	config *config.Store
	agent  Agent
	port   int
	hub    *Hub
	router chi.Router
}

// NewServer creates a new web server. db is nil when history is disabled.
func NewServer(db *storage.DB, cfg *config.Store, agent Agent, port int) *Server {
	s := &Server{
		db:     db,
		config: cfg,
		agent:  agent,
		port:   port,
		hub:    NewHub(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(localOnly)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)

		r.Group(func(r chi.Router) {
			r.Use(s.requireHistory)
			r.Get("/history", s.handleGetHistory)
			r.Delete("/history/{id}", s.handleDeleteHistory)
			r.Get("/stats", s.handleStats)
		})

		r.Get("/recent", s.handleGetRecent)
		r.Post("/recent", s.handleSelectRecent)
		r.Get("/recent/thumbnail", s.handleThumbnail)
		r.Post("/hotkey/record", s.handleRecordHotkey)
		r.Delete("/hotkey/record", s.handleCancelRecording)
		r.Post("/paste", s.handlePaste)
	})

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to load static files: %v", err))
	}
	r.Handle("/*", http.FileServer(http.FS(staticFS)))

	return r
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.startBackground(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting web server", "port", s.port, "url", s.URL())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down web server: %w", err)
		}
		return nil
	}
}

// URL is the address the UI is served on
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

func (s *Server) startBackground(ctx context.Context) {
	go s.hub.Run(ctx)
	go s.forwardStatus(ctx)
}

// forwardStatus pushes every status change to websocket clients, plus a
// paste message whenever a new paste report appears
func (s *Server) forwardStatus(ctx context.Context) {
	updates, stop := s.agent.Subscribe()
	defer stop()

	var lastPasteID string
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			s.hub.BroadcastMessage(Message{Type: MessageTypeStatus, Data: st})
			if st.LastPaste != nil && st.LastPaste.ID != lastPasteID {
				lastPasteID = st.LastPaste.ID
				s.hub.BroadcastMessage(Message{Type: MessageTypePaste, Data: st.LastPaste})
			}
		}
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	// the first frame is the current status so a new page needs no extra fetch
	client.sendMessage(Message{Type: MessageTypeStatus, Data: s.agent.Status()})
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// instrument records request durations by route pattern
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestDuration.
			WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func (s *Server) requireHistory(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.db == nil {
			http.Error(w, "History is disabled", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// localOnly rejects requests that were not made by a page this server
// served. Binding to loopback is not enough: a browser forwards requests from
// any site it has open, and a rebound DNS name can point at 127.0.0.1.
func localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackHost(r.Host) || !sameOrigin(r) {
			slog.Warn("Rejected cross-origin request",
				"method", r.Method, "path", r.URL.Path, "host", r.Host, "origin", r.Header.Get("Origin"))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameOrigin accepts requests without browser origin headers (curl, the CLI)
// and browser requests whose origin is this server
func sameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return false
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "http" {
		return false
	}
	return isLoopbackHost(u.Host) && strings.EqualFold(u.Host, r.Host)
}

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
