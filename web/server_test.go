package web

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/pasteimagepath/config"
	"markestedt/pasteimagepath/orchestrator"
	"markestedt/pasteimagepath/platform"
	"markestedt/pasteimagepath/recent"
	"markestedt/pasteimagepath/storage"
)

type fakeAgent struct {
	mu      sync.Mutex
	status  orchestrator.Status
	sent    []orchestrator.Intent
	updates chan orchestrator.Status
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{
		status:  orchestrator.Status{Hotkey: "^⌥V", HotkeyCombo: "ctrl+option+v", Phase: orchestrator.PhaseIdle},
		updates: make(chan orchestrator.Status, 4),
	}
}

func (a *fakeAgent) Status() orchestrator.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *fakeAgent) Subscribe() (<-chan orchestrator.Status, func()) {
	return a.updates, func() {}
}

func (a *fakeAgent) Send(in orchestrator.Intent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, in)
}

func (a *fakeAgent) setStatus(st orchestrator.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = st
}

func (a *fakeAgent) intents() []orchestrator.Intent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]orchestrator.Intent(nil), a.sent...)
}

type testServer struct {
	srv   *Server
	agent *fakeAgent
	cfg   *config.Store
	db    *storage.DB
}

func newTestServer(t *testing.T, history bool) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}

	ts := &testServer{agent: newFakeAgent(), cfg: config.NewStore(cfg)}
	if history {
		db, err := storage.Open(dir)
		if err != nil {
			t.Fatalf("storage.Open failed: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		ts.db = db
	}
	ts.srv = NewServer(ts.db, ts.cfg, ts.agent, 0)
	return ts
}

const testOrigin = "http://localhost:7331"

func newRequest(method, path, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, testOrigin+path, nil)
	}
	req := httptest.NewRequest(method, testOrigin+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.serve(newRequest(method, path, body))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var st orchestrator.Status
	decode(t, rec, &st)
	if st.Hotkey != "^⌥V" || st.Phase != orchestrator.PhaseIdle {
		t.Fatalf("status = %+v", st)
	}
}

func TestIndexServed(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Paste Image Path") {
		t.Fatalf("index = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetConfig(t *testing.T) {
	ts := newTestServer(t, false)

	var got configResponse
	decode(t, ts.do(t, http.MethodGet, "/api/config", ""), &got)
	if got.Hotkey != platform.DefaultBinding.Combo() || !got.InsertSpaceBeforePath || got.WebPort != 7331 {
		t.Fatalf("config = %+v", got)
	}
}

func TestPutConfigSendsLiveSettings(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPut, "/api/config", `{"hotkey":"cmd+shift+k","insertSpaceBeforePath":false,"quotePaths":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		RestartRequired bool `json:"restartRequired"`
	}
	decode(t, rec, &resp)
	if resp.RestartRequired {
		t.Fatal("live settings should not need a restart")
	}

	want := []orchestrator.Intent{
		orchestrator.SetInsertSpace{Enabled: false},
		orchestrator.SetQuotePaths{Enabled: true},
		orchestrator.SetHotkey{Binding: platform.Binding{KeyCode: platform.KeyK, Modifiers: platform.ModCommand | platform.ModShift}},
	}
	got := ts.agent.intents()
	if len(got) != len(want) {
		t.Fatalf("intents = %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("intent %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestPutConfigRejectsBadInput(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name string
		body string
	}{
		{"no modifier", `{"hotkey":"v"}`},
		{"unknown key", `{"hotkey":"cmd+nope"}`},
		{"bad port", `{"webPort":70000}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(t, http.MethodPut, "/api/config", tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status code = %d, want 400", rec.Code)
			}
		})
	}
	if n := len(ts.agent.intents()); n != 0 {
		t.Fatalf("%d intents sent for rejected requests", n)
	}
}

func TestPutConfigSavesRestartSettings(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPut, "/api/config", `{"webPort":8080,"historyEnabled":false}`)
	var resp struct {
		RestartRequired bool `json:"restartRequired"`
	}
	decode(t, rec, &resp)
	if !resp.RestartRequired {
		t.Fatal("restartRequired = false")
	}

	cfg := ts.cfg.Snapshot()
	if cfg.Web.Port != 8080 || cfg.History.Enabled {
		t.Fatalf("config not updated: %+v", cfg)
	}
	reloaded, err := config.Load(cfg.Path())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Web.Port != 8080 {
		t.Fatalf("saved port = %d", reloaded.Web.Port)
	}
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, true)
	for _, id := range []string{"a", "b"} {
		p := &storage.Paste{PasteID: id, Timestamp: time.Now(), Trigger: "hotkey", Outcome: "injected", Injected: true}
		if err := ts.db.SavePaste(p); err != nil {
			t.Fatal(err)
		}
	}

	var page struct {
		Pastes []storage.Paste `json:"pastes"`
		Total  int             `json:"total"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/history?limit=1", ""), &page)
	if page.Total != 2 || len(page.Pastes) != 1 {
		t.Fatalf("page = %+v", page)
	}

	path := "/api/history/" + strconv.FormatInt(page.Pastes[0].ID, 10)
	if rec := ts.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/history/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d, want 400", rec.Code)
	}
}

func TestHistoryDisabled(t *testing.T) {
	ts := newTestServer(t, false)

	for _, path := range []string{"/api/history", "/api/stats"} {
		if rec := ts.do(t, http.MethodGet, path, ""); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s = %d, want 503", path, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, true)
	p := &storage.Paste{PasteID: "a", Timestamp: time.Now(), Trigger: "hotkey", HadImage: true, Outcome: "injected", Injected: true, LatencyMs: 90}
	if err := ts.db.SavePaste(p); err != nil {
		t.Fatal(err)
	}

	var resp struct {
		Days    int                  `json:"days"`
		Overall storage.OverallStats `json:"overall"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/stats?days=30", ""), &resp)
	if resp.Days != 30 || resp.Overall.TotalPastes != 1 || resp.Overall.ImagePastes != 1 {
		t.Fatalf("stats = %+v", resp)
	}
}

func TestRecentImages(t *testing.T) {
	ts := newTestServer(t, false)
	thumb := recent.Thumbnail(image.NewRGBA(image.Rect(0, 0, 10, 10)), recent.ThumbnailSize, recent.ThumbnailSize)
	ts.agent.setStatus(orchestrator.Status{
		Recent: []recent.Entry{{Path: "/tmp/clip-1.png", Thumbnail: thumb}},
	})

	var list struct {
		Recent []recent.Entry `json:"recent"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/recent", ""), &list)
	if len(list.Recent) != 1 || list.Recent[0].Path != "/tmp/clip-1.png" {
		t.Fatalf("recent = %+v", list)
	}

	if rec := ts.do(t, http.MethodPost, "/api/recent", `{"path":"/tmp/other.png"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path = %d, want 404", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/recent", `{"path":"/tmp/clip-1.png"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("select = %d", rec.Code)
	}
	got := ts.agent.intents()
	if len(got) != 1 || got[0] != (orchestrator.SelectRecentImage{Path: "/tmp/clip-1.png"}) {
		t.Fatalf("intents = %#v", got)
	}

	rec := ts.do(t, http.MethodGet, "/api/recent/thumbnail?path=/tmp/clip-1.png", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("thumbnail = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != recent.ThumbnailSize {
		t.Fatalf("thumbnail width = %d", img.Bounds().Dx())
	}
}

func TestActionEndpoints(t *testing.T) {
	ts := newTestServer(t, false)

	calls := []struct {
		method string
		path   string
		want   orchestrator.Intent
	}{
		{http.MethodPost, "/api/paste", orchestrator.PasteNow{}},
		{http.MethodPost, "/api/hotkey/record", orchestrator.RecordHotkey{}},
		{http.MethodDelete, "/api/hotkey/record", orchestrator.CancelRecording{}},
	}
	for i, c := range calls {
		if rec := ts.do(t, c.method, c.path, ""); rec.Code != http.StatusAccepted {
			t.Fatalf("%s %s = %d", c.method, c.path, rec.Code)
		}
		if got := ts.agent.intents(); got[i] != c.want {
			t.Fatalf("%s %s sent %#v", c.method, c.path, got[i])
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	ts.do(t, http.MethodGet, "/api/status", "")

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `pasteimagepath_request_duration_seconds_count{endpoint="/api/status"`) {
		t.Fatal("request duration not recorded for /api/status")
	}
}

func TestWebSocketPushesStatus(t *testing.T) {
	ts := newTestServer(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.srv.startBackground(ctx)

	hs := httptest.NewServer(ts.srv.Handler())
	defer hs.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() Message {
		t.Helper()
		var raw struct {
			Type MessageType     `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&raw); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		return Message{Type: raw.Type, Data: raw.Data}
	}

	if m := read(); m.Type != MessageTypeStatus {
		t.Fatalf("first message = %s, want status", m.Type)
	}

	ts.agent.updates <- orchestrator.Status{
		Phase:     orchestrator.PhaseIdle,
		LastPaste: &orchestrator.PasteReport{ID: "p1", Outcome: orchestrator.OutcomeInjected},
	}
	if m := read(); m.Type != MessageTypeStatus {
		t.Fatalf("second message = %s, want status", m.Type)
	}
	m := read()
	if m.Type != MessageTypePaste {
		t.Fatalf("third message = %s, want paste", m.Type)
	}
	var rep orchestrator.PasteReport
	if err := json.Unmarshal(m.Data.(json.RawMessage), &rep); err != nil || rep.ID != "p1" {
		t.Fatalf("paste = %+v, %v", rep, err)
	}
}

func TestRejectsCrossOriginRequests(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		host    string
		headers map[string]string
		want    int
	}{
		{
			name: "foreign origin paste", method: http.MethodPost, path: "/api/paste",
			headers: map[string]string{"Origin": "https://evil.example", "Content-Type": "text/plain"},
			want:    http.StatusForbidden,
		},
		{
			name: "foreign origin record", method: http.MethodPost, path: "/api/hotkey/record",
			headers: map[string]string{"Origin": "https://evil.example"},
			want:    http.StatusForbidden,
		},
		{
			name: "cross-site fetch", method: http.MethodPost, path: "/api/paste",
			headers: map[string]string{"Sec-Fetch-Site": "cross-site"},
			want:    http.StatusForbidden,
		},
		{
			name: "other loopback port", method: http.MethodPost, path: "/api/paste",
			headers: map[string]string{"Origin": "http://localhost:8080"},
			want:    http.StatusForbidden,
		},
		{
			name: "rebound host", method: http.MethodGet, path: "/api/history",
			host: "evil.example:7331",
			want: http.StatusForbidden,
		},
		{
			name: "own page", method: http.MethodPost, path: "/api/paste",
			headers: map[string]string{"Origin": testOrigin, "Sec-Fetch-Site": "same-origin"},
			want:    http.StatusAccepted,
		},
		{
			name: "no browser headers", method: http.MethodGet, path: "/api/status",
			want: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false)
			req := newRequest(tt.method, tt.path, "")
			if tt.host != "" {
				req.Host = tt.host
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := ts.serve(req)
			if rec.Code != tt.want {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusForbidden && len(ts.agent.intents()) != 0 {
				t.Fatalf("rejected request reached the agent: %#v", ts.agent.intents())
			}
		})
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t, false)
	hs := httptest.NewServer(ts.srv.Handler())
	defer hs.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http")+"/ws", header)
	if err == nil {
		conn.Close()
		t.Fatal("websocket from a foreign origin was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v, want 403", resp)
	}
}
