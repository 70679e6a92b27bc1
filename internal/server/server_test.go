package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/racescreen/dashboard"
	"github.com/jpalmerr/racescreen/internal/raceapi"
	"github.com/jpalmerr/racescreen/internal/screen"
	"github.com/jpalmerr/racescreen/internal/store"
	"github.com/jpalmerr/racescreen/internal/view"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSelector records selections.
type mockSelector struct {
	mu  sync.Mutex
	ids []int
	err error
}

func (m *mockSelector) Select(poolID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.ids = append(m.ids, poolID)
	return nil
}

func (m *mockSelector) selected() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.ids...)
}

func pools() []raceapi.Pool {
	return []raceapi.Pool{{ID: 1, Name: "Family", ParticipantCount: 4}, {ID: 2, Name: "Office", ParticipantCount: 12}}
}

// loadedState is a state with pools and one highlighted standing.
func loadedState() screen.State {
	return screen.State{}.WithPools(pools()).WithLeaderboard(raceapi.LeaderboardResponse{
		Success:      true,
		HasStandings: true,
		UpdatedAt:    "2024-05-26T17:30:05Z",
		Standings: []raceapi.StandingEntry{
			{Name: "Alice", AveragePosition: 2.5, Drivers: []raceapi.Driver{{Name: "Newgarden", Number: "2", Position: 1}}},
			{Name: "Bob", AveragePosition: 7, Drivers: []raceapi.Driver{{Name: "Palou", Number: "10", Position: 7}}},
		},
	})
}

func newTestServer(st store.Store, sel Selector) *Server {
	return NewServer(st, sel, Options{View: view.Options{Location: time.UTC}}, testLogger())
}

func parseSSEEvents(body string) []stateResponse {
	var results []stateResponse
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			var result stateResponse
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &result); err == nil {
				results = append(results, result)
			}
		}
	}
	return results
}

// --- SSE ---

func TestHandleSSE_BasicFlow(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState())

	srv := newTestServer(ms, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 initial snapshot", len(events))
	}
	if events[0].Version != 1 {
		t.Errorf("Version = %d, want 1", events[0].Version)
	}
	if len(events[0].Standings) != 2 || events[0].Standings[0].Name != "Alice" {
		t.Errorf("Standings = %+v", events[0].Standings)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	ms := store.NewMemoryStore()
	srv := newTestServer(ms, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	ms.Update(screen.State{Error: screen.FetchFailedMessage})

	// give time for update to be written
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 2 {
		t.Fatalf("got %d events, want initial + update", len(events))
	}
	if events[1].Error != screen.FetchFailedMessage {
		t.Errorf("streamed Error = %q, want %q", events[1].Error, screen.FetchFailedMessage)
	}
}

func TestHandleSSE_ServerShutdown(t *testing.T) {
	ms := store.NewMemoryStore()
	srv := newTestServer(ms, nil)

	// when calling handleSSE directly (not through http.Server), the request
	// context stands in for the BaseContext-derived one
	serverCtx, serverCancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	serverCancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after server shutdown")
	}
}

func TestHandleSSE_NoGoroutineLeaks(t *testing.T) {
	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	ms := store.NewMemoryStore()
	srv := newTestServer(ms, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+2 { // small tolerance for runtime variance
		t.Errorf("potential goroutine leak: before=%d, after=%d", before, after)
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header { return n.header }

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) { n.statusCode = statusCode }

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore(), nil)

	w := &nonFlushWriter{header: make(http.Header)}
	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}
	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

// TestHandleSSE_ServerShutdownIntegration checks that a real SSE connection
// is closed when the server context is cancelled.
func TestHandleSSE_ServerShutdownIntegration(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState())
	srv := newTestServer(ms, nil)

	serverCtx, serverCancel := context.WithCancel(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.handleSSE(w, r.WithContext(serverCtx))
	})
	ts := httptest.NewServer(handler)
	defer ts.Close()

	connDone := make(chan error, 1)
	go func() {
		resp, err := ts.Client().Get(ts.URL)
		if err != nil {
			connDone <- err
			return
		}
		defer func() { _ = resp.Body.Close() }()

		buf := make([]byte, 1024)
		for {
			if _, err := resp.Body.Read(buf); err != nil {
				connDone <- nil // expected - connection closed
				return
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	serverCancel()

	select {
	case <-connDone:
	case <-time.After(3 * time.Second):
		t.Fatal("SSE connection did not close after server shutdown")
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState())
	srv := newTestServer(ms, nil)

	serverCtx, serverCancel := context.WithCancel(context.Background())

	numClients := 10
	var wg sync.WaitGroup
	started := make(chan struct{})
	var startedCount atomic.Int32

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)

			if startedCount.Add(1) == int32(numClients) {
				close(started)
			}
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("clients did not start in time")
	}

	time.Sleep(100 * time.Millisecond)
	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all handlers exited after shutdown")
	}
}

// --- JSON API ---

func TestHandleState(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState().WithSelection(2).WithFetchStarted())
	srv := newTestServer(ms, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got stateResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SelectedPoolID == nil || *got.SelectedPoolID != 2 {
		t.Errorf("SelectedPoolID = %v, want 2", got.SelectedPoolID)
	}
	if got.Phase != "loading" {
		t.Errorf("Phase = %q, want loading", got.Phase)
	}
	if got.Outcome != "success" {
		t.Errorf("Outcome = %q, want success", got.Outcome)
	}
	if len(got.Pools) != 2 || got.Pools[1].ParticipantCount != 12 {
		t.Errorf("Pools = %+v", got.Pools)
	}
}

func TestHandleState_EmptyEncodesArrays(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	body := rec.Body.String()
	for _, want := range []string{`"pools":[]`, `"standings":[]`, `"selected_pool_id":null`, `"phase":"idle"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}
}

func TestHandleView(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState())
	srv := newTestServer(ms, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/view", nil))

	var got viewResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
	if got.Timestamp != "5:30:05 PM" {
		t.Errorf("Timestamp = %q, want %q", got.Timestamp, "5:30:05 PM")
	}
	if len(got.Entries) != 2 || !got.Entries[0].Highlight || got.Entries[1].Highlight {
		t.Errorf("Entries = %+v", got.Entries)
	}
}

func TestHandleSelect(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		form       url.Values
		selectErr  error
		wantStatus int
		wantIDs    []int
	}{
		{name: "query param", target: "/api/select?pool_id=2", wantStatus: http.StatusAccepted, wantIDs: []int{2}},
		{name: "form field", target: "/api/select", form: url.Values{"pool_id": {"7"}}, wantStatus: http.StatusAccepted, wantIDs: []int{7}},
		{name: "not an integer", target: "/api/select?pool_id=abc", wantStatus: http.StatusBadRequest},
		{name: "missing", target: "/api/select", wantStatus: http.StatusBadRequest},
		{name: "stopped", target: "/api/select?pool_id=1", selectErr: screen.ErrStopped, wantStatus: http.StatusServiceUnavailable},
		{name: "other failure", target: "/api/select?pool_id=1", selectErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := &mockSelector{err: tt.selectErr}
			srv := newTestServer(store.NewMemoryStore(), sel)

			var body io.Reader
			if tt.form != nil {
				body = strings.NewReader(tt.form.Encode())
			}
			req := httptest.NewRequest(http.MethodPost, tt.target, body)
			if tt.form != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			got := sel.selected()
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("selected = %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Errorf("selected = %v, want %v", got, tt.wantIDs)
				}
			}
		})
	}
}

func TestHandleSelect_NoSelector(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/select?pool_id=1", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleSelect_GetNotAllowed(t *testing.T) {
	sel := &mockSelector{}
	srv := newTestServer(store.NewMemoryStore(), sel)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/select?pool_id=1", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if len(sel.selected()) != 0 {
		t.Error("GET must not change the selection")
	}
}

func TestHandleHealthz(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_CORSRestrictedOrigins(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), nil, Options{CORSOrigins: []string{"http://allowed.test"}}, testLogger())
	h := srv.Handler()

	for origin, want := range map[string]string{
		"http://allowed.test": "http://allowed.test",
		"http://other.test":   "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", origin, got, want)
		}
	}
}

// --- Dashboard ---

func dashboardServer(st store.Store, assets fstest.MapFS, title string) *Server {
	return NewServer(st, nil, Options{
		Assets: assets,
		View:   view.Options{Title: title, Location: time.UTC},
	}, testLogger())
}

func TestHandleDashboard_EmbeddedTemplate(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState().WithSelection(2))
	srv := NewServer(ms, nil, Options{Assets: dashboard.Assets, View: view.Options{Location: time.UTC}}, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>" + view.DefaultTitle + "</title>",
		`<option value="2" selected>Office</option>`,
		`<option value="1">Family</option>`,
		`class="entry highlight"`,
		"1 - Alice",
		"Avg Pos: 2.50",
		"1 - #2 Newgarden",
		`data-version="1"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestHandleDashboard_CustomTitle(t *testing.T) {
	assets := fstest.MapFS{dashboardTemplate: {Data: []byte("<title>{{.View.Title}}</title>")}}
	srv := dashboardServer(store.NewMemoryStore(), assets, "Office 500")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if body := rec.Body.String(); body != "<title>Office 500</title>" {
		t.Errorf("body = %q", body)
	}
}

func TestHandleDashboard_EscapesContent(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(screen.State{}.WithLeaderboard(raceapi.LeaderboardResponse{
		Success:      true,
		HasStandings: true,
		Standings:    []raceapi.StandingEntry{{Name: "<script>alert('x')</script>"}},
	}))
	assets := fstest.MapFS{dashboardTemplate: {Data: []byte("{{range .View.Entries}}{{.Heading}}{{end}}|{{.View.Title}}")}}
	srv := dashboardServer(ms, assets, "Health & Status")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("entry names should be HTML-escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") || !strings.Contains(body, "Health &amp; Status") {
		t.Errorf("expected escaped HTML, got: %s", body)
	}
}

func TestHandleDashboard_TemplateNotFound(t *testing.T) {
	srv := dashboardServer(store.NewMemoryStore(), fstest.MapFS{}, "")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandleDashboard_NilAssets(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore(), nil)

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestHandler_NonRootPath(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), nil, Options{Assets: dashboard.Assets}, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for non-root path, got %d", http.StatusNotFound, rec.Code)
	}
}

// --- WebSocket ---

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) stateResponse {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got stateResponse
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return got
}

func TestHandleWebSocket_StreamsSnapshots(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState())
	srv := newTestServer(ms, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)

	initial := readSnapshot(t, conn)
	if initial.Version != 1 || len(initial.Standings) != 2 {
		t.Errorf("initial = version %d, %d standings", initial.Version, len(initial.Standings))
	}

	ms.Update(screen.State{Error: "no data"})

	next := readSnapshot(t, conn)
	if next.Version != 2 || next.Error != "no data" {
		t.Errorf("next = version %d error %q", next.Version, next.Error)
	}
}

func TestHandleWebSocket_SelectMessage(t *testing.T) {
	sel := &mockSelector{}
	srv := newTestServer(store.NewMemoryStore(), sel)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readSnapshot(t, conn)

	// malformed messages are ignored
	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(map[string]int{"pool_id": 2}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := sel.selected(); len(got) == 1 {
			if got[0] != 2 {
				t.Errorf("selected = %v, want [2]", got)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("selection was not received")
}

func TestHandleWebSocket_ClosesOnShutdown(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore(), nil)

	serverCtx, serverCancel := context.WithCancel(context.Background())
	ts := httptest.NewUnstartedServer(srv.Handler())
	ts.Config.BaseContext = func(net.Listener) context.Context { return serverCtx }
	ts.Start()
	defer ts.Close()

	conn := dialWS(t, ts)
	readSnapshot(t, conn)

	serverCancel()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going-away close", err)
	}
}

// --- Server Start ---

func TestStart_AvailablePort_ReturnsNil(t *testing.T) {
	// port 0 = OS assigns available port. Valid for the internal server,
	// though the public RaceScreen API validates port > 0.
	srv := newTestServer(store.NewMemoryStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Errorf("Start() on available port returned error: %v", err)
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(store.NewMemoryStore(), nil, Options{Port: port}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), nil, Options{Port: -1}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() with invalid port should return error")
	}
}

// --- Benchmark ---

func BenchmarkHandleState(b *testing.B) {
	ms := store.NewMemoryStore()
	ms.Update(loadedState())
	h := newTestServer(ms, nil).Handler()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	}
}
