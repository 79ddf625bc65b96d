package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"party-rounds/internal/config"
	"party-rounds/internal/store"

	"github.com/jonboulle/clockwork"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// newTestAPI serves a memory store on a fake clock with server timers off,
// so every stage change in a test is an explicit request.
func newTestAPI(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.ServerTimers = false
	cfg.RateLimitPerMinute = 1000
	srv := New(store.NewMemory(), cfg, WithClock(clockwork.NewFakeClockAt(testEpoch)))
	t.Cleanup(srv.Close)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func decodeSnapshot(t *testing.T, resp *http.Response) store.Snapshot {
	t.Helper()
	var snap store.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Game == nil {
		t.Fatalf("snapshot without game")
	}
	return snap
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func assertString(t *testing.T, value any) string {
	t.Helper()
	s, ok := value.(string)
	if !ok || s == "" {
		t.Fatalf("expected non-empty string, got %#v", value)
	}
	return s
}

// createGame returns the new game's code and first round id.
func createGame(t *testing.T, ts *httptest.Server) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games", nil)
	assertStatus(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	return assertString(t, body["game_code"]), assertString(t, body["round_id"])
}

func joinPlayer(t *testing.T, ts *httptest.Server, code, name string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/join", map[string]string{"name": name})
	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	return assertString(t, body["player_id"])
}

func getSnapshot(t *testing.T, ts *httptest.Server, code string) store.Snapshot {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+code, nil)
	assertStatus(t, resp, http.StatusOK)
	return decodeSnapshot(t, resp)
}

func advance(t *testing.T, ts *httptest.Server, code, stage string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/advance", map[string]string{"stage": stage})
	assertStatus(t, resp, http.StatusOK)
	return decodeBody(t, resp)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(raw)
}
