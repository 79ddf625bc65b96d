package server

import (
	"strings"
	"testing"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/store"

	"github.com/gorilla/websocket"
)

func dialGame(t *testing.T, url, code string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/ws/games/" + code
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshotWS(t *testing.T, conn *websocket.Conn, timeout time.Duration) store.Snapshot {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var snap store.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read websocket snapshot: %v", err)
	}
	if snap.Game == nil {
		t.Fatalf("snapshot without game")
	}
	return snap
}

func TestWebsocketSendsCurrentSnapshot(t *testing.T) {
	_, ts := newTestAPI(t)
	code, roundID := createGame(t, ts)

	conn := dialGame(t, ts.URL, code)
	snap := readSnapshotWS(t, conn, 5*time.Second)
	if snap.Game.GameCode != code || snap.Game.RoundID != roundID {
		t.Fatalf("unexpected first snapshot %#v", snap.Game)
	}
	if snap.Round == nil || snap.Round.ID != roundID {
		t.Fatalf("expected linked round in snapshot")
	}
}

func TestWebsocketFollowsStageChanges(t *testing.T) {
	srv, ts := newTestAPI(t)
	code, _ := createGame(t, ts)

	conn := dialGame(t, ts.URL, code)
	readSnapshotWS(t, conn, 5*time.Second)

	advance(t, ts, code, string(game.StagePrep))
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap := readSnapshotWS(t, conn, time.Until(deadline))
		if snap.Game.CurrentStage == game.StageGame {
			break
		}
	}
	if srv.ws.Count(code) != 1 {
		t.Fatalf("expected one tracked connection, got %d", srv.ws.Count(code))
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	_, ts := newTestAPI(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/ZZZZZZ"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected status 404, got %d", resp.StatusCode)
	}
}

func TestCloseDropsConnections(t *testing.T) {
	srv, ts := newTestAPI(t)
	code, _ := createGame(t, ts)

	conn := dialGame(t, ts.URL, code)
	readSnapshotWS(t, conn, 5*time.Second)
	srv.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to close")
	}
}
