// Package remote talks to a running rounds server over HTTP and its
// websocket feed. A Client can stand in for the store, so the same round
// logic runs on a player's machine.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// SetTimeout changes the timeout of plain HTTP calls.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.Timeout = timeout
}

func (c *Client) GenerateID() string {
	return uuid.NewString()
}

type Created struct {
	GameID     string `json:"game_id"`
	GameCode   string `json:"game_code"`
	RoundID    string `json:"round_id"`
	RedirectTo string `json:"redirect_to"`
}

func (c *Client) NewGame(ctx context.Context, content game.Content) (Created, error) {
	var created Created
	err := c.do(ctx, http.MethodPost, "/api/games", content, &created)
	return created, err
}

func (c *Client) Join(ctx context.Context, code, name string) (game.Player, error) {
	var resp struct {
		PlayerID string `json:"player_id"`
		Name     string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, gamePath(code, "join"), map[string]string{"name": name}, &resp); err != nil {
		return game.Player{}, err
	}
	return game.Player{ID: resp.PlayerID, Name: resp.Name}, nil
}

func (c *Client) Game(ctx context.Context, code string) (*game.Game, error) {
	snap, err := c.Snapshot(ctx, code)
	if err != nil {
		return nil, err
	}
	return snap.Game, nil
}

func (c *Client) Snapshot(ctx context.Context, code string) (store.Snapshot, error) {
	var snap store.Snapshot
	if err := c.do(ctx, http.MethodGet, gamePath(code, ""), nil, &snap); err != nil {
		return store.Snapshot{}, err
	}
	if snap.Game == nil {
		return store.Snapshot{}, fmt.Errorf("game %s: empty snapshot", code)
	}
	return snap, nil
}

func (c *Client) Round(ctx context.Context, id string) (*game.Round, error) {
	var round game.Round
	if err := c.do(ctx, http.MethodGet, "/api/rounds/"+url.PathEscape(id), nil, &round); err != nil {
		return nil, err
	}
	return &round, nil
}

func (c *Client) Transact(ctx context.Context, code string, tx store.Tx) error {
	return c.do(ctx, http.MethodPost, gamePath(code, "transact"), tx, nil)
}

func gamePath(code, action string) string {
	path := "/api/games/" + url.PathEscape(code)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError maps API failures back onto the store errors they came from.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusConflict:
		if msg == "duplicate" {
			return store.ErrDuplicate
		}
		return store.ErrStale
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", store.ErrInvalid, msg)
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status code: %d, response: %s", e.Code, e.Message)
}

// Temporary reports whether retrying the call may succeed.
func Temporary(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= http.StatusInternalServerError || status.Code == http.StatusTooManyRequests
	}
	return false
}

// Subscribe follows the game's websocket feed. Only the latest snapshot is
// kept when the reader falls behind. The channel closes when ctx ends or
// the connection drops.
func (c *Client) Subscribe(ctx context.Context, code string) (<-chan store.Snapshot, error) {
	wsURL, err := c.wsURL(code)
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, statusError(resp)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	out := make(chan store.Snapshot, 1)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var snap store.Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Str("game_code", code).Msg("feed closed")
				}
				return
			}
			if snap.Game == nil {
				continue
			}
			offer(out, snap)
		}
	}()
	return out, nil
}

func offer(out chan store.Snapshot, snap store.Snapshot) {
	for {
		select {
		case out <- snap:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

func (c *Client) wsURL(code string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/games/" + url.PathEscape(code)
	return u.String(), nil
}
