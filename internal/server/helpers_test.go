package server_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/chatrelay/internal/server"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const readTimeout = 2 * time.Second

type frame struct {
	Type      string   `json:"type"`
	Username  string   `json:"username"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	Users     []string `json:"users"`
}

// startServer runs the full route set behind an httptest server. The hub is
// shut down before the listener closes.
func startServer(t *testing.T, cfg server.Config) (*httptest.Server, *server.Hub) {
	t.Helper()
	hub := server.NewHub(cfg, slog.New(slog.DiscardHandler))
	testServer := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(testServer.Close)
	t.Cleanup(func() { _ = hub.Shutdown(2 * time.Second) })
	return testServer, hub
}

func buildWebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// dial opens a chat connection with a browser-like Origin header.
func dial(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	conn, err := connectWebSocket(serverURL, "http://localhost:8765")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func connectWebSocket(serverURL, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", origin)

	conn, resp, err := dialer.Dial(buildWebSocketURL(serverURL), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func sendJoin(t *testing.T, conn *websocket.Conn, username string) {
	t.Helper()
	send(t, conn, map[string]string{"type": "join", "username": username})
}

func sendChat(t *testing.T, conn *websocket.Conn, content string) {
	t.Helper()
	send(t, conn, map[string]string{"type": "message", "content": content})
}

func receive(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// expectAnnouncement reads the notice and roster pair sent on every
// membership change.
func expectAnnouncement(t *testing.T, conn *websocket.Conn, content string, users ...string) {
	t.Helper()
	notice := receive(t, conn)
	require.Equal(t, "system", notice.Type)
	require.Equal(t, content, notice.Content)
	require.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, notice.Timestamp)

	roster := receive(t, conn)
	require.Equal(t, "user_list", roster.Type)
	require.Equal(t, users, roster.Users)
}

// join sends a join frame and consumes the caller's own announcement.
func join(t *testing.T, conn *websocket.Conn, username string, rosterAfter ...string) {
	t.Helper()
	sendJoin(t, conn, username)
	expectAnnouncement(t, conn, username+" joined the chat", rosterAfter...)
}
