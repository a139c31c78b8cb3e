// Package server defines the wire envelope exchanged with chat clients and
// small helpers reused across client and hub logic.
package server

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Message type tags carried in the "type" field of every frame.
const (
	TypeJoin     = "join"
	TypeMessage  = "message"
	TypeSystem   = "system"
	TypeUserList = "user_list"
)

const timestampLayout = "15:04:05"

// Envelope is the inbound frame sent by a client. Only the fields relevant to
// the frame's type are set.
type Envelope struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Content  string `json:"content,omitempty"`
}

// SystemMessage is an informational notice sent to every participant.
type SystemMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ChatMessage relays one participant's text to everyone.
type ChatMessage struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// RosterMessage carries the display names of all joined participants.
type RosterMessage struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// NewSystemMessage builds a system notice.
func NewSystemMessage(content, timestamp string) SystemMessage {
	return SystemMessage{Type: TypeSystem, Content: content, Timestamp: timestamp}
}

// NewChatMessage builds a relayed chat message.
func NewChatMessage(username, content, timestamp string) ChatMessage {
	return ChatMessage{Type: TypeMessage, Username: username, Content: content, Timestamp: timestamp}
}

// NewRosterMessage builds a roster update. A nil slice is sent as an empty list.
func NewRosterMessage(users []string) RosterMessage {
	if users == nil {
		users = []string{}
	}
	return RosterMessage{Type: TypeUserList, Users: users}
}

// encodeFrame serializes v as a single JSON text frame. HTML characters are
// left unescaped so names and content reach clients exactly as typed.
func encodeFrame(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
