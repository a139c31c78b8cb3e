// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in chat page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

func newUpgrader(policy *originPolicy) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.checkOrigin,
	}
}

// WebSocketHandler upgrades GET requests to WebSocket and hands the
// connection to the hub, which runs its event loop.
func WebSocketHandler(hub *Hub, upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("WebSocket upgrade failed", "client", r.RemoteAddr, "error", err)
			return
		}

		hub.Serve(conn, r.RemoteAddr)
	}
}

// HealthHandler answers load balancer probes. It never upgrades.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK\n")
}

// RootHandler treats any upgrade request as a chat connection and serves the
// chat page for a plain GET on "/".
func RootHandler(ws http.HandlerFunc, log *slog.Logger) http.HandlerFunc {
	page := ChatPageHandler(log)
	return func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			ws(w, r)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page(w, r)
	}
}

// ChatPageHandler serves a minimal browser client for the chat protocol.
func ChatPageHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := fmt.Fprint(w, chatPage); err != nil {
			log.Warn("Error writing HTML response", "error", err)
		}
	}
}

const chatPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Chat</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; display: flex; gap: 20px; }
        #main { flex: 1; }
        #messages { border: 1px solid #ccc; height: 360px; padding: 10px; overflow-y: scroll; background-color: #f9f9f9; }
        #users { width: 180px; border: 1px solid #ccc; padding: 10px; }
        .system { color: gray; font-style: italic; }
        .time { color: #999; font-size: 0.8em; margin-right: 6px; }
        input[type="text"] { width: 300px; padding: 5px; margin: 10px 10px 0 0; }
    </style>
</head>
<body>
    <div id="main">
        <div>
            <input type="text" id="nameInput" placeholder="Your name">
            <button id="joinButton" onclick="join()">Join</button>
        </div>
        <div id="messages"></div>
        <div>
            <input type="text" id="messageInput" placeholder="Type a message..." disabled>
            <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        </div>
    </div>
    <div id="users"><strong>Online</strong><ul id="userList"></ul></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');

        function addLine(text, timestamp, cls) {
            const line = document.createElement('div');
            if (cls) { line.className = cls; }
            const time = document.createElement('span');
            time.className = 'time';
            time.textContent = timestamp || '';
            line.appendChild(time);
            line.appendChild(document.createTextNode(text));
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function renderUsers(users) {
            const list = document.getElementById('userList');
            list.innerHTML = '';
            users.forEach(function(name) {
                const item = document.createElement('li');
                item.textContent = name;
                list.appendChild(item);
            });
        }

        function join() {
            if (ws) { return; }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                const username = document.getElementById('nameInput').value.trim();
                ws.send(JSON.stringify(username ? {type: 'join', username: username} : {type: 'join'}));
                messageInput.disabled = false;
                sendButton.disabled = false;
            };
            ws.onmessage = function(event) {
                const data = JSON.parse(event.data);
                if (data.type === 'system') {
                    addLine(data.content, data.timestamp, 'system');
                } else if (data.type === 'message') {
                    addLine(data.username + ': ' + data.content, data.timestamp);
                } else if (data.type === 'user_list') {
                    renderUsers(data.users);
                }
            };
            ws.onclose = function() {
                addLine('Connection closed', '', 'system');
                messageInput.disabled = true;
                sendButton.disabled = true;
                renderUsers([]);
                ws = null;
            };
        }

        function sendMessage() {
            const content = messageInput.value.trim();
            if (content && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({type: 'message', content: content}));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
