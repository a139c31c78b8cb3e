// Package server coordinates connection lifecycle, frame handling, and
// membership announcements for the chat relay via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub owns the Registry and Broadcaster shared by every connection and tracks
// live connections so they can be closed on shutdown.
type Hub struct {
	cfg         Config
	log         *slog.Logger
	registry    *Registry
	broadcaster *Broadcaster
	now         func() time.Time

	mutex   sync.Mutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewHub creates a Hub with an empty Registry.
func NewHub(cfg Config, log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry()
	return &Hub{
		cfg:         cfg,
		log:         log,
		registry:    registry,
		broadcaster: NewBroadcaster(registry, log),
		now:         time.Now,
		clients:     make(map[*Client]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Registry returns the hub's participant registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Broadcaster returns the hub's broadcaster.
func (h *Hub) Broadcaster() *Broadcaster {
	return h.broadcaster
}

// ConnectionCount reports how many connections are open, joined or not.
func (h *Hub) ConnectionCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Serve takes ownership of an upgraded connection and starts its pumps.
// Connections arriving after Shutdown has begun are closed immediately.
func (h *Hub) Serve(conn *websocket.Conn, addr string) {
	client := NewClient(conn, h, addr)

	h.mutex.Lock()
	if h.ctx.Err() != nil {
		h.mutex.Unlock()
		client.closeConnection()
		return
	}
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.wg.Add(2)
	h.mutex.Unlock()

	h.log.Debug("Connection opened", "client", addr, "id", client.id, "connections", clientCount)

	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handleFrame applies one inbound frame. Malformed frames and panics are
// logged and swallowed; only a returned error ends the connection.
func (h *Hub) handleFrame(c *Client, raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Recovered from panic while handling frame", "client", c.addr, "id", c.id, "panic", r)
			err = nil
		}
	}()

	var envelope Envelope
	if jsonErr := json.Unmarshal(raw, &envelope); jsonErr != nil {
		h.log.Warn("Invalid JSON frame", "client", c.addr, "frame", string(raw), "error", jsonErr)
		return nil
	}

	switch envelope.Type {
	case TypeJoin:
		return h.join(c, envelope.Username)
	case TypeMessage:
		h.chat(c, envelope.Content)
	default:
		h.log.Debug("Ignoring frame with unknown type", "client", c.addr, "type", envelope.Type)
	}
	return nil
}

func (h *Hub) join(c *Client, requestedName string) error {
	if c.name != "" {
		h.log.Warn("Ignoring repeated join", "client", c.addr, "name", c.name, "requested", requestedName)
		return nil
	}

	name, err := h.registry.Join(c.id, c, requestedName)
	if err != nil {
		return err
	}
	c.name = name

	h.announce(fmt.Sprintf("%s joined the chat", name))
	h.log.Info("Participant connected", "name", name, "client", c.addr, "participants", h.registry.Len())
	return nil
}

func (h *Hub) chat(c *Client, content string) {
	if c.name == "" {
		h.log.Debug("Dropping message from connection that has not joined", "client", c.addr)
		return
	}
	h.broadcaster.Broadcast(NewChatMessage(c.name, content, h.timestamp()))
}

// disconnect is the cleanup path of a connection loop. It announces the
// departure only if the connection had joined. A connection that never
// joined, including one rejected as a duplicate id, leaves the registry alone.
func (h *Hub) disconnect(c *Client) {
	if c.name == "" {
		c.closeSend()
		h.forget(c)
		return
	}
	if name, ok := h.registry.Leave(c.id); ok {
		h.announce(fmt.Sprintf("%s left the chat", name))
		h.log.Info("Participant disconnected", "name", name, "client", c.addr, "participants", h.registry.Len())
	}
	c.closeSend()
	h.forget(c)
}

func (h *Hub) forget(c *Client) {
	h.mutex.Lock()
	delete(h.clients, c)
	h.mutex.Unlock()
}

// announce sends a system notice followed by the refreshed roster.
func (h *Hub) announce(content string) {
	h.broadcaster.Broadcast(NewSystemMessage(content, h.timestamp()))
	h.broadcaster.Broadcast(NewRosterMessage(h.registry.SnapshotNames()))
}

func (h *Hub) timestamp() string {
	return h.now().Format(timestampLayout)
}

// shutdownClients closes every live connection; each read pump then runs its
// normal cleanup.
func (h *Hub) shutdownClients() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			client.closeConnection()
		}
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops accepting connections, closes the live ones, and waits for
// their pumps to finish or for timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.mutex.Lock()
	h.cancel()
	h.mutex.Unlock()

	h.shutdownClients()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		stats := h.broadcaster.Stats()
		h.log.Info("Hub shutdown completed successfully",
			"broadcasts", stats.Serialized, "delivered", stats.Delivered, "failed", stats.Failed)
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
