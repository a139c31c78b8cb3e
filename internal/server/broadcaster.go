// Package server fans outbound messages out to every registered participant.
package server

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// BroadcastStats is a point-in-time copy of the broadcaster counters.
type BroadcastStats struct {
	Serialized uint64
	Delivered  uint64
	Failed     uint64
}

// Broadcaster delivers one message to every participant currently in the
// Registry. Delivery is best-effort: a failing recipient is logged and
// skipped, and its own connection loop is responsible for cleaning it up.
type Broadcaster struct {
	registry   *Registry
	log        *slog.Logger
	serialized atomic.Uint64
	delivered  atomic.Uint64
	failed     atomic.Uint64
}

// NewBroadcaster creates a Broadcaster reading recipients from registry.
func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// Broadcast serializes msg once and hands it to every registered sender.
// It never returns an error; an empty registry is a no-op.
func (b *Broadcaster) Broadcast(msg any) {
	handles := b.registry.SnapshotHandles()
	if len(handles) == 0 {
		return
	}

	payload, err := encodeFrame(msg)
	if err != nil {
		b.log.Error("Failed to serialize broadcast", "error", err)
		return
	}
	b.serialized.Add(1)

	for _, handle := range handles {
		if err := deliver(handle.Sender, payload); err != nil {
			b.failed.Add(1)
			b.log.Warn("Delivery failed", "id", handle.ID, "error", err)
			continue
		}
		b.delivered.Add(1)
	}
	b.log.Debug("Broadcast delivered", "recipients", len(handles), "bytes", len(payload))
}

// Stats returns the current counters.
func (b *Broadcaster) Stats() BroadcastStats {
	return BroadcastStats{
		Serialized: b.serialized.Load(),
		Delivered:  b.delivered.Load(),
		Failed:     b.failed.Load(),
	}
}

// deliver isolates one recipient so a panicking sender cannot abort the fan-out.
func deliver(sender Sender, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic in send: %v", r)
		}
	}()
	return sender.Send(payload)
}
