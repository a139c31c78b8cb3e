// Package server keeps the Registry, the single source of truth for which
// connections have joined the chat.
package server

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
)

const placeholderIDLength = 8

// Participant is one joined connection.
type Participant struct {
	ID          string
	DisplayName string
	sender      Sender
}

// Handle pairs a connection id with its outbound handle.
type Handle struct {
	ID     string
	Sender Sender
}

// Registry maps connection ids to participants. Joins, leaves and snapshots
// are mutually exclusive, so a snapshot never observes a half-applied change.
// Iteration order is join order.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]*Participant
	order        []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*Participant),
	}
}

// Join inserts a participant for id and returns its display name. An empty
// requested name is replaced by a placeholder derived from id.
func (r *Registry) Join(id string, sender Sender, requestedName string) (string, error) {
	name := requestedName
	if name == "" {
		name = placeholderName(id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[id]; exists {
		return "", fmt.Errorf("join %s: %w", id, ErrDuplicateID)
	}
	r.participants[id] = &Participant{ID: id, DisplayName: name, sender: sender}
	r.order = append(r.order, id)
	return name, nil
}

// Leave removes id and returns its display name. The second return value is
// false when id was not registered, so calling Leave twice is harmless.
func (r *Registry) Leave(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participant, ok := r.participants[id]
	if !ok {
		return "", false
	}
	delete(r.participants, id)
	r.order = lo.Without(r.order, id)
	return participant.DisplayName, true
}

// SnapshotNames returns the display names of all participants in join order.
func (r *Registry) SnapshotNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) string {
		return r.participants[id].DisplayName
	})
}

// SnapshotHandles returns the outbound handles of all participants in join order.
func (r *Registry) SnapshotHandles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) Handle {
		return Handle{ID: id, Sender: r.participants[id].sender}
	})
}

// Len reports the number of joined participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

func placeholderName(id string) string {
	if len(id) > placeholderIDLength {
		id = id[:placeholderIDLength]
	}
	return "User" + id
}
