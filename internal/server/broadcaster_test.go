package server

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/Tyrowin/chatrelay/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type panicSender struct{}

func (panicSender) Send([]byte) error { panic("connection torn down") }

func TestBroadcaster_Empty_Registry_Is_Noop(t *testing.T) {
	broadcaster := NewBroadcaster(NewRegistry(), slog.New(slog.DiscardHandler))

	broadcaster.Broadcast(NewSystemMessage("nobody here", "10:00:00"))

	require.Equal(t, BroadcastStats{}, broadcaster.Stats())
}

func TestBroadcaster_Delivers_Same_Payload_To_Everyone(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.New(slog.DiscardHandler))

	var received [][]byte
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		sender := mocks.NewMockSender(ctrl)
		sender.EXPECT().Send(gomock.Any()).DoAndReturn(func(payload []byte) error {
			received = append(received, payload)
			return nil
		}).Times(1)
		_, err := registry.Join(name, sender, name)
		req.NoError(err)
	}

	broadcaster.Broadcast(NewChatMessage("Alice", "hi", "10:00:00"))

	req.Len(received, 3)
	for _, payload := range received {
		req.JSONEq(`{"type":"message","username":"Alice","content":"hi","timestamp":"10:00:00"}`, string(payload))
	}
	req.Equal(BroadcastStats{Serialized: 1, Delivered: 3}, broadcaster.Stats())
}

func TestBroadcaster_Failing_Recipient_Does_Not_Stop_Others(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.New(slog.DiscardHandler))

	broken := mocks.NewMockSender(ctrl)
	broken.EXPECT().Send(gomock.Any()).Return(errors.New("broken pipe")).Times(1)
	healthy := mocks.NewMockSender(ctrl)
	healthy.EXPECT().Send(gomock.Any()).Return(nil).Times(2)

	_, err := registry.Join("broken", broken, "Broken")
	req.NoError(err)
	_, err = registry.Join("panics", panicSender{}, "Panics")
	req.NoError(err)
	_, err = registry.Join("healthy-1", healthy, "Healthy1")
	req.NoError(err)
	_, err = registry.Join("healthy-2", healthy, "Healthy2")
	req.NoError(err)

	req.NotPanics(func() {
		broadcaster.Broadcast(NewSystemMessage("hello", "10:00:00"))
	})

	req.Equal(BroadcastStats{Serialized: 1, Delivered: 2, Failed: 2}, broadcaster.Stats())
	// The broadcaster never evicts; cleanup belongs to each connection loop
	req.Equal(4, registry.Len())
}

func TestBroadcaster_Unserializable_Message_Is_Dropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, slog.New(slog.DiscardHandler))
	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any()).Times(0)
	_, err := registry.Join("a", sender, "Alice")
	require.NoError(t, err)

	broadcaster.Broadcast(make(chan int))

	require.Equal(t, BroadcastStats{}, broadcaster.Stats())
}
