//go:generate go run go.uber.org/mock/mockgen -source=sender.go -destination=../mocks/mock_sender.go -package=mocks
package server

// Sender is the outbound handle of one connection. Send must not block: it
// either queues the frame for delivery or fails immediately.
type Sender interface {
	Send(payload []byte) error
}
