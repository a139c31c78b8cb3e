package server

import "errors"

var (
	// ErrDuplicateID is returned by Registry.Join when the connection id is
	// already registered.
	ErrDuplicateID = errors.New("connection id already registered")
	// ErrSendBufferFull is returned when a client's outbound queue cannot take
	// another frame.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrClientClosed is returned when sending to a client whose connection has
	// already been torn down.
	ErrClientClosed = errors.New("client closed")
)
