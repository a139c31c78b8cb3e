// Package server implements the realtime group-chat relay.
//
// Clients connect over WebSocket, announce a display name with a join frame,
// and exchange short text messages that are broadcast to every joined
// participant. The Registry tracks who has joined, the Broadcaster fans each
// outbound frame out to every participant, and the Hub runs one event loop per
// connection and guarantees cleanup when a connection ends.
package server
