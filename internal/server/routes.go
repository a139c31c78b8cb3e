// Package server wires HTTP handlers into a ServeMux for the chat relay via
// routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// /health is the liveness probe; every other path accepts chat connections.
func SetupRoutes(hub *Hub) *http.ServeMux {
	upgrader := newUpgrader(newOriginPolicy(hub.cfg.Origins(), hub.log))
	ws := WebSocketHandler(hub, upgrader)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/ws", ws)
	mux.HandleFunc("/", RootHandler(ws, hub.log))
	return mux
}
