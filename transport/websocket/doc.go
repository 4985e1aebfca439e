// Package websocket provides WebSocket transport for the lane runner.
//
// The websocket package implements:
//   - Session-scoped broadcasting of state updates and live frames
//   - Inbound move and restart commands from clients
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// A central Hub owns every connection. Its Run loop is the only writer of
// the client registry; each connection gets a read pump and a write pump.
// Broadcasts are queued without blocking the caller, and a client whose
// buffer is full is dropped.
//
// Message Protocol:
//
// Incoming commands:
//
//	{"action": "move", "direction": "forward"}
//	{"action": "restart"}
//
// Outgoing messages carry an event name: state_update, frame, game_over,
// move_result or error. Frames come from the server runner for live
// sessions; state updates follow REST calls and restarts.
//
// Usage:
//
//	hub := websocket.NewHub(gameService)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
