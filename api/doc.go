// Package api provides HTTP REST API handlers for the lane runner.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session, body {"config_id": "dense", "live": true}
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=&limit=&live=)
//   - DELETE /api/sessions?id=a&id=b - Delete several sessions
//   - GET /api/sessions/unified - Several sessions side by side (?sessionIds= or ?configName=)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete one session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Snapshot of the run
//   - GET /api/sessions/{id}/rows?from=&to= - Generated rows, default around the player
//   - POST /api/sessions/{id}/move - Queue a move, body {"direction": "forward"}
//   - POST /api/sessions/{id}/bulk-move - Queue moves in order, body {"moves": [...]}
//   - POST /api/sessions/{id}/tick - Advance the world, body {"dt": 0.05, "frames": 10}
//   - POST /api/sessions/{id}/restart - Start a new run
//   - GET /api/sessions/{id}/history - Completed steps (?page=&limit=&order=asc|desc)
//
// Configuration:
//   - GET /api/configs - List configurations
//   - POST /api/configs?id= - Save a configuration; omitted fields take classic values
//   - GET /api/configs/{name} - Get one configuration
//
// Other:
//   - GET /healthz - Liveness probe
//   - GET /ws?session={id} - WebSocket for state updates, live frames and commands
//
// Move, bulk-move, tick and restart push the resulting state to the
// session's websocket subscribers.
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions and
// configurations map to 404, invalid directions, ticks and configurations
// to 400, and engine faults to 500.
package api
