// Package service provides the business logic layer for the lane runner.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Move queueing with per-move events and stop reasons
//   - Frame ticking, both on request and for live sessions
//   - Move history tracking across restarts
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Engines are not safe for concurrent use, so every call
// that touches one runs under the service lock. Live sessions are advanced
// by the server clock through TickLive; the others only move when a client
// calls Tick.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	sessionInfo, err := gameService.CreateSession(ctx, "classic", false)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, sessionInfo.ID, "forward")
//	frames, err := gameService.Tick(ctx, sessionInfo.ID, 1.0/60, 30)
//
// Events:
//
// Every call reports what happened as GameEvents: queued and blocked moves,
// completed steps, new best scores, collisions and restarts. Event ids are
// random UUIDs so websocket clients can de-duplicate them.
package service
