// Package session provides session management for the lane runner.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Bulk deletion with every failure reported
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns its own engine instance, so runs never share a world.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive. Generated IDs are drawn from crypto/rand and retried
// when they collide with a stored session.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
//	err = manager.DeleteMany("ab12", "cd34")
//
// Sessions are kept in memory only. CleanupExpiredSessions removes the ones
// nobody touched within the given age.
package session
