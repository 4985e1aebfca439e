// Package engine provides the core game logic for the lane runner.
//
// The engine package implements the game mechanics including:
//   - Seeded row generation with non-overlapping trees and vehicles
//   - An endless, lazily extended row timeline
//   - A queue of validated grid moves animated one step at a time
//   - Continuous traffic that wraps around the world edges
//   - Bounding-box collision between the player and traffic
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameEngine owns a Timeline of generated rows, a
// PositionTracker holding the committed position and the move queue, and a
// StepAnimator that interpolates the current step. GameConfig defines the
// world parameters and is loaded from YAML or JSON files.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.QueueMove(engine.Forward)
//	frame, err := gameEngine.Tick(1.0 / 60)
//
// Game Rules:
//
// The player starts on the safe strip at row 0, lane 0. Every committed step
// forward raises the score by one. Trees block moves into their lane, the
// lane range bounds sideways moves and the player can never step behind row
// 0. Vehicles never block a move, they only end the run when their box
// overlaps the player's on the row the player stands on.
package engine
