package main

import (
	"fmt"

	"github.com/wricardo/lane-runner/game/engine"
)

// runResult summarises one headless run
type runResult struct {
	Score     int
	Steps     int
	Elapsed   float64
	Status    engine.Status
	Collision *engine.CollisionInfo
}

func (r runResult) String() string {
	s := fmt.Sprintf("score %d after %d steps in %.1fs (%s)", r.Score, r.Steps, r.Elapsed, r.Status)
	if r.Collision != nil {
		s += fmt.Sprintf(", hit by a %s on row %d", r.Collision.Kind, r.Collision.Row)
	}
	return s
}

// playRun ticks eng by dt until the run ends or maxTime world seconds pass,
// queueing a move whenever the player is idle
func playRun(eng *engine.GameEngine, dt, maxTime float64) (runResult, error) {
	var result runResult
	for result.Elapsed < maxTime && !eng.IsGameOver() {
		if len(eng.PendingMoves()) == 0 {
			if d, ok := chooseMove(eng); ok {
				eng.QueueMove(d)
			}
		}

		frame, err := eng.Tick(dt)
		if err != nil {
			return result, err
		}
		result.Steps += frame.StepsCompleted
		result.Elapsed = frame.Elapsed
	}

	snap := eng.Snapshot()
	result.Score = snap.Score
	result.Status = snap.Status
	result.Collision = snap.Collision
	return result, nil
}

// chooseMove steps forward when the next row stays clear for the whole
// step, walks toward an open tile when a tree blocks the way, dodges
// sideways when traffic is about to reach the current tile, and otherwise
// waits
func chooseMove(eng *engine.GameEngine) (engine.Direction, bool) {
	cfg := eng.GetConfig()
	pos := eng.GetPlayerPosition()
	window := cfg.StepDuration * 1.5
	probe := cfg.StepDuration / 4

	rowAt := func(index int) *engine.Row {
		rows := eng.RowsBetween(index, index)
		if len(rows) == 0 {
			return nil
		}
		return &rows[0]
	}
	current := rowAt(pos.Row)
	next := rowAt(pos.Row + 1)

	safeAt := func(row *engine.Row, lane int) bool {
		return engine.LaneClearFor(cfg, row, lane, window, probe)
	}
	sideways := func(d engine.Direction) (int, bool) {
		_, dLane := d.Delta()
		lane := pos.Lane + dLane
		return lane, eng.CanMove(d) && safeAt(current, lane)
	}

	if eng.CanMove(engine.Forward) {
		if safeAt(next, pos.Lane) {
			return engine.Forward, true
		}
	} else if next != nil {
		if d, ok := towardOpenLane(cfg, next, pos.Lane); ok {
			if _, ok := sideways(d); ok {
				return d, true
			}
		}
	}

	if safeAt(current, pos.Lane) {
		return "", false
	}

	// Traffic is coming: take the side lane with the widest gap
	best, bestGap := engine.Direction(""), -1.0
	for _, d := range []engine.Direction{engine.Left, engine.Right} {
		if lane, ok := sideways(d); ok {
			if gap := engine.NearestVehicleGap(cfg, current, lane); gap > bestGap {
				best, bestGap = d, gap
			}
		}
	}
	if best != "" {
		return best, true
	}

	if eng.CanMove(engine.Backward) && safeAt(rowAt(pos.Row-1), pos.Lane) {
		return engine.Backward, true
	}
	return "", false
}

// towardOpenLane returns the sideways direction of the closest lane whose
// tile on row has no tree. Ties go left.
func towardOpenLane(cfg *engine.GameConfig, row *engine.Row, lane int) (engine.Direction, bool) {
	from := engine.GridPosition{Row: row.Index, Lane: lane}
	best, bestDist := 0, -1
	for l := cfg.MinLane; l <= cfg.MaxLane; l++ {
		if l == lane || row.HasTree(l) {
			continue
		}
		d := engine.ManhattanDistance(from, engine.GridPosition{Row: row.Index, Lane: l})
		if bestDist < 0 || d < bestDist {
			best, bestDist = l, d
		}
	}
	switch {
	case bestDist < 0:
		return "", false
	case best < lane:
		return engine.Left, true
	default:
		return engine.Right, true
	}
}
