package engine

import "math"

// Rows around the player included in a Snapshot
const (
	NearbyBehind = 3
	NearbyAhead  = 10
)

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to GridPosition) int {
	return abs(from.Row-to.Row) + abs(from.Lane-to.Lane)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// directionBetween recovers the direction of a single-tile step
func directionBetween(from, to GridPosition) Direction {
	switch {
	case to.Row > from.Row:
		return Forward
	case to.Row < from.Row:
		return Backward
	case to.Lane < from.Lane:
		return Left
	case to.Lane > from.Lane:
		return Right
	}
	return ""
}

// NearestVehicleGap returns the horizontal distance between the edge of the
// player box standing on lane and the closest vehicle box of row. Overlap
// yields 0. Rows without traffic return +Inf.
func NearestVehicleGap(config *GameConfig, row *Row, lane int) float64 {
	if row == nil || !row.IsRoad() {
		return math.Inf(1)
	}
	x := float64(lane) * config.TileSize
	player := CenteredBox(x, float64(row.Index)*config.TileSize, config.PlayerSize, config.PlayerSize)

	best := math.Inf(1)
	for _, v := range row.Vehicles {
		box := VehicleBox(config, row, v)
		var gap float64
		switch {
		case box.MaxX < player.MinX:
			gap = player.MinX - box.MaxX
		case box.MinX > player.MaxX:
			gap = box.MinX - player.MaxX
		}
		best = math.Min(best, gap)
	}
	return best
}

// LaneClearFor reports whether a player standing on lane of row would not be
// hit by any vehicle during the next window seconds. Vehicles are simulated
// on a copy of the row in steps of at most dt.
func LaneClearFor(config *GameConfig, row *Row, lane int, window, dt float64) bool {
	if row == nil || !row.IsRoad() {
		return true
	}
	if dt <= 0 {
		dt = config.StepDuration / 4
	}

	sim := row.clone()
	begin, end := config.WrapBounds()
	player := CenteredBox(float64(lane)*config.TileSize, float64(row.Index)*config.TileSize,
		config.PlayerSize, config.PlayerSize)

	for t := 0.0; ; t += dt {
		if _, hit := DetectCollision(config, &sim, player); hit {
			return false
		}
		if t >= window {
			return true
		}
		for j := range sim.Vehicles {
			AdvanceVehicle(&sim.Vehicles[j], sim.Direction, sim.Speed, dt, begin, end)
		}
	}
}
