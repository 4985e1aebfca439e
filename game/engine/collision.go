package engine

// Box is an axis-aligned bounding box in world units. X runs along the row
// (lane axis), Y across rows.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// CenteredBox builds a box of the given size around (cx, cy)
func CenteredBox(cx, cy, width, depth float64) Box {
	return Box{
		MinX: cx - width/2,
		MinY: cy - depth/2,
		MaxX: cx + width/2,
		MaxY: cy + depth/2,
	}
}

// Intersects reports whether two boxes overlap. Touching edges count.
func (b Box) Intersects(o Box) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// PlayerBox is the player's bounding box for the current frame
func PlayerBox(config *GameConfig, view PlayerView) Box {
	return CenteredBox(view.X, view.Y, config.PlayerSize, config.PlayerSize)
}

// VehicleBox is a vehicle's bounding box at its current offset
func VehicleBox(config *GameConfig, row *Row, v Vehicle) Box {
	y := float64(row.Index) * config.TileSize
	if v.Kind == Truck {
		return CenteredBox(v.Offset, y, config.TruckLength, config.TruckDepth)
	}
	return CenteredBox(v.Offset, y, config.CarLength, config.CarDepth)
}

// DetectCollision checks the player against every vehicle of row. Rows
// without traffic never collide. It returns the index of the first vehicle
// hit.
func DetectCollision(config *GameConfig, row *Row, player Box) (int, bool) {
	if row == nil || !row.IsRoad() {
		return -1, false
	}
	for i, v := range row.Vehicles {
		if VehicleBox(config, row, v).Intersects(player) {
			return i, true
		}
	}
	return -1, false
}
