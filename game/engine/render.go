package engine

import (
	"fmt"
	"math"
)

// RenderRow draws row as one text line, one character per lane, prefixed
// with its index, type and traffic direction:
//
//	    4 car    >> |===CCC=====|
//
// Trees are 'T', cars 'C', trucks 'K', empty road '=' and open ground '.'.
// The player is drawn as '@' when standing on the row. Vehicles are placed
// at the lane nearest their current offset.
func RenderRow(config *GameConfig, row *Row, player GridPosition) string {
	lanes := config.LaneCount()
	cells := make([]byte, lanes)
	for i := range cells {
		cells[i] = '.'
		if row.IsRoad() {
			cells[i] = '='
		}
	}

	for _, t := range row.Trees {
		if i := t.Lane - config.MinLane; i >= 0 && i < lanes {
			cells[i] = 'T'
		}
	}

	for _, v := range row.Vehicles {
		mark := byte('C')
		if v.Kind == Truck {
			mark = 'K'
		}
		center := int(math.Round(v.Offset / config.TileSize))
		for l := center - v.HalfWidth; l <= center+v.HalfWidth; l++ {
			if i := l - config.MinLane; i >= 0 && i < lanes {
				cells[i] = mark
			}
		}
	}

	if player.Row == row.Index {
		if i := player.Lane - config.MinLane; i >= 0 && i < lanes {
			cells[i] = '@'
		}
	}

	arrow := "  "
	if row.IsRoad() {
		arrow = "<<"
		if row.Direction {
			arrow = ">>"
		}
	}
	return fmt.Sprintf("%5d %-6s %s |%s|", row.Index, row.Type, arrow, cells)
}
