package engine

import (
	"errors"
	"fmt"
)

// ErrMissingVehicle marks a road row without vehicle data. Rows are only
// built by the generator, so this is a programming error in whoever
// populated the row.
var ErrMissingVehicle = errors.New("road row has no vehicles")

// AdvanceVehicle moves one vehicle along its row and wraps it to the far
// edge once it leaves [begin, end].
func AdvanceVehicle(v *Vehicle, direction bool, speed, dt, begin, end float64) {
	if direction {
		v.Offset += speed * dt
		if v.Offset > end {
			v.Offset = begin
		}
		return
	}
	v.Offset -= speed * dt
	if v.Offset < begin {
		v.Offset = end
	}
}

// AdvanceTraffic advances every vehicle of every live road row by dt
func AdvanceTraffic(rows []Row, config *GameConfig, dt float64) error {
	begin, end := config.WrapBounds()
	for i := range rows {
		row := &rows[i]
		if !row.IsRoad() {
			continue
		}
		if len(row.Vehicles) == 0 {
			return fmt.Errorf("row %d (%s): %w", row.Index, row.Type, ErrMissingVehicle)
		}
		for j := range row.Vehicles {
			AdvanceVehicle(&row.Vehicles[j], row.Direction, row.Speed, dt, begin, end)
		}
	}
	return nil
}

// vehicleViews lists the world position of every live vehicle
func vehicleViews(rows []Row, tileSize float64) []VehicleView {
	var views []VehicleView
	for _, row := range rows {
		if !row.IsRoad() {
			continue
		}
		y := float64(row.Index) * tileSize
		for j, v := range row.Vehicles {
			views = append(views, VehicleView{
				Row:   row.Index,
				Index: j,
				Kind:  v.Kind,
				Color: v.Color,
				X:     v.Offset,
				Y:     y,
			})
		}
	}
	return views
}
