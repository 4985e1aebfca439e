package engine

import (
	"math"
	"testing"
)

func TestBoxIntersects(t *testing.T) {
	a := Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	tests := []struct {
		name string
		b    Box
		want bool
	}{
		{"overlap", Box{5, 5, 15, 15}, true},
		{"contained", Box{2, 2, 3, 3}, true},
		{"touching edge", Box{10, 0, 20, 10}, true},
		{"apart on x", Box{11, 0, 20, 10}, false},
		{"apart on y", Box{0, 11, 10, 20}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
			if got := tt.b.Intersects(a); got != tt.want {
				t.Errorf("Intersects is not symmetric")
			}
		})
	}
}

func TestVehicleBoxSizes(t *testing.T) {
	config := createValidConfig()
	row := &Row{Index: 2, Type: Truck}

	car := VehicleBox(config, row, Vehicle{Kind: Car, Offset: 42})
	if car.MaxX-car.MinX != config.CarLength || car.MaxY-car.MinY != config.CarDepth {
		t.Errorf("Unexpected car box %+v", car)
	}
	truck := VehicleBox(config, row, Vehicle{Kind: Truck, Offset: 42})
	if truck.MaxX-truck.MinX != config.TruckLength || truck.MaxY-truck.MinY != config.TruckDepth {
		t.Errorf("Unexpected truck box %+v", truck)
	}
	if (truck.MinY+truck.MaxY)/2 != 2*config.TileSize {
		t.Errorf("Truck box not centred on its row: %+v", truck)
	}
}

func TestDetectCollision(t *testing.T) {
	config := createValidConfig()
	row := &Row{
		Index: 1, Type: Car, Direction: true, Speed: 100,
		Vehicles: []Vehicle{{Kind: Car, Offset: -200}, {Kind: Car, Offset: 100}},
	}
	y := config.TileSize

	tests := []struct {
		name string
		x    float64
		hit  int
	}{
		{"clear", 0, -1},
		{"on second car", 100, 1},
		// 60/2 + 15/2 = 37.5 apart is touching
		{"touching first car", -200 + 37.5, 0},
		{"just clear of first car", -200 + 37.6, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := PlayerBox(config, PlayerView{X: tt.x, Y: y})
			i, hit := DetectCollision(config, row, player)
			if hit != (tt.hit >= 0) || (hit && i != tt.hit) {
				t.Errorf("DetectCollision = (%d, %v), want vehicle %d", i, hit, tt.hit)
			}
		})
	}

	forest := &Row{Index: 1, Type: Forest}
	if _, hit := DetectCollision(config, forest, PlayerBox(config, PlayerView{Y: y})); hit {
		t.Error("Forest rows never collide")
	}
	if _, hit := DetectCollision(config, nil, Box{}); hit {
		t.Error("Missing rows never collide")
	}
}

func TestNearestVehicleGap(t *testing.T) {
	config := createValidConfig()
	row := &Row{Index: 1, Type: Car, Vehicles: []Vehicle{{Kind: Car, Offset: 168}}}

	// player at lane 0 spans [-7.5, 7.5], car spans [138, 198]
	if gap := NearestVehicleGap(config, row, 0); !approx(gap, 130.5) {
		t.Errorf("Expected gap 130.5, got %v", gap)
	}
	if gap := NearestVehicleGap(config, row, 4); gap != 0 {
		t.Errorf("Expected overlap to report 0, got %v", gap)
	}
	if gap := NearestVehicleGap(config, &Row{Type: Forest}, 0); !math.IsInf(gap, 1) {
		t.Errorf("Expected +Inf for forest, got %v", gap)
	}
}

func TestLaneClearFor(t *testing.T) {
	config := createValidConfig()
	row := &Row{
		Index: 1, Type: Car, Direction: true, Speed: 100,
		Vehicles: []Vehicle{{Kind: Car, Offset: -84}},
	}

	// the car's front edge is 46.5 units from the player box at lane 0
	if !LaneClearFor(config, row, 0, 0.3, 0.05) {
		t.Error("Expected lane 0 to stay clear for 0.3s")
	}
	if LaneClearFor(config, row, 0, 1, 0.05) {
		t.Error("Expected the car to reach lane 0 within 1s")
	}
	if row.Vehicles[0].Offset != -84 {
		t.Error("LaneClearFor must not move the real row")
	}
}
