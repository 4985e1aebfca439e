package engine

import (
	"errors"
	"testing"
)

func TestAdvanceVehicle(t *testing.T) {
	begin, end := -420.0, 420.0

	tests := []struct {
		name      string
		offset    float64
		direction bool
		speed     float64
		dt        float64
		want      float64
	}{
		{"positive travel", 0, true, 100, 0.5, 50},
		{"negative travel", 0, false, 100, 0.5, -50},
		{"positive reaches end exactly", 410, true, 100, 0.1, 420},
		{"positive wraps to begin", 419, true, 100, 0.1, begin},
		{"negative wraps to end", -419, false, 100, 0.1, end},
		{"zero dt", 12, true, 150, 0, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Vehicle{Kind: Car, Offset: tt.offset}
			AdvanceVehicle(&v, tt.direction, tt.speed, tt.dt, begin, end)
			if !approx(v.Offset, tt.want) {
				t.Errorf("Expected offset %v, got %v", tt.want, v.Offset)
			}
		})
	}
}

func TestAdvanceTraffic(t *testing.T) {
	config := createValidConfig()
	rows := []Row{
		{Index: 1, Type: Forest, Trees: []Tree{{Lane: 2}}},
		{Index: 2, Type: Car, Direction: true, Speed: 100, Vehicles: []Vehicle{{Kind: Car, Offset: 0}, {Kind: Car, Offset: 84}}},
		{Index: 3, Type: Truck, Direction: false, Speed: 150, Vehicles: []Vehicle{{Kind: Truck, Offset: 0}}},
	}

	if err := AdvanceTraffic(rows, config, 0.2); err != nil {
		t.Fatalf("AdvanceTraffic: %v", err)
	}
	if !approx(rows[1].Vehicles[0].Offset, 20) || !approx(rows[1].Vehicles[1].Offset, 104) {
		t.Errorf("Car row advanced wrong: %+v", rows[1].Vehicles)
	}
	if !approx(rows[2].Vehicles[0].Offset, -30) {
		t.Errorf("Truck row advanced wrong: %+v", rows[2].Vehicles)
	}
}

func TestAdvanceTrafficMissingVehicles(t *testing.T) {
	rows := []Row{{Index: 4, Type: Truck, Speed: 100}}
	err := AdvanceTraffic(rows, createValidConfig(), 0.1)
	if !errors.Is(err, ErrMissingVehicle) {
		t.Fatalf("Expected ErrMissingVehicle, got %v", err)
	}
}
