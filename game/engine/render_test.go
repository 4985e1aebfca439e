package engine

import (
	"strings"
	"testing"
)

func TestRenderRow(t *testing.T) {
	cfg := DefaultConfig()
	player := GridPosition{Row: 3, Lane: 0}

	tests := []struct {
		name string
		row  Row
		want string
	}{
		{
			name: "forest with player",
			row:  Row{Index: 3, Type: Forest, Trees: []Tree{{Lane: cfg.MinLane}}},
			want: "|T" + strings.Repeat(".", 7) + "@" + strings.Repeat(".", 8) + "|",
		},
		{
			name: "car road",
			row: Row{Index: 4, Type: Car, Direction: true, Speed: 2, Vehicles: []Vehicle{
				{Kind: Car, InitialLane: 2, HalfWidth: 1, Offset: 2 * cfg.TileSize},
			}},
			want: ">> |" + strings.Repeat("=", 9) + "CCC" + strings.Repeat("=", 5) + "|",
		},
		{
			name: "truck road leaving the grid",
			row: Row{Index: 5, Type: Truck, Speed: 1, Vehicles: []Vehicle{
				{Kind: Truck, HalfWidth: 2, Offset: float64(cfg.MinLane-1) * cfg.TileSize},
			}},
			want: "<< |KK" + strings.Repeat("=", 15) + "|",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderRow(cfg, &tt.row, player)
			if !strings.HasSuffix(got, tt.want) {
				t.Errorf("Expected row ending in %q, got %q", tt.want, got)
			}
		})
	}
}
