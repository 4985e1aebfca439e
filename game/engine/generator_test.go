package engine

import (
	"errors"
	"reflect"
	"testing"
)

func TestGeneratorRowsRespectPlacementRules(t *testing.T) {
	config := createValidConfig()
	gen := NewRowGenerator(config, 7)

	seen := map[RowType]int{}
	for index := 1; index <= 300; index++ {
		row, err := gen.Generate(index)
		if err != nil {
			t.Fatalf("row %d: unexpected error: %v", index, err)
		}
		if row.Index != index {
			t.Fatalf("Expected index %d, got %d", index, row.Index)
		}
		seen[row.Type]++

		switch row.Type {
		case Forest:
			if len(row.Trees) != config.TreesPerForest {
				t.Errorf("row %d: expected %d trees, got %d", index, config.TreesPerForest, len(row.Trees))
			}
			lanes := map[int]bool{}
			for _, tree := range row.Trees {
				if tree.Lane < config.MinLane || tree.Lane > config.MaxLane {
					t.Errorf("row %d: tree lane %d out of range", index, tree.Lane)
				}
				if lanes[tree.Lane] {
					t.Errorf("row %d: two trees on lane %d", index, tree.Lane)
				}
				lanes[tree.Lane] = true
			}
		case Car, Truck:
			want := config.CarsPerLane
			if row.Type == Truck {
				want = config.TrucksPerLane
			}
			if len(row.Vehicles) != want {
				t.Errorf("row %d: expected %d vehicles, got %d", index, want, len(row.Vehicles))
			}
			if !containsFloat(config.Speeds, row.Speed) {
				t.Errorf("row %d: speed %v not in configured set", index, row.Speed)
			}
			covered := map[int]bool{}
			for _, v := range row.Vehicles {
				if v.Kind != row.Type {
					t.Errorf("row %d: vehicle kind %s on %s row", index, v.Kind, row.Type)
				}
				if v.Offset != float64(v.InitialLane)*config.TileSize {
					t.Errorf("row %d: vehicle offset %v does not match lane %d", index, v.Offset, v.InitialLane)
				}
				for _, lane := range v.Footprint() {
					if covered[lane] {
						t.Errorf("row %d: footprints overlap on lane %d", index, lane)
					}
					covered[lane] = true
				}
			}
		default:
			t.Errorf("row %d: unexpected type %s", index, row.Type)
		}
	}

	for _, rt := range []RowType{Forest, Car, Truck} {
		if seen[rt] == 0 {
			t.Errorf("Expected at least one %s row in 300", rt)
		}
	}
}

func TestGeneratorIsDeterministicPerIndex(t *testing.T) {
	config := createValidConfig()
	a := NewRowGenerator(config, 1234)
	b := NewRowGenerator(config, 1234)

	// generate b out of order
	for index := 20; index >= 1; index-- {
		rowB, err := b.Generate(index)
		if err != nil {
			t.Fatal(err)
		}
		rowA, err := a.Generate(index)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(rowA, rowB) {
			t.Fatalf("row %d differs between generators with the same seed", index)
		}
	}

	other := NewRowGenerator(config, 4321)
	same := true
	for index := 1; index <= 20; index++ {
		rowA, _ := a.Generate(index)
		rowC, _ := other.Generate(index)
		if !reflect.DeepEqual(rowA, rowC) {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected different seeds to produce different worlds")
	}
}

func TestGenerateTypeForcesRowType(t *testing.T) {
	gen := NewRowGenerator(createValidConfig(), 3)
	for _, rt := range []RowType{Forest, Car, Truck} {
		row, err := gen.GenerateType(5, rt)
		if err != nil {
			t.Fatalf("GenerateType(%s): %v", rt, err)
		}
		if row.Type != rt {
			t.Errorf("Expected %s, got %s", rt, row.Type)
		}
	}
	if _, err := gen.GenerateType(5, Grass); err == nil {
		t.Error("Expected error generating a grass row")
	}
}

func TestGeneratorReportsExhaustion(t *testing.T) {
	config := createValidConfig()
	config.MinLane, config.MaxLane = -2, 2
	config.TreesPerForest = 4
	config.MaxPlacementAttempts = 1

	gen := NewRowGenerator(config, 99)
	failures := 0
	for index := 1; index <= 50; index++ {
		_, err := gen.GenerateType(index, Forest)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrGenerationExhausted) {
			t.Fatalf("Expected ErrGenerationExhausted, got %v", err)
		}
		failures++
	}
	if failures == 0 {
		t.Error("Expected a single placement attempt to exhaust on a crowded forest")
	}
}

func TestTimelineExhaustionIsAtomic(t *testing.T) {
	config := createValidConfig()
	config.MinLane, config.MaxLane = -2, 2
	config.TreesPerForest = 4
	config.CarsPerLane = 1
	config.TrucksPerLane = 1
	config.MaxPlacementAttempts = 1

	tl := NewTimeline(NewRowGenerator(config, 99), 50, 0)
	_, err := tl.EnsureAhead(0, 10)
	if err == nil {
		t.Skip("seed happened to generate a full batch")
	}
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("Expected ErrGenerationExhausted, got %v", err)
	}
	if tl.Generated() != 0 || tl.Retained() != 0 {
		t.Errorf("Expected no partial batch, got %d generated", tl.Generated())
	}
}

func containsFloat(values []float64, v float64) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
