package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrGenerationExhausted is returned when rejection sampling cannot place an
// occupant within the configured attempt budget.
var ErrGenerationExhausted = errors.New("row generation exhausted placement attempts")

// rowTypes are chosen uniformly for every generated row
var rowTypes = []RowType{Forest, Car, Truck}

// RowGenerator produces rows with non-overlapping occupants. Every row index
// has its own random stream derived from the seed, so a row can be produced
// again later and come out identical.
type RowGenerator struct {
	config *GameConfig
	seed   int64
}

// NewRowGenerator creates a generator for the given configuration and seed
func NewRowGenerator(config *GameConfig, seed int64) *RowGenerator {
	return &RowGenerator{config: config, seed: seed}
}

// Seed returns the world seed
func (g *RowGenerator) Seed() int64 {
	return g.seed
}

func (g *RowGenerator) rng(index int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(g.seed), uint64(int64(index))))
}

// Generate produces row index (index >= 1)
func (g *RowGenerator) Generate(index int) (Row, error) {
	rng := g.rng(index)
	switch rowTypes[rng.IntN(len(rowTypes))] {
	case Forest:
		return g.forest(index, rng)
	case Car:
		return g.road(index, Car, g.config.CarsPerLane, g.config.CarHalfWidth, rng)
	default:
		return g.road(index, Truck, g.config.TrucksPerLane, g.config.TruckHalfWidth, rng)
	}
}

// GenerateType produces row index with a fixed type
func (g *RowGenerator) GenerateType(index int, rowType RowType) (Row, error) {
	rng := g.rng(index)
	rng.IntN(len(rowTypes)) // keep the stream aligned with Generate
	switch rowType {
	case Forest:
		return g.forest(index, rng)
	case Car:
		return g.road(index, Car, g.config.CarsPerLane, g.config.CarHalfWidth, rng)
	case Truck:
		return g.road(index, Truck, g.config.TrucksPerLane, g.config.TruckHalfWidth, rng)
	}
	return Row{}, fmt.Errorf("cannot generate row of type %q", rowType)
}

func (g *RowGenerator) randomLane(rng *rand.Rand) int {
	return g.config.MinLane + rng.IntN(g.config.LaneCount())
}

func (g *RowGenerator) forest(index int, rng *rand.Rand) (Row, error) {
	row := Row{Index: index, Type: Forest, Trees: make([]Tree, 0, g.config.TreesPerForest)}
	occupied := make(map[int]bool, g.config.TreesPerForest)

	for len(row.Trees) < g.config.TreesPerForest {
		lane, ok := g.place(rng, occupied, 0)
		if !ok {
			return Row{}, fmt.Errorf("row %d: tree %d: %w", index, len(row.Trees)+1, ErrGenerationExhausted)
		}
		height := g.config.TreeHeights[rng.IntN(len(g.config.TreeHeights))]
		row.Trees = append(row.Trees, Tree{Lane: lane, Height: height})
	}

	return row, nil
}

func (g *RowGenerator) road(index int, kind RowType, count, halfWidth int, rng *rand.Rand) (Row, error) {
	row := Row{
		Index:     index,
		Type:      kind,
		Direction: rng.IntN(2) == 1,
		Speed:     g.config.Speeds[rng.IntN(len(g.config.Speeds))],
		Vehicles:  make([]Vehicle, 0, count),
	}
	occupied := make(map[int]bool, count*(2*halfWidth+1))

	for len(row.Vehicles) < count {
		lane, ok := g.place(rng, occupied, halfWidth)
		if !ok {
			return Row{}, fmt.Errorf("row %d: %s %d: %w", index, kind, len(row.Vehicles)+1, ErrGenerationExhausted)
		}
		row.Vehicles = append(row.Vehicles, Vehicle{
			Kind:        kind,
			InitialLane: lane,
			Color:       g.config.VehicleColors[rng.IntN(len(g.config.VehicleColors))],
			HalfWidth:   halfWidth,
			Offset:      float64(lane) * g.config.TileSize,
		})
	}

	return row, nil
}

// place samples a centre lane whose whole footprint is free, marks the
// footprint occupied and returns the lane. It gives up after
// MaxPlacementAttempts samples.
func (g *RowGenerator) place(rng *rand.Rand, occupied map[int]bool, halfWidth int) (int, bool) {
	for attempt := 0; attempt < g.config.MaxPlacementAttempts; attempt++ {
		lane := g.randomLane(rng)
		if footprintTaken(occupied, lane, halfWidth) {
			continue
		}
		for l := lane - halfWidth; l <= lane+halfWidth; l++ {
			occupied[l] = true
		}
		return lane, true
	}
	return 0, false
}

func footprintTaken(occupied map[int]bool, lane, halfWidth int) bool {
	for l := lane - halfWidth; l <= lane+halfWidth; l++ {
		if occupied[l] {
			return true
		}
	}
	return false
}
