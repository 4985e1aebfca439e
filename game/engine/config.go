package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// GameConfig represents the rules and world parameters of a run
type GameConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// Seed fixes world generation; 0 draws a fresh seed per run
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Grid
	MinLane    int     `json:"min_lane" yaml:"min_lane"`
	MaxLane    int     `json:"max_lane" yaml:"max_lane"`
	TileSize   float64 `json:"tile_size" yaml:"tile_size"`
	WrapMargin int     `json:"wrap_margin" yaml:"wrap_margin"`

	// Step animation, seconds and world units
	StepDuration float64 `json:"step_duration" yaml:"step_duration"`
	HopHeight    float64 `json:"hop_height" yaml:"hop_height"`

	// Timeline
	BatchSize    int `json:"batch_size" yaml:"batch_size"`
	Lookahead    int `json:"lookahead" yaml:"lookahead"`
	RetainBehind int `json:"retain_behind" yaml:"retain_behind"`

	// Generation
	TreesPerForest       int          `json:"trees_per_forest" yaml:"trees_per_forest"`
	CarsPerLane          int          `json:"cars_per_lane" yaml:"cars_per_lane"`
	TrucksPerLane        int          `json:"trucks_per_lane" yaml:"trucks_per_lane"`
	CarHalfWidth         int          `json:"car_half_width" yaml:"car_half_width"`
	TruckHalfWidth       int          `json:"truck_half_width" yaml:"truck_half_width"`
	MaxPlacementAttempts int          `json:"max_placement_attempts" yaml:"max_placement_attempts"`
	Speeds               []float64    `json:"speeds" yaml:"speeds"`
	VehicleColors        []string     `json:"vehicle_colors" yaml:"vehicle_colors"`
	TreeHeights          []TreeHeight `json:"tree_heights" yaml:"tree_heights"`

	// Bounding volumes, world units
	PlayerSize  float64 `json:"player_size" yaml:"player_size"`
	CarLength   float64 `json:"car_length" yaml:"car_length"`
	CarDepth    float64 `json:"car_depth" yaml:"car_depth"`
	TruckLength float64 `json:"truck_length" yaml:"truck_length"`
	TruckDepth  float64 `json:"truck_depth" yaml:"truck_depth"`

	Messages struct {
		Welcome   string `json:"welcome" yaml:"welcome"`
		Collision string `json:"collision" yaml:"collision"`
		Blocked   string `json:"blocked" yaml:"blocked"`
		Restart   string `json:"restart" yaml:"restart"`
	} `json:"messages" yaml:"messages"`
}

// LaneCount returns the number of lanes in [MinLane, MaxLane]
func (c *GameConfig) LaneCount() int {
	return c.MaxLane - c.MinLane + 1
}

// WrapBounds returns the world offsets at which vehicles leave and re-enter a row
func (c *GameConfig) WrapBounds() (begin, end float64) {
	begin = float64(c.MinLane-c.WrapMargin) * c.TileSize
	end = float64(c.MaxLane+c.WrapMargin) * c.TileSize
	return begin, end
}

// DefaultConfig returns the classic configuration
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:                 "classic",
		Description:          "Seventeen lanes, forests, cars and trucks",
		MinLane:              -8,
		MaxLane:              8,
		TileSize:             42,
		WrapMargin:           2,
		StepDuration:         0.2,
		HopHeight:            8,
		BatchSize:            20,
		Lookahead:            10,
		RetainBehind:         40,
		TreesPerForest:       4,
		CarsPerLane:          3,
		TrucksPerLane:        2,
		CarHalfWidth:         1,
		TruckHalfWidth:       2,
		MaxPlacementAttempts: 1000,
		Speeds:               []float64{100, 125, 150},
		VehicleColors:        []string{"#a52523", "#bdb638", "#78b14b"},
		TreeHeights:          []TreeHeight{Short, Medium, Tall},
		PlayerSize:           15,
		CarLength:            60,
		CarDepth:             30,
		TruckLength:          100,
		TruckDepth:           35,
	}
	config.Messages.Welcome = "Cross the road! Trees block you, traffic does not wait."
	config.Messages.Collision = "Hit by traffic on row %d! Game Over!"
	config.Messages.Blocked = "Can't move %s"
	config.Messages.Restart = "New run started"
	return config
}

// ValidateGameConfig validates a game configuration for correctness and
// playability. Every problem found is reported, combined with multierr.
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	var err error
	fail := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("config validation: "+format, args...))
	}

	if config.Name == "" {
		fail("name is required")
	}

	// Grid
	if config.MinLane > 0 || config.MaxLane < 0 {
		fail("lane range [%d, %d] must contain the start lane 0", config.MinLane, config.MaxLane)
	}
	if w := config.LaneCount(); w < MinLaneWidth || w > MaxLaneWidth {
		fail("lane count must be between %d and %d, got %d", MinLaneWidth, MaxLaneWidth, w)
	}
	if config.TileSize <= 0 {
		fail("tile_size must be positive, got %v", config.TileSize)
	}
	if config.WrapMargin < 0 {
		fail("wrap_margin must not be negative, got %d", config.WrapMargin)
	}

	// Animation
	if config.StepDuration <= 0 {
		fail("step_duration must be positive, got %v", config.StepDuration)
	}
	if config.HopHeight < 0 {
		fail("hop_height must not be negative, got %v", config.HopHeight)
	}

	// Timeline
	if config.BatchSize < 1 {
		fail("batch_size must be at least 1, got %d", config.BatchSize)
	}
	if config.Lookahead < 1 {
		fail("lookahead must be at least 1, got %d", config.Lookahead)
	}
	if config.RetainBehind < 0 {
		fail("retain_behind must not be negative, got %d", config.RetainBehind)
	}

	// Generation capacity: footprints must fit side by side inside the lane range
	lanes := config.LaneCount()
	if config.TreesPerForest < 0 || config.TreesPerForest >= lanes {
		fail("trees_per_forest must be between 0 and %d, got %d", lanes-1, config.TreesPerForest)
	}
	if config.CarHalfWidth < 0 || config.TruckHalfWidth < 0 {
		fail("vehicle half widths must not be negative")
	}
	if config.CarsPerLane < 1 || config.CarsPerLane*(2*config.CarHalfWidth+1) > lanes {
		fail("cars_per_lane %d with half width %d does not fit %d lanes",
			config.CarsPerLane, config.CarHalfWidth, lanes)
	}
	if config.TrucksPerLane < 1 || config.TrucksPerLane*(2*config.TruckHalfWidth+1) > lanes {
		fail("trucks_per_lane %d with half width %d does not fit %d lanes",
			config.TrucksPerLane, config.TruckHalfWidth, lanes)
	}
	if config.MaxPlacementAttempts < 1 {
		fail("max_placement_attempts must be at least 1, got %d", config.MaxPlacementAttempts)
	}

	if len(config.Speeds) == 0 {
		fail("speeds must not be empty")
	}
	for _, s := range config.Speeds {
		if s <= 0 {
			fail("speeds must be positive, got %v", s)
		}
	}
	if len(config.VehicleColors) == 0 {
		fail("vehicle_colors must not be empty")
	}
	if len(config.TreeHeights) == 0 {
		fail("tree_heights must not be empty")
	}
	for _, h := range config.TreeHeights {
		switch h {
		case Short, Medium, Tall:
		default:
			fail("invalid tree height %q", h)
		}
	}

	// Bounding volumes
	for name, v := range map[string]float64{
		"player_size":  config.PlayerSize,
		"car_length":   config.CarLength,
		"car_depth":    config.CarDepth,
		"truck_length": config.TruckLength,
		"truck_depth":  config.TruckDepth,
	} {
		if v <= 0 {
			fail("%s must be positive, got %v", name, v)
		}
	}

	if config.Messages.Collision != "" && !strings.Contains(config.Messages.Collision, "%d") {
		fail("messages.collision must contain %%d for the row")
	}

	return err
}

// DecodeGameConfig parses YAML or JSON on top of DefaultConfig, so a file only
// needs to list what it changes. format is a file extension such as ".yaml".
func DecodeGameConfig(data []byte, format string) (*GameConfig, error) {
	config := DefaultConfig()
	config.Name = ""
	config.Description = ""

	switch strings.ToLower(format) {
	case ".json", "json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".yaml", ".yml", "yaml", "yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	return config, nil
}

// LoadGameConfig loads and validates a game configuration file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Clone returns a deep copy of the configuration
func (c *GameConfig) Clone() *GameConfig {
	cp := *c
	cp.Speeds = append([]float64(nil), c.Speeds...)
	cp.VehicleColors = append([]string(nil), c.VehicleColors...)
	cp.TreeHeights = append([]TreeHeight(nil), c.TreeHeights...)
	return &cp
}
