package engine

import "strings"

// RowType represents the different kinds of rows in the world
type RowType string

const (
	Grass  RowType = "grass" // implicit safe strip, rows <= 0
	Forest RowType = "forest"
	Car    RowType = "car"
	Truck  RowType = "truck"

	// Validation constants
	MinLaneWidth        = 5
	MaxLaneWidth        = 101
	MaxBulkMoves        = 50
	MaxTicksPerCall     = 600
	WebSocketBufferSize = 256
)

// TreeHeight is the cosmetic height class of a forest tree
type TreeHeight string

const (
	Short  TreeHeight = "short"
	Medium TreeHeight = "medium"
	Tall   TreeHeight = "tall"
)

// Direction is a single discrete grid move
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Left     Direction = "left"
	Right    Direction = "right"
)

// AllDirections lists the directions in a stable order
var AllDirections = []Direction{Forward, Backward, Left, Right}

// ParseDirection normalizes user input into a Direction.
// "up" and "down" are accepted as aliases for forward and backward.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "up", "f":
		return Forward, true
	case "backward", "down", "back", "b":
		return Backward, true
	case "left", "l":
		return Left, true
	case "right", "r":
		return Right, true
	}
	return "", false
}

// Delta returns the row and lane change for the direction
func (d Direction) Delta() (dRow, dLane int) {
	switch d {
	case Forward:
		return 1, 0
	case Backward:
		return -1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

// GridPosition is a discrete tile coordinate
type GridPosition struct {
	Row  int `json:"row"`
	Lane int `json:"lane"`
}

// Apply returns the position reached by moving one tile in direction d
func (p GridPosition) Apply(d Direction) GridPosition {
	dRow, dLane := d.Delta()
	return GridPosition{Row: p.Row + dRow, Lane: p.Lane + dLane}
}

// Tree is a single-lane obstacle in a forest row
type Tree struct {
	Lane   int        `json:"lane"`
	Height TreeHeight `json:"height"`
}

// Vehicle is a car or truck travelling along its row
type Vehicle struct {
	Kind        RowType `json:"kind"`
	InitialLane int     `json:"initial_lane"`
	Color       string  `json:"color"`
	HalfWidth   int     `json:"half_width"`

	// Offset is the continuous world position along the row. Only the
	// traffic step mutates it.
	Offset float64 `json:"offset"`
}

// Footprint returns the lanes the vehicle covered when it was placed
func (v Vehicle) Footprint() []int {
	lanes := make([]int, 0, 2*v.HalfWidth+1)
	for l := v.InitialLane - v.HalfWidth; l <= v.InitialLane+v.HalfWidth; l++ {
		lanes = append(lanes, l)
	}
	return lanes
}

// Row is one generated strip of the world. Forest rows carry Trees; car and
// truck rows carry Direction, Speed and Vehicles.
type Row struct {
	Index     int       `json:"index"`
	Type      RowType   `json:"type"`
	Trees     []Tree    `json:"trees,omitempty"`
	Direction bool      `json:"direction,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
	Vehicles  []Vehicle `json:"vehicles,omitempty"`

	// Frozen rows were regenerated outside the live window and are not simulated
	Frozen bool `json:"frozen,omitempty"`
}

// IsRoad reports whether the row carries traffic
func (r *Row) IsRoad() bool {
	return r.Type == Car || r.Type == Truck
}

// HasTree reports whether a tree occupies the given lane
func (r *Row) HasTree(lane int) bool {
	if r.Type != Forest {
		return false
	}
	for _, t := range r.Trees {
		if t.Lane == lane {
			return true
		}
	}
	return false
}

// clone deep-copies the row so callers cannot mutate timeline state
func (r *Row) clone() Row {
	c := *r
	if r.Trees != nil {
		c.Trees = append([]Tree(nil), r.Trees...)
	}
	if r.Vehicles != nil {
		c.Vehicles = append([]Vehicle(nil), r.Vehicles...)
	}
	return c
}

// Status is the lifecycle state of a run
type Status string

const (
	StatusRunning  Status = "running"
	StatusTerminal Status = "terminal"
	StatusFaulted  Status = "faulted"
)

// PlayerView is the renderer-facing state of the player for one frame
type PlayerView struct {
	Position  GridPosition `json:"position"` // committed tile
	X         float64      `json:"x"`        // lane axis, world units
	Y         float64      `json:"y"`        // row axis, world units
	Stepping  bool         `json:"stepping"`
	Direction Direction    `json:"direction,omitempty"`
	Progress  float64      `json:"progress"`
	DeltaRow  int          `json:"delta_row"`
	DeltaLane int          `json:"delta_lane"`
	Hop       float64      `json:"hop"`
}

// VehicleView is the world position of one vehicle for one frame
type VehicleView struct {
	Row   int     `json:"row"`
	Index int     `json:"index"`
	Kind  RowType `json:"kind"`
	Color string  `json:"color"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// CollisionInfo identifies the vehicle that ended the run
type CollisionInfo struct {
	Row     int          `json:"row"`
	Vehicle int          `json:"vehicle"`
	Kind    RowType      `json:"kind"`
	At      GridPosition `json:"at"`
}

// TickResult is returned by every Tick
type TickResult struct {
	Status         Status         `json:"status"`
	Player         PlayerView     `json:"player"`
	Vehicles       []VehicleView  `json:"vehicles"`
	Collision      *CollisionInfo `json:"collision,omitempty"`
	Score          int            `json:"score"`
	StepsCompleted int            `json:"steps_completed"`
	PendingMoves   int            `json:"pending_moves"`
	Elapsed        float64        `json:"elapsed"`
}

// Snapshot is the complete observable state of a run
type Snapshot struct {
	ConfigName   string            `json:"config_name"`
	Seed         int64             `json:"seed"`
	Status       Status            `json:"status"`
	GameOver     bool              `json:"game_over"`
	Score        int               `json:"score"`
	BestScore    int               `json:"best_score"`
	Runs         int               `json:"runs"`
	Player       PlayerView        `json:"player"`
	PendingMoves []Direction       `json:"pending_moves"`
	Generated    int               `json:"generated_rows"`
	Collision    *CollisionInfo    `json:"collision,omitempty"`
	Elapsed      float64           `json:"elapsed"`
	Message      string            `json:"message"`
	TotalSteps   int               `json:"total_steps"`
	LastMove     *MoveHistoryEntry `json:"last_move,omitempty"`
	Nearby       []Row             `json:"nearby,omitempty"`
}

// MoveHistoryEntry represents a single completed step in the game history
type MoveHistoryEntry struct {
	Direction  Direction    `json:"direction"`
	From       GridPosition `json:"from"`
	To         GridPosition `json:"to"`
	Score      int          `json:"score"`
	Run        int          `json:"run"`
	Elapsed    float64      `json:"elapsed"`
	MoveNumber int          `json:"move_number"`
}
