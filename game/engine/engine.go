package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Run lifecycle
	Snapshot() *Snapshot
	Restart() (*Snapshot, error)
	IsGameOver() bool
	GetStatus() Status
	GetScore() int
	GetBestScore() int
	GetPlayerPosition() GridPosition

	// Movement operations
	QueueMove(d Direction) bool
	CanMove(d Direction) bool
	GetPossibleMoves() []Direction
	PendingMoves() []Direction

	// Frames
	Tick(dt float64) (*TickResult, error)

	// World
	RowsBetween(from, to int) []Row

	// Configuration
	GetConfig() *GameConfig

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry

	SetScoreObserver(fn func(score int))
}

// GameEngine implements the Engine interface. It owns every piece of run
// state; nothing is shared between engines and nothing is safe for
// concurrent use without external locking.
type GameEngine struct {
	config *GameConfig

	seed     int64
	timeline *Timeline
	tracker  *PositionTracker
	animator *StepAnimator

	status    Status
	collision *CollisionInfo
	fault     error
	elapsed   float64
	message   string

	// cumulative across restarts
	bestScore  int
	runs       int
	totalSteps int
	history    []MoveHistoryEntry

	onScore func(score int)
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{config: config}
	if err := e.startRun(); err != nil {
		return nil, err
	}
	e.message = config.Messages.Welcome
	return e, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		// the built-in configuration always validates and generates
		panic(err)
	}
	return e
}

// startRun builds a fresh world and resets the per-run state
func (e *GameEngine) startRun() error {
	seed := e.config.Seed
	if seed == 0 {
		seed = rand.Int64()
	}

	timeline := NewTimeline(NewRowGenerator(e.config, seed), e.config.BatchSize, e.config.RetainBehind)
	if _, err := timeline.EnsureAhead(0, e.config.Lookahead); err != nil {
		return err
	}

	e.seed = seed
	e.timeline = timeline
	e.tracker = NewPositionTracker()
	e.animator = NewStepAnimator(e.config)
	e.status = StatusRunning
	e.collision = nil
	e.fault = nil
	e.elapsed = 0
	e.runs++
	return nil
}

// Restart begins a new run on a freshly generated world. Best score, run
// count and move history carry over.
func (e *GameEngine) Restart() (*Snapshot, error) {
	if err := e.startRun(); err != nil {
		e.status = StatusFaulted
		e.fault = err
		return nil, err
	}
	e.message = e.config.Messages.Restart
	return e.Snapshot(), nil
}

// IsGameOver returns whether the run has stopped
func (e *GameEngine) IsGameOver() bool {
	return e.status != StatusRunning
}

// GetStatus returns the run status
func (e *GameEngine) GetStatus() Status {
	return e.status
}

// Fault returns the error that halted the engine, if any
func (e *GameEngine) Fault() error {
	return e.fault
}

// GetScore returns the committed row of the player
func (e *GameEngine) GetScore() int {
	return e.tracker.Position().Row
}

// GetBestScore returns the highest score reached in any run
func (e *GameEngine) GetBestScore() int {
	return e.bestScore
}

// GetPlayerPosition returns the committed player position
func (e *GameEngine) GetPlayerPosition() GridPosition {
	return e.tracker.Position()
}

// GetConfig returns the engine configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// Seed returns the world seed of the current run
func (e *GameEngine) Seed() int64 {
	return e.seed
}

// Runs returns the number of runs started, including the current one
func (e *GameEngine) Runs() int {
	return e.runs
}

// SetScoreObserver registers fn to be called every time a step commits
func (e *GameEngine) SetScoreObserver(fn func(score int)) {
	e.onScore = fn
}

// QueueMove admits d when the position reached after every queued move plus
// d is valid. Rows beyond the generated horizon are generated first so trees
// there are respected.
func (e *GameEngine) QueueMove(d Direction) bool {
	if e.status != StatusRunning {
		return false
	}
	canonical, ok := ParseDirection(string(d))
	if !ok {
		e.message = formatMessage(e.config.Messages.Blocked, string(d))
		return false
	}
	d = canonical

	target := e.tracker.Projected().Apply(d)
	if err := e.timeline.EnsureCovers(target.Row); err != nil {
		e.halt(err)
		return false
	}
	if _, err := e.timeline.Readmit(target.Row); err != nil {
		e.halt(err)
		return false
	}

	ok = e.tracker.ProposeMove(d, e.validTarget)
	if !ok {
		e.message = formatMessage(e.config.Messages.Blocked, string(d))
	}
	return ok
}

// CanMove reports whether d would be admitted right now, without queueing it
func (e *GameEngine) CanMove(d Direction) bool {
	if e.status != StatusRunning {
		return false
	}
	d, ok := ParseDirection(string(d))
	if !ok {
		return false
	}
	return e.validTarget(e.tracker.Projected().Apply(d))
}

// GetPossibleMoves returns every direction CanMove accepts
func (e *GameEngine) GetPossibleMoves() []Direction {
	moves := []Direction{}
	for _, d := range AllDirections {
		if e.CanMove(d) {
			moves = append(moves, d)
		}
	}
	return moves
}

// PendingMoves returns the queued moves, head first
func (e *GameEngine) PendingMoves() []Direction {
	return e.tracker.Pending()
}

func (e *GameEngine) validTarget(pos GridPosition) bool {
	return ValidateTarget(e.config, e.timeline, pos)
}

// Tick advances the world by dt seconds: traffic first, then the step
// animation, then collision against the committed row. A stopped run is
// returned unchanged.
func (e *GameEngine) Tick(dt float64) (*TickResult, error) {
	switch e.status {
	case StatusFaulted:
		return e.frame(0), e.fault
	case StatusTerminal:
		return e.frame(0), nil
	}
	if dt < 0 {
		dt = 0
	}
	e.elapsed += dt

	if err := AdvanceTraffic(e.timeline.live(), e.config, dt); err != nil {
		e.halt(err)
		return e.frame(0), err
	}

	steps := 0
	completed, err := e.animator.Advance(dt, e.tracker, e.completeStep)
	if completed {
		steps++
	}
	if err != nil {
		e.halt(err)
		return e.frame(steps), err
	}

	e.detectCollision()
	return e.frame(steps), nil
}

// completeStep commits the head move and keeps the timeline ahead of the
// player
func (e *GameEngine) completeStep() error {
	from, to, ok := e.tracker.CompleteHeadMove()
	if !ok {
		return nil
	}

	if _, err := e.timeline.EnsureAhead(to.Row, e.config.Lookahead); err != nil {
		return err
	}
	// queued backward moves keep their rows live
	e.timeline.Prune(min(to.Row, e.tracker.Projected().Row))

	e.totalSteps++
	e.history = append(e.history, MoveHistoryEntry{
		Direction:  directionBetween(from, to),
		From:       from,
		To:         to,
		Score:      to.Row,
		Run:        e.runs,
		Elapsed:    e.elapsed,
		MoveNumber: e.totalSteps,
	})
	if to.Row > e.bestScore {
		e.bestScore = to.Row
	}
	if e.onScore != nil {
		e.onScore(to.Row)
	}
	return nil
}

func (e *GameEngine) detectCollision() {
	pos := e.tracker.Position()
	row, ok := e.timeline.RowAt(pos.Row)
	if !ok {
		return
	}
	box := PlayerBox(e.config, e.animator.View(e.tracker))
	i, hit := DetectCollision(e.config, row, box)
	if !hit {
		return
	}
	e.status = StatusTerminal
	e.collision = &CollisionInfo{
		Row:     row.Index,
		Vehicle: i,
		Kind:    row.Vehicles[i].Kind,
		At:      pos,
	}
	e.message = formatMessage(e.config.Messages.Collision, row.Index)
}

func (e *GameEngine) halt(err error) {
	e.status = StatusFaulted
	e.fault = err
	e.message = fmt.Sprintf("Engine halted: %v", err)
}

func (e *GameEngine) frame(steps int) *TickResult {
	return &TickResult{
		Status:         e.status,
		Player:         e.animator.View(e.tracker),
		Vehicles:       vehicleViews(e.timeline.live(), e.config.TileSize),
		Collision:      e.collision,
		Score:          e.GetScore(),
		StepsCompleted: steps,
		PendingMoves:   e.tracker.Len(),
		Elapsed:        e.elapsed,
	}
}

// Snapshot returns the complete observable state of the run
func (e *GameEngine) Snapshot() *Snapshot {
	pos := e.tracker.Position()
	return &Snapshot{
		ConfigName:   e.config.Name,
		Seed:         e.seed,
		Status:       e.status,
		GameOver:     e.IsGameOver(),
		Score:        pos.Row,
		BestScore:    e.bestScore,
		Runs:         e.runs,
		Player:       e.animator.View(e.tracker),
		PendingMoves: e.tracker.Pending(),
		Generated:    e.timeline.Generated(),
		Collision:    e.collision,
		Elapsed:      e.elapsed,
		Message:      e.message,
		TotalSteps:   e.totalSteps,
		LastMove:     e.GetLastMove(),
		Nearby:       e.timeline.Rows(pos.Row-NearbyBehind, pos.Row+NearbyAhead),
	}
}

// RowsBetween returns copies of rows [from, to] that have been generated
func (e *GameEngine) RowsBetween(from, to int) []Row {
	return e.timeline.Rows(from, to)
}

// GetMoveHistory returns every completed step across all runs
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return append([]MoveHistoryEntry{}, e.history...)
}

// GetLastMove returns the most recent completed step
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

// formatMessage fills a configured message template when it has a verb
func formatMessage(template string, arg any) string {
	if strings.Contains(template, "%") {
		return fmt.Sprintf(template, arg)
	}
	return template
}
