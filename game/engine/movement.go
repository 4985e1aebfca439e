package engine

// Validator decides whether a prospective final position is reachable
type Validator func(GridPosition) bool

// PositionTracker holds the committed grid position and the FIFO of moves
// that were admitted but not yet animated.
type PositionTracker struct {
	committed GridPosition
	pending   []Direction
}

// NewPositionTracker starts at row 0, lane 0 with an empty queue
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{}
}

// Position returns the committed position
func (pt *PositionTracker) Position() GridPosition {
	return pt.committed
}

// Pending returns a copy of the queued moves, head first
func (pt *PositionTracker) Pending() []Direction {
	return append([]Direction{}, pt.pending...)
}

// Len returns the number of queued moves
func (pt *PositionTracker) Len() int {
	return len(pt.pending)
}

// Projected folds every queued move over the committed position
func (pt *PositionTracker) Projected() GridPosition {
	pos := pt.committed
	for _, d := range pt.pending {
		pos = pos.Apply(d)
	}
	return pos
}

// ProposeMove validates the position reached after all queued moves plus d.
// On success the canonical form of d is queued; otherwise the queue is left
// untouched.
func (pt *PositionTracker) ProposeMove(d Direction, valid Validator) bool {
	d, ok := ParseDirection(string(d))
	if !ok {
		return false
	}
	if !valid(pt.Projected().Apply(d)) {
		return false
	}
	pt.pending = append(pt.pending, d)
	return true
}

// Head returns the next move to animate
func (pt *PositionTracker) Head() (Direction, bool) {
	if len(pt.pending) == 0 {
		return "", false
	}
	return pt.pending[0], true
}

// CompleteHeadMove pops the head move and commits its delta. It returns the
// position before and after the move.
func (pt *PositionTracker) CompleteHeadMove() (from, to GridPosition, ok bool) {
	d, ok := pt.Head()
	if !ok {
		return pt.committed, pt.committed, false
	}
	pt.pending = pt.pending[1:]
	from = pt.committed
	pt.committed = pt.committed.Apply(d)
	return from, pt.committed, true
}

// ValidateTarget applies the admission rules to a prospective position:
// lane inside the grid, row not behind the start, and no tree on the
// target lane of a forest row. Vehicles never block a step.
func ValidateTarget(config *GameConfig, timeline *Timeline, pos GridPosition) bool {
	if pos.Lane < config.MinLane || pos.Lane > config.MaxLane {
		return false
	}
	if pos.Row < 0 {
		return false
	}
	if row, ok := timeline.RowAt(pos.Row); ok && row.HasTree(pos.Lane) {
		return false
	}
	return true
}
