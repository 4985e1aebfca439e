package engine

import "math"

// StepAnimator turns the head of the move queue into continuous motion over
// a fixed step duration. It is Idle when active is false, Stepping otherwise.
type StepAnimator struct {
	duration  float64
	hopHeight float64
	tileSize  float64

	active  bool
	dir     Direction
	start   GridPosition
	elapsed float64
}

// NewStepAnimator creates an idle animator
func NewStepAnimator(config *GameConfig) *StepAnimator {
	return &StepAnimator{
		duration:  config.StepDuration,
		hopHeight: config.HopHeight,
		tileSize:  config.TileSize,
	}
}

// Stepping reports whether a move is in flight
func (a *StepAnimator) Stepping() bool {
	return a.active
}

// Progress returns the fraction of the current step completed, in [0, 1]
func (a *StepAnimator) Progress() float64 {
	if !a.active {
		return 0
	}
	return math.Min(1, a.elapsed/a.duration)
}

// begin starts animating the tracker's head move if there is one
func (a *StepAnimator) begin(pt *PositionTracker) {
	d, ok := pt.Head()
	if !ok {
		a.active = false
		a.dir = ""
		return
	}
	a.active = true
	a.dir = d
	a.start = pt.Position()
	a.elapsed = 0
}

// Advance moves the animation forward by dt seconds. A step that reaches
// progress 1 is committed through complete and the next queued move starts
// at once. It returns whether a step completed during this call.
func (a *StepAnimator) Advance(dt float64, pt *PositionTracker, complete func() error) (bool, error) {
	if !a.active {
		// a move starting this tick begins at progress 0
		a.begin(pt)
		return false, nil
	}

	a.elapsed += dt
	if a.Progress() < 1 {
		return false, nil
	}

	a.elapsed = 0
	if err := complete(); err != nil {
		a.active = false
		return true, err
	}
	a.begin(pt)
	return true, nil
}

// View returns the renderer-facing player state for the current frame
func (a *StepAnimator) View(pt *PositionTracker) PlayerView {
	committed := pt.Position()
	view := PlayerView{
		Position: committed,
		X:        float64(committed.Lane) * a.tileSize,
		Y:        float64(committed.Row) * a.tileSize,
	}
	if !a.active {
		return view
	}

	progress := a.Progress()
	dRow, dLane := a.dir.Delta()
	startX := float64(a.start.Lane) * a.tileSize
	startY := float64(a.start.Row) * a.tileSize

	view.Stepping = true
	view.Direction = a.dir
	view.Progress = progress
	view.DeltaRow = dRow
	view.DeltaLane = dLane
	view.X = startX + float64(dLane)*a.tileSize*progress
	view.Y = startY + float64(dRow)*a.tileSize*progress
	view.Hop = math.Sin(progress*math.Pi) * a.hopHeight
	return view
}

// Reset returns the animator to Idle
func (a *StepAnimator) Reset() {
	a.active = false
	a.dir = ""
	a.elapsed = 0
	a.start = GridPosition{}
}
