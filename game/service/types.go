package service

import (
	"time"

	"github.com/wricardo/lane-runner/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	Live           bool               `json:"live"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.Snapshot   `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// MoveResult contains the result of queueing a single move
type MoveResult struct {
	Success       bool                 `json:"success"`
	Direction     engine.Direction     `json:"direction"`
	GameState     *engine.Snapshot     `json:"game_state"`
	Message       string               `json:"message"`
	Events        []GameEvent          `json:"events,omitempty"`
	Projected     engine.GridPosition  `json:"projected"`
	AttemptedTo   *engine.GridPosition `json:"attempted_to,omitempty"`
	PossibleMoves []engine.Direction   `json:"possible_moves,omitempty"`
}

// BulkMoveResult contains the result of queueing multiple moves
type BulkMoveResult struct {
	// Summary
	RequestedMoves int    `json:"requested_moves"`
	MovesQueued    int    `json:"moves_queued"`
	Success        bool   `json:"success"`
	StoppedReason  string `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string `json:"stop_reason_code,omitempty"` // invalid_direction|blocked|game_over
	StoppedOnMove  int    `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool   `json:"truncated,omitempty"`
	Limit          int    `json:"limit,omitempty"`

	StartPos     engine.GridPosition  `json:"start_pos"`
	ProjectedPos engine.GridPosition  `json:"projected_pos"`
	AttemptedTo  *engine.GridPosition `json:"attempted_to,omitempty"`

	GameState *engine.Snapshot `json:"game_state"`
	Events    []GameEvent      `json:"events"`
	GameOver  bool             `json:"game_over"`
	Message   string           `json:"message,omitempty"`
}

// TickResult summarises one or more frames advanced in a single call
type TickResult struct {
	Frames         int                `json:"frames"`
	Dt             float64            `json:"dt"`
	StepsCompleted int                `json:"steps_completed"`
	ScoreDelta     int                `json:"score_delta"`
	GameOver       bool               `json:"game_over"`
	Frame          *engine.TickResult `json:"frame"`
	GameState      *engine.Snapshot   `json:"game_state"`
	Events         []GameEvent        `json:"events,omitempty"`
}

// FrameUpdate is one live session's frame, produced by TickLive
type FrameUpdate struct {
	SessionID string             `json:"session_id"`
	Frame     *engine.TickResult `json:"frame"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"` // "move", "blocked", "step", "score", "collision", "game_over", "restart", "fault"
	Message   string              `json:"message"`
	Timestamp time.Time           `json:"timestamp"`
	Position  engine.GridPosition `json:"position"`
	Score     int                 `json:"score"`
}

// RowsResponse is a window of generated rows around a session's player
type RowsResponse struct {
	From      int                 `json:"from"`
	To        int                 `json:"to"`
	Player    engine.GridPosition `json:"player"`
	Generated int                 `json:"generated_rows"`
	Rows      []engine.Row        `json:"rows"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename     string  `json:"filename"`
	ConfigID     string  `json:"config_id"` // The identifier to use for session creation
	Name         string  `json:"name"`      // Display name
	Description  string  `json:"description"`
	Lanes        int     `json:"lanes"`
	StepDuration float64 `json:"step_duration"`
	Seeded       bool    `json:"seeded"`
}
