package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"go.uber.org/multierr"

	"github.com/wricardo/lane-runner/game/engine"
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidTick      = errors.New("invalid tick")
)

// MaxFrameDt caps a single frame delta in seconds
const MaxFrameDt = 1.0

var logger = log15.New("module", "service")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		Live:           sess.Live,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

func newEvent(eventType, message string, pos engine.GridPosition, score int) GameEvent {
	return GameEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
		Position:  pos,
		Score:     score,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, live bool) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, s.configNotFound(configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.ConfigID = configName
	if sess.ConfigID == "" {
		sess.ConfigID = s.getConfigID(config.Name)
	}
	sess.Live = live
	sess.observeScores()

	logger.Info("session created", "session", sess.ID, "config", sess.ConfigID, "live", live, "seed", sess.Engine.Seed())
	return sessionInfo(sess), nil
}

// configNotFound lists the available configurations in the error
func (s *gameServiceImpl) configNotFound(configName string, err error) error {
	available, listErr := s.configs.ListConfigs()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
	}
	ids := make([]string, 0, len(available))
	for _, cfg := range available {
		ids = append(ids, cfg.ConfigID)
	}
	return fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, ids, err)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// touching the access time is a write
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	logger.Info("session deleted", "session", sessionID)
	return nil
}

// DeleteSessions removes several sessions, reporting every failure
func (s *gameServiceImpl) DeleteSessions(ctx context.Context, sessionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.sessions.DeleteMany(sessionIDs...)
	logger.Info("sessions deleted", "requested", len(sessionIDs), "failed", len(multierr.Errors(err)))
	return err
}

// Move queues a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	d, ok := engine.ParseDirection(direction)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	eng := sess.Engine
	target := projectedPosition(eng).Apply(d)

	success := eng.QueueMove(d)
	state := eng.Snapshot()
	result := &MoveResult{
		Success:       success,
		Direction:     d,
		GameState:     state,
		Message:       state.Message,
		Projected:     projectedPosition(eng),
		PossibleMoves: eng.GetPossibleMoves(),
	}

	if success {
		result.Message = fmt.Sprintf("Queued %s", d)
		result.Events = append(result.Events, newEvent("move", fmt.Sprintf("Queued %s towards (%d,%d)", d, target.Row, target.Lane), target, state.Score))
	} else {
		result.AttemptedTo = &target
		result.Events = append(result.Events, newEvent("blocked", state.Message, target, state.Score))
	}
	if state.GameOver {
		result.Message = state.Message
	}

	logger.Debug("move", "session", sessionID, "direction", d, "queued", success)
	return result, nil
}

// projectedPosition folds the pending moves over the committed position
func projectedPosition(eng *engine.GameEngine) engine.GridPosition {
	pos := eng.GetPlayerPosition()
	for _, d := range eng.PendingMoves() {
		pos = pos.Apply(d)
	}
	return pos
}

// BulkMove queues multiple moves in sequence, stopping at the first rejection
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	eng := sess.Engine
	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Success:        true,
		StartPos:       eng.GetPlayerPosition(),
		Events:         make([]GameEvent, 0),
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if eng.IsGameOver() {
			result.Success = false
			result.StoppedReason = "game over"
			result.StopReasonCode = "game_over"
			result.StoppedOnMove = i + 1
			break
		}

		d, ok := engine.ParseDirection(move)
		if !ok {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d: invalid direction %q", i+1, move)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		target := projectedPosition(eng).Apply(d)
		if !eng.QueueMove(d) {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, d)
			result.StopReasonCode = "blocked"
			result.StoppedOnMove = i + 1
			result.AttemptedTo = &target
			result.Events = append(result.Events, newEvent("blocked", fmt.Sprintf("Can't move %s to (%d,%d)", d, target.Row, target.Lane), target, eng.GetScore()))
			break
		}

		result.MovesQueued++
		result.Events = append(result.Events, newEvent("move", fmt.Sprintf("Queued %s towards (%d,%d)", d, target.Row, target.Lane), target, eng.GetScore()))
	}

	state := eng.Snapshot()
	result.GameState = state
	result.ProjectedPos = projectedPosition(eng)
	result.GameOver = state.GameOver
	result.Message = state.Message

	logger.Debug("bulk move", "session", sessionID, "requested", result.RequestedMoves, "queued", result.MovesQueued, "stop", result.StopReasonCode)
	return result, nil
}

// Tick advances a session by frames frames of dt seconds each
func (s *gameServiceImpl) Tick(ctx context.Context, sessionID string, dt float64, frames int) (*TickResult, error) {
	if dt <= 0 || dt > MaxFrameDt {
		return nil, fmt.Errorf("%w: dt must be in (0, %v], got %v", ErrInvalidTick, MaxFrameDt, dt)
	}
	if frames == 0 {
		frames = 1
	}
	if frames < 0 || frames > engine.MaxTicksPerCall {
		return nil, fmt.Errorf("%w: frames must be between 1 and %d, got %d", ErrInvalidTick, engine.MaxTicksPerCall, frames)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	startScore := sess.Engine.GetScore()
	result := &TickResult{Dt: dt}
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, events, err := s.tickSession(sess, dt)
		result.Events = append(result.Events, events...)
		result.Frame = frame
		if err != nil {
			return nil, err
		}
		result.Frames++
		result.StepsCompleted += frame.StepsCompleted
		if frame.Status != engine.StatusRunning {
			break
		}
	}

	result.GameState = sess.Engine.Snapshot()
	result.ScoreDelta = result.GameState.Score - startScore
	result.GameOver = result.GameState.GameOver
	return result, nil
}

// tickSession advances one frame and turns what happened into events.
// Callers hold s.mu.
func (s *gameServiceImpl) tickSession(sess *Session, dt float64) (*engine.TickResult, []GameEvent, error) {
	eng := sess.Engine
	wasRunning := !eng.IsGameOver()

	frame, err := eng.Tick(dt)
	pos := eng.GetPlayerPosition()

	var events []GameEvent
	for _, score := range sess.drainScores() {
		events = append(events, newEvent("step", fmt.Sprintf("Step completed at (%d,%d)", pos.Row, pos.Lane), pos, score))
		if score == eng.GetBestScore() && score > 0 {
			events = append(events, newEvent("score", fmt.Sprintf("Best score: %d", score), pos, score))
		}
	}

	if err != nil {
		if wasRunning {
			logger.Error("engine halted", "session", sess.ID, "err", err)
			events = append(events, newEvent("fault", err.Error(), pos, frame.Score))
		}
		return frame, events, fmt.Errorf("session %s: %w", sess.ID, err)
	}

	if wasRunning && frame.Status == engine.StatusTerminal {
		msg := eng.Snapshot().Message
		events = append(events,
			newEvent("collision", msg, pos, frame.Score),
			newEvent("game_over", fmt.Sprintf("Game over with score %d (best %d)", frame.Score, eng.GetBestScore()), pos, frame.Score),
		)
		logger.Info("game over", "session", sess.ID, "score", frame.Score, "row", frame.Collision.Row, "kind", frame.Collision.Kind)
	}
	return frame, events, nil
}

// TickLive advances every running live session by one frame. Sessions that
// fault are reported together; the others still produce their frame.
func (s *gameServiceImpl) TickLive(ctx context.Context, dt float64) ([]*FrameUpdate, error) {
	if dt <= 0 || dt > MaxFrameDt {
		return nil, fmt.Errorf("%w: dt must be in (0, %v], got %v", ErrInvalidTick, MaxFrameDt, dt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updates []*FrameUpdate
	var errs error
	for _, sess := range s.sessions.List() {
		if !sess.Live || sess.Engine.IsGameOver() {
			continue
		}
		frame, events, err := s.tickSession(sess, dt)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		updates = append(updates, &FrameUpdate{SessionID: sess.ID, Frame: frame, Events: events})
	}
	return updates, errs
}

// Restart starts a new run for a session
func (s *gameServiceImpl) Restart(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	state, err := sess.Engine.Restart()
	if err != nil {
		logger.Error("restart failed", "session", sessionID, "err", err)
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	sess.drainScores()
	logger.Info("run restarted", "session", sessionID, "run", state.Runs, "best", state.BestScore)
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.Snapshot(), nil
}

// GetRows returns generated rows in [from, to]. Zero bounds default to a
// window around the player.
func (s *gameServiceImpl) GetRows(ctx context.Context, sessionID string, from, to int) (*RowsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	pos := sess.Engine.GetPlayerPosition()
	if from == 0 && to == 0 {
		from = pos.Row - engine.NearbyBehind
		to = pos.Row + engine.NearbyAhead
	}
	if to < from {
		return nil, fmt.Errorf("invalid row range [%d, %d]", from, to)
	}
	if to-from > maxRowsWindow {
		to = from + maxRowsWindow
	}

	rows := sess.Engine.RowsBetween(from, to)
	if rows == nil {
		rows = []engine.Row{}
	}
	return &RowsResponse{
		From:      from,
		To:        to,
		Player:    pos,
		Generated: sess.Engine.Snapshot().Generated,
		Rows:      rows,
	}, nil
}

const maxRowsWindow = 200

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if err := s.configs.SaveConfig(configName, config); err != nil {
		return err
	}
	logger.Info("config saved", "config", configName)
	return nil
}
