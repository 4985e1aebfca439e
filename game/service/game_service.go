package service

import (
	"context"
	"time"

	"github.com/wricardo/lane-runner/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, live bool) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteSessions(ctx context.Context, sessionIDs []string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error)
	Tick(ctx context.Context, sessionID string, dt float64, frames int) (*TickResult, error)
	Restart(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Live sessions, driven by the server clock
	TickLive(ctx context.Context, dt float64) ([]*FrameUpdate, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetRows(ctx context.Context, sessionID string, from, to int) (*RowsResponse, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	DeleteMany(ids ...string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	Live           bool
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// scores reported by the engine since the last drain
	scores []int
}

// observeScores hooks the session into its engine's score observer
func (s *Session) observeScores() {
	s.Engine.SetScoreObserver(func(score int) {
		s.scores = append(s.scores, score)
	})
}

func (s *Session) drainScores() []int {
	scores := s.scores
	s.scores = nil
	return scores
}
