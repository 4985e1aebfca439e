package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/jpillora/backoff"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/lane-runner/game/engine"
	"github.com/wricardo/lane-runner/game/service"
)

var logger = log15.New("module", "mcp")

// Retry policy for calls to the REST API
const (
	maxAttempts = 3
	retryMin    = 50 * time.Millisecond
	retryMax    = time.Second
)

// APIError is a non-2xx answer from the REST API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.Status)
}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Lane Runner",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Lane Runner - MCP Interface

This is a thin client that proxies every call to the REST API server.

OBJECTIVE:
Cross as many rows as you can. Your score is the row you stand on. Cars and
trucks slide along road rows and end the run on contact. Trees block moves.

THE CLOCK:
The world only moves when time passes. Call tick on a normal session to
advance it. Live sessions are advanced by the server on its own.

AVAILABLE TOOLS:
- create_session: Start a game (optionally pick a config, or make it live)
- list_sessions / get_session: Inspect sessions
- game_state: Status, score and a map of the rows around you
- queue_move: Queue one step (forward/backward/left/right)
- bulk_move: Queue several steps at once
- tick: Advance world time
- restart_game: Start a new run in the same session
- move_history: Completed steps
- describe_rows: Detailed view of a row range with traffic gaps
- list_configs: Available configurations
- game_instructions: Full rules and map legend`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func (c *Client) registerTools() {
	// Sessions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config to use, see list_configs (optional, default classic)",
				},
				"live": map[string]interface{}{
					"type":        "boolean",
					"description": "Let the server advance the world in real time (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current state of the run and a map of the nearby rows",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "queue_move",
		Description: "Queue one step. It is validated against the tile where the queue will end and animated on later ticks.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"forward", "backward", "left", "right"},
					"description": "Direction to step",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Why you are making this move",
				},
			},
			Required: []string{"session_id", "direction", "intent"},
		},
	}, c.handleQueueMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Queue up to %d steps in order. Queueing stops at the first invalid or blocked step.", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"moves": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Directions in order, e.g. [\"forward\", \"forward\", \"left\"]",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "What the sequence is meant to achieve",
				},
			},
			Required: []string{"session_id", "moves", "intent"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance world time. Vehicles move, queued steps animate and collisions are checked every frame.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"dt": map[string]interface{}{
					"type":        "number",
					"description": fmt.Sprintf("Seconds per frame (optional, default 0.05, max %.1f)", service.MaxFrameDt),
				},
				"frames": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Number of frames (optional, default 1, max %d)", engine.MaxTicksPerCall),
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "restart_game",
		Description: "Start a new run on a fresh world. Best score and history are kept.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleRestart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the completed steps of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (optional, default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Entries per page (optional, default 20)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (optional, default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_rows",
		Description: "Describe a range of rows: trees, traffic direction and speed, and how close the nearest vehicle is to your lane",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"from": map[string]interface{}{
					"type":        "integer",
					"description": "First row (optional, default a few rows behind you)",
				},
				"to": map[string]interface{}{
					"type":        "integer",
					"description": "Last row (optional, default a few rows ahead)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleDescribeRows)

	// Info
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules, map legend and a suggested play loop",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func newBackoff() *backoff.Backoff {
	return &backoff.Backoff{Min: retryMin, Max: retryMax, Factor: 2, Jitter: true}
}

// wait sleeps for the next backoff step unless ctx ends first
func wait(ctx context.Context, b *backoff.Backoff) error {
	t := time.NewTimer(b.Duration())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// apiCall performs a REST call. Transport failures and 5xx answers of GET
// and DELETE calls are retried with backoff. Other methods change game state
// and are retried only when the connection could not be made. 4xx answers
// are returned at once as *APIError.
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = data
	}

	b := newBackoff()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, b); err != nil {
				return err
			}
		}

		retry, err := c.do(ctx, method, path, payload, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		logger.Debug("api call failed", "method", method, "path", path, "attempt", attempt, "err", err)
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, result interface{}) (retry bool, err error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return false, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil && (idempotent(method) || notSent(err)), err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return resp.StatusCode >= 500 && idempotent(method), &APIError{Status: resp.StatusCode, Message: errResp["error"]}
	}

	if result != nil {
		return false, json.NewDecoder(resp.Body).Decode(result)
	}
	return false, nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

// notSent reports whether err happened while dialing, before any request
// bytes reached the server
func notSent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Probe waits until the REST API at baseURL answers its health check,
// trying at most attempts times.
func Probe(ctx context.Context, baseURL string, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	client := &http.Client{Timeout: time.Second}
	b := newBackoff()

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := wait(ctx, b); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/healthz", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		lastErr = fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return fmt.Errorf("api at %s not reachable: %w", baseURL, lastErr)
}

// Argument helpers

var errMissingSession = errors.New("session_id is required")

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func stringArg(args map[string]interface{}, key string) string {
	return strings.TrimSpace(cast.ToString(args[key]))
}

func sessionArg(args map[string]interface{}) (string, error) {
	id := stringArg(args, "session_id")
	if id == "" {
		return "", errMissingSession
	}
	return id, nil
}

// movesArg accepts a JSON array or a comma or space separated string
func movesArg(v interface{}) []string {
	var raw []string
	if s, ok := v.(string); ok {
		raw = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	} else {
		raw = cast.ToStringSlice(v)
	}

	moves := make([]string, 0, len(raw))
	for _, m := range raw {
		if m = strings.TrimSpace(m); m != "" {
			moves = append(moves, m)
		}
	}
	return moves
}

func sessionPath(id, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID := stringArg(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}
	if live := cast.ToBool(args["live"]); live {
		body["live"] = true
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.Live {
		sb.WriteString("Live: the server advances this world in real time\n")
	}
	sb.WriteString("\n")
	sb.WriteString(formatSnapshot(session.GameState, session.GameConfig))
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sessions []*service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(sessions) == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Active sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		sb.WriteString(formatSessionInfo(s))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := sessionArg(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(id, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := sessionArg(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// The session carries the config needed to draw the rows
	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(id, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(session.GameState, session.GameConfig)), nil
}

func (c *Client) handleQueueMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, err := sessionArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction := stringArg(args, "direction")
	logger.Debug("queue move", "session", id, "dir", direction, "intent", stringArg(args, "intent"))

	var result service.MoveResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(id, "/move"), map[string]string{"direction": direction}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, err := sessionArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	moves := movesArg(args["moves"])
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves must list at least one direction"), nil
	}
	logger.Debug("bulk move", "session", id, "moves", len(moves), "intent", stringArg(args, "intent"))

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(id, "/bulk-move"), map[string]interface{}{"moves": moves}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkMoveResult(id, &result)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, err := sessionArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{}
	if v, ok := args["dt"]; ok {
		body["dt"] = cast.ToFloat64(v)
	}
	if v, ok := args["frames"]; ok {
		body["frames"] = cast.ToInt(v)
	}

	var result service.TickResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(id, "/tick"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTickResult(&result)), nil
}

func (c *Client) handleRestart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := sessionArg(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(id, "/restart"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.State, nil))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, err := sessionArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page := cast.ToInt(args["page"]); page > 0 {
		params.Set("page", cast.ToString(page))
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		params.Set("limit", cast.ToString(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(id, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleDescribeRows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, err := sessionArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(id, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	_, hasFrom := args["from"]
	_, hasTo := args["to"]
	if hasFrom || hasTo {
		from := cast.ToInt(args["from"])
		to := cast.ToInt(args["to"])
		if !hasTo {
			to = from + engine.NearbyAhead
		}
		if !hasFrom {
			from = to - engine.NearbyAhead
		}
		params.Set("from", cast.ToString(from))
		params.Set("to", cast.ToString(to))
	}

	path := sessionPath(id, "/rows")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var rows service.RowsResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRows(&rows, session.GameConfig)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(configs) == 0 {
		return mcp.NewToolResultText("No configurations found"), nil
	}

	var sb strings.Builder
	sb.WriteString("Available configurations:\n")
	for _, cfg := range configs {
		seeded := "random world each run"
		if cfg.Seeded {
			seeded = "fixed seed"
		}
		fmt.Fprintf(&sb, "- %s (%s): %d lanes, %.2fs per step, %s\n", cfg.ConfigID, cfg.Name, cfg.Lanes, cfg.StepDuration, seeded)
		if cfg.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", cfg.Description)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `LANE RUNNER

GOAL
Walk forward across an endless stack of rows. Your score is the index of the
row you stand on and your best score survives restarts.

THE WORLD
- Rows at index 0 and below are grass and always safe.
- Forest rows hold trees. A tree blocks the tile it stands on.
- Car and truck rows carry vehicles that slide along the row at a constant
  speed and wrap around at the edges. Trucks are longer than cars.
- Lanes run from the config's min_lane to max_lane. You start at row 0, lane 0.

MOVING
- queue_move and bulk_move add steps to a queue. Each step is checked against
  the tile where the queue will leave you, so a queued step into a tree or off
  the edge is refused at once.
- Vehicles never block a move. They only matter while time passes.
- A step takes step_duration seconds to animate. Your score changes when the
  step lands.

TIME
- Nothing moves until time passes. Call tick with dt and frames on a normal
  session. Live sessions are ticked by the server.
- Every frame moves traffic, then advances your step, then checks for
  collisions. Touching a vehicle ends the run.

MAP LEGEND (game_state, describe_rows)
  @  you
  T  tree
  C  car
  K  truck
  =  empty road
  .  grass or open forest tile
  >> / <<  direction of traffic on a road row

A SIMPLE LOOP
1. game_state to see the rows ahead.
2. describe_rows to check how close traffic is to your lane on the next road.
3. queue_move forward when the gap is wide, or step sideways around trees.
4. tick until the step lands (pending moves reaches 0).
5. Repeat. restart_game after a collision.`

// Formatters

func formatSessionInfo(s *service.SessionInfo) string {
	line := fmt.Sprintf("- %s (config: %s", s.ID, s.ConfigName)
	if s.Live {
		line += ", live"
	}
	line += ")"
	if s.GameState != nil {
		line += fmt.Sprintf(" %s, score %d, best %d, runs %d",
			s.GameState.Status, s.GameState.Score, s.GameState.BestScore, s.GameState.Runs)
	}
	return line + "\n"
}

// formatSnapshot renders the run summary and, when the config is known, a
// map of the nearby rows with the furthest row on top
func formatSnapshot(state *engine.Snapshot, config *engine.GameConfig) string {
	if state == nil {
		return "No game state available\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Status: %s\n", state.Status)
	fmt.Fprintf(&sb, "Score: %d (best %d, run %d)\n", state.Score, state.BestScore, state.Runs)
	fmt.Fprintf(&sb, "Position: row %d, lane %d\n", state.Player.Position.Row, state.Player.Position.Lane)
	if state.Player.Stepping {
		fmt.Fprintf(&sb, "Stepping: %s (%.0f%%)\n", state.Player.Direction, state.Player.Progress*100)
	}
	if len(state.PendingMoves) > 0 {
		fmt.Fprintf(&sb, "Pending moves: %s\n", joinDirections(state.PendingMoves))
	}
	fmt.Fprintf(&sb, "Elapsed: %.2fs, steps: %d, seed: %d\n", state.Elapsed, state.TotalSteps, state.Seed)
	if state.Collision != nil {
		fmt.Fprintf(&sb, "Hit by a %s on row %d at lane %d\n", state.Collision.Kind, state.Collision.Row, state.Collision.At.Lane)
	}
	if state.Message != "" {
		fmt.Fprintf(&sb, "Message: %s\n", state.Message)
	}

	if config != nil && len(state.Nearby) > 0 {
		sb.WriteString("\n")
		for i := len(state.Nearby) - 1; i >= 0; i-- {
			sb.WriteString(engine.RenderRow(config, &state.Nearby[i], state.Player.Position))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func joinDirections(dirs []engine.Direction) string {
	parts := make([]string, len(dirs))
	for i, d := range dirs {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}

func formatEvents(sb *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	sb.WriteString("Events:\n")
	for _, e := range events {
		fmt.Fprintf(sb, "  [%s] %s\n", e.Type, e.Message)
	}
}

func formatMoveResult(result *service.MoveResult) string {
	var sb strings.Builder
	if result.Success {
		fmt.Fprintf(&sb, "Queued %s. You will end at row %d, lane %d.\n",
			result.Direction, result.Projected.Row, result.Projected.Lane)
	} else {
		fmt.Fprintf(&sb, "Move refused: %s\n", result.Message)
		if result.AttemptedTo != nil {
			fmt.Fprintf(&sb, "Attempted tile: row %d, lane %d\n", result.AttemptedTo.Row, result.AttemptedTo.Lane)
		}
	}

	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&sb, "Possible next moves: %s\n", joinDirections(result.PossibleMoves))
	}
	formatEvents(&sb, result.Events)

	if state := result.GameState; state != nil {
		fmt.Fprintf(&sb, "Status: %s, score %d, pending %d\n", state.Status, state.Score, len(state.PendingMoves))
		if state.Status == engine.StatusRunning && len(state.PendingMoves) > 0 {
			sb.WriteString("Call tick to play the queued steps.\n")
		}
	}
	return sb.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s: queued %d of %d moves\n", sessionID, result.MovesQueued, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&sb, "Only the first %d moves were considered\n", result.Limit)
	}
	if result.StopReasonCode != "" {
		fmt.Fprintf(&sb, "Stopped on move %d (%s): %s\n", result.StoppedOnMove, result.StopReasonCode, result.StoppedReason)
		if result.AttemptedTo != nil {
			fmt.Fprintf(&sb, "Attempted tile: row %d, lane %d\n", result.AttemptedTo.Row, result.AttemptedTo.Lane)
		}
	}
	fmt.Fprintf(&sb, "From row %d, lane %d to row %d, lane %d once the queue plays out\n",
		result.StartPos.Row, result.StartPos.Lane, result.ProjectedPos.Row, result.ProjectedPos.Lane)
	if result.Message != "" {
		fmt.Fprintf(&sb, "%s\n", result.Message)
	}
	if result.GameOver {
		sb.WriteString("The run is over. Use restart_game to play again.\n")
	}
	return sb.String()
}

func formatTickResult(result *service.TickResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Advanced %d frame(s) of %.3fs\n", result.Frames, result.Dt)
	fmt.Fprintf(&sb, "Steps completed: %d, score change: %+d\n", result.StepsCompleted, result.ScoreDelta)
	formatEvents(&sb, result.Events)

	if state := result.GameState; state != nil {
		fmt.Fprintf(&sb, "Status: %s, score %d, position row %d, lane %d, pending %d\n",
			state.Status, state.Score, state.Player.Position.Row, state.Player.Position.Lane, len(state.PendingMoves))
		if state.Collision != nil {
			fmt.Fprintf(&sb, "Hit by a %s on row %d\n", state.Collision.Kind, state.Collision.Row)
		}
	}
	if result.GameOver {
		sb.WriteString("The run is over. Use restart_game to play again.\n")
	}
	return sb.String()
}

func formatHistory(history *service.HistoryResponse) string {
	if history.TotalMoves == 0 {
		return "No steps completed yet\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Move history (page %d of %d, %d total):\n", history.Page, history.TotalPages, history.TotalMoves)
	for _, m := range history.Moves {
		fmt.Fprintf(&sb, "#%d run %d: %s (%d,%d) -> (%d,%d) score %d at %.2fs\n",
			m.MoveNumber, m.Run, m.Direction, m.From.Row, m.From.Lane, m.To.Row, m.To.Lane, m.Score, m.Elapsed)
	}
	if history.HasNext {
		sb.WriteString("More entries on the next page\n")
	}
	return sb.String()
}

// formatRows lists each row with the distance from the player's lane to the
// nearest vehicle and whether that lane stays clear for one step
func formatRows(rows *service.RowsResponse, config *engine.GameConfig) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rows %d to %d (player at row %d, lane %d, %d generated)\n",
		rows.From, rows.To, rows.Player.Row, rows.Player.Lane, rows.Generated)
	if len(rows.Rows) == 0 {
		sb.WriteString("No rows in range\n")
		return sb.String()
	}

	for i := len(rows.Rows) - 1; i >= 0; i-- {
		row := &rows.Rows[i]
		if config != nil {
			sb.WriteString(engine.RenderRow(config, row, rows.Player))
			sb.WriteString("\n")
		}

		switch {
		case row.IsRoad():
			fmt.Fprintf(&sb, "      %d %s(s) at speed %.1f", len(row.Vehicles), row.Type, row.Speed)
			if config != nil {
				gap := engine.NearestVehicleGap(config, row, rows.Player.Lane)
				safe := engine.LaneClearFor(config, row, rows.Player.Lane, config.StepDuration, 0)
				fmt.Fprintf(&sb, ", nearest gap on lane %d: %.2f, clear for one step: %t", rows.Player.Lane, gap, safe)
			}
			if row.Frozen {
				sb.WriteString(", frozen")
			}
			sb.WriteString("\n")
		case row.Type == engine.Forest:
			lanes := make([]string, len(row.Trees))
			for j, t := range row.Trees {
				lanes[j] = cast.ToString(t.Lane)
			}
			fmt.Fprintf(&sb, "      trees on lanes %s\n", strings.Join(lanes, ", "))
		}
	}
	return sb.String()
}
