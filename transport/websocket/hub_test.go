package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/lane-runner/game/engine"
	"github.com/wricardo/lane-runner/game/service"
)

// fakeHandler records commands and answers with canned state
type fakeHandler struct {
	mu       sync.Mutex
	moves    []string
	restarts int
}

func (f *fakeHandler) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	return &engine.Snapshot{Status: engine.StatusRunning, Message: "hello " + sessionID}, nil
}

func (f *fakeHandler) Move(ctx context.Context, sessionID, direction string) (*service.MoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := engine.ParseDirection(direction)
	if !ok {
		return nil, errors.New("invalid direction")
	}
	f.moves = append(f.moves, direction)
	return &service.MoveResult{
		Success:   true,
		Direction: d,
		GameState: &engine.Snapshot{PendingMoves: []engine.Direction{d}},
	}, nil
}

func (f *fakeHandler) Restart(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	return &engine.Snapshot{Runs: f.restarts + 1, Message: "New run started"}, nil
}

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		id:        sessionID + "-client",
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return message
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No message received within timeout")
	}
	return Message{}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	client1 := newTestClient(hub, "multi")
	client2 := newTestClient(hub, "multi")

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount("multi") != 2 {
		t.Fatalf("Expected 2 clients in session, got %d", hub.ClientCount("multi"))
	}

	hub.unregisterClient(client1)
	if hub.ClientCount("multi") != 1 || !hub.sessions["multi"][client2] {
		t.Error("client2 should still be registered")
	}
	if _, ok := <-client1.send; ok {
		t.Error("Unregistered client's send channel should be closed")
	}

	// unregistering twice must not close the channel again
	hub.unregisterClient(client1)

	hub.unregisterClient(client2)
	if _, exists := hub.sessions["multi"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub(nil)
	mine := newTestClient(hub, "mine")
	other := newTestClient(hub, "other")
	hub.registerClient(mine)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{
		SessionID: "mine",
		Event:     EventStateUpdate,
		GameState: &engine.Snapshot{Score: 7, Player: engine.PlayerView{Position: engine.GridPosition{Row: 7, Lane: -2}}},
	})

	message := receive(t, mine)
	if message.Event != EventStateUpdate || message.GameState.Score != 7 {
		t.Errorf("Unexpected message %+v", message)
	}
	if message.GameState.Player.Position != (engine.GridPosition{Row: 7, Lane: -2}) {
		t.Errorf("GameState not correctly transmitted: %+v", message.GameState.Player)
	}

	select {
	case <-other.send:
		t.Error("Other session must not receive the message")
	default:
	}
}

func TestHubTargetedMessage(t *testing.T) {
	hub := NewHub(nil)
	a := newTestClient(hub, "s")
	b := newTestClient(hub, "s")
	hub.registerClient(a)
	hub.registerClient(b)

	hub.broadcastMessage(&Message{SessionID: "s", Event: EventError, Error: "nope", target: b})

	if message := receive(t, b); message.Error != "nope" {
		t.Errorf("Expected targeted error, got %+v", message)
	}
	select {
	case <-a.send:
		t.Error("Untargeted client must not receive the message")
	default:
	}
}

func TestHubSlowConsumerDropped(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{id: "slow", hub: hub, sessionID: "s", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s", Event: EventFrame})
	if hub.ClientCount("s") != 0 {
		t.Error("A client that cannot keep up should be unregistered")
	}
}

func TestHubBroadcastFrame(t *testing.T) {
	hub := NewHub(nil)

	// nobody watching: nothing queued
	hub.BroadcastFrame(&service.FrameUpdate{SessionID: "idle", Frame: &engine.TickResult{}})
	if len(hub.broadcast) != 0 {
		t.Fatalf("Expected no queued message, got %d", len(hub.broadcast))
	}

	client := newTestClient(hub, "live")
	hub.registerClient(client)

	tests := []struct {
		status engine.Status
		want   string
	}{
		{engine.StatusRunning, EventFrame},
		{engine.StatusTerminal, EventGameOver},
	}
	for _, tt := range tests {
		hub.BroadcastFrame(&service.FrameUpdate{SessionID: "live", Frame: &engine.TickResult{Status: tt.status, Score: 3}})
		message := <-hub.broadcast
		if message.Event != tt.want || message.Frame.Score != 3 {
			t.Errorf("status %s: expected event %s, got %+v", tt.status, tt.want, message)
		}
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub(nil)
	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" || message.Event != "custom-event" || message.Data != "test-data" {
			t.Errorf("Unexpected broadcast %+v", message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message received within timeout")
	}
}

func TestHubHandleCommand(t *testing.T) {
	handler := &fakeHandler{}
	hub := NewHub(handler)
	client := newTestClient(hub, "cmd")
	hub.registerClient(client)

	tests := []struct {
		name      string
		cmd       Command
		wantEvent string
	}{
		{"move", Command{Action: "move", Direction: "forward"}, EventMoveResult},
		{"bad direction", Command{Action: "move", Direction: "diagonal"}, EventError},
		{"restart", Command{Action: "restart"}, EventStateUpdate},
		{"unknown", Command{Action: "jump"}, EventError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub.handleCommand(client, tt.cmd)
			hub.broadcastMessage(<-hub.broadcast)
			if message := receive(t, client); message.Event != tt.wantEvent {
				t.Errorf("Expected %s, got %+v", tt.wantEvent, message)
			}
		})
	}

	if len(handler.moves) != 1 || handler.restarts != 1 {
		t.Errorf("Expected 1 move and 1 restart, got %v / %d", handler.moves, handler.restarts)
	}
}

func TestHubWithoutHandler(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "s")
	hub.registerClient(client)

	hub.handleCommand(client, Command{Action: "restart"})
	if message := <-hub.broadcast; message.Event != EventError || message.target != client {
		t.Errorf("Expected a targeted error, got %+v", message)
	}
}

func startHub(t *testing.T, handler CommandHandler) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(handler)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketLifecycle(t *testing.T) {
	hub, server := startHub(t, nil)
	conn := dial(t, server, "ws-test")

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	hub.BroadcastToSession("ws-test", &engine.Snapshot{Score: 200, Runs: 2})
	message := readMessage(t, conn)
	if message.SessionID != "ws-test" || message.GameState.Score != 200 || message.GameState.Runs != 2 {
		t.Errorf("Unexpected message %+v", message)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketCommands(t *testing.T) {
	handler := &fakeHandler{}
	_, server := startHub(t, handler)
	conn := dial(t, server, "play")

	initial := readMessage(t, conn)
	if initial.Event != EventStateUpdate || initial.GameState.Message != "hello play" {
		t.Fatalf("Expected initial state, got %+v", initial)
	}

	if err := conn.WriteJSON(Command{Action: "move", Direction: "left"}); err != nil {
		t.Fatal(err)
	}
	if message := readMessage(t, conn); message.Event != EventMoveResult {
		t.Errorf("Expected move result, got %+v", message)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{garbage")); err != nil {
		t.Fatal(err)
	}
	if message := readMessage(t, conn); message.Event != EventError {
		t.Errorf("Expected error for malformed command, got %+v", message)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "s")
	hub.registerClient(client)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if hub.ClientCount("s") != 0 {
		t.Error("Run should close every client on exit")
	}
}
