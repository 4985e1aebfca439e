package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/lane-runner/game/engine"
	"github.com/wricardo/lane-runner/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound messages buffered per client and for the hub
	sendBuffer = engine.WebSocketBufferSize
)

// Outbound event names
const (
	EventStateUpdate = "state_update"
	EventFrame       = "frame"
	EventGameOver    = "game_over"
	EventMoveResult  = "move_result"
	EventError       = "error"
)

var logger = log15.New("module", "websocket")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// CommandHandler executes the commands clients send over the socket
type CommandHandler interface {
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	Move(ctx context.Context, sessionID, direction string) (*service.MoveResult, error)
	Restart(ctx context.Context, sessionID string) (*engine.Snapshot, error)
}

// Message is what the server pushes to clients
type Message struct {
	SessionID string              `json:"session_id"`
	Event     string              `json:"event"`
	GameState *engine.Snapshot    `json:"game_state,omitempty"`
	Frame     *engine.TickResult  `json:"frame,omitempty"`
	Events    []service.GameEvent `json:"events,omitempty"`
	Error     string              `json:"error,omitempty"`
	Data      interface{}         `json:"data,omitempty"`

	// target restricts delivery to one client
	target *Client
}

// Command is what clients send: {"action":"move","direction":"forward"} or
// {"action":"restart"}
type Command struct {
	Action    string `json:"action"`
	Direction string `json:"direction,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID, written only by Run
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	handler CommandHandler

	// closed when Run returns
	done chan struct{}
}

// NewHub creates a new WebSocket hub. handler may be nil, in which case
// client commands are answered with an error.
func NewHub(handler CommandHandler) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		handler:    handler,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is done, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to a session
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("upgrade failed", "session", sessionID, "err", err)
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	if h.handler != nil {
		if state, err := h.handler.GetGameState(r.Context(), sessionID); err == nil {
			h.publish(&Message{SessionID: sessionID, Event: EventStateUpdate, GameState: state, target: client})
		}
	}
}

// ClientCount returns the number of clients attached to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionKey(sessionID)])
}

// sessionKey matches the session store, which ignores case
func sessionKey(sessionID string) string {
	return strings.ToLower(sessionID)
}

// BroadcastToSession sends a game state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.Snapshot) {
	h.publish(&Message{
		SessionID: sessionID,
		Event:     EventStateUpdate,
		GameState: state,
	})
}

// BroadcastFrame pushes a live frame to a session's clients. Frames of
// sessions nobody watches are dropped before encoding.
func (h *Hub) BroadcastFrame(update *service.FrameUpdate) {
	if update == nil || h.ClientCount(update.SessionID) == 0 {
		return
	}

	event := EventFrame
	if update.Frame != nil && update.Frame.Status == engine.StatusTerminal {
		event = EventGameOver
	}
	h.publish(&Message{
		SessionID: update.SessionID,
		Event:     event,
		Frame:     update.Frame,
		Events:    update.Events,
	})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.publish(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

// publish queues a message for the event loop without blocking the caller
func (h *Hub) publish(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		logger.Warn("broadcast queue full, dropping message", "session", message.SessionID, "event", message.Event)
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := sessionKey(client.sessionID)
	if h.sessions[key] == nil {
		h.sessions[key] = make(map[*Client]bool)
	}
	h.sessions[key][client] = true

	logger.Debug("client registered", "session", client.sessionID, "client", client.id, "clients", len(h.sessions[key]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClient(client)
}

// removeClient requires h.mu held for writing
func (h *Hub) removeClient(client *Client) {
	key := sessionKey(client.sessionID)
	clients, ok := h.sessions[key]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.sessions, key)
	}

	logger.Debug("client unregistered", "session", client.sessionID, "client", client.id, "remaining", len(clients))
}

// broadcastMessage delivers a message to its session, or to its target only
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("failed to marshal message", "session", message.SessionID, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[sessionKey(message.SessionID)]
	if !ok {
		return
	}
	for client := range clients {
		if message.target != nil && client != message.target {
			continue
		}
		select {
		case client.send <- data:
		default:
			// slow consumer
			h.removeClient(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.sessions {
		for client := range clients {
			h.removeClient(client)
		}
	}
}

// handleCommand runs one client command and publishes the outcome
func (h *Hub) handleCommand(c *Client, cmd Command) {
	if h.handler == nil {
		h.publish(&Message{SessionID: c.sessionID, Event: EventError, Error: "commands are not supported", target: c})
		return
	}

	ctx := context.Background()
	switch cmd.Action {
	case "move":
		result, err := h.handler.Move(ctx, c.sessionID, cmd.Direction)
		if err != nil {
			h.publish(&Message{SessionID: c.sessionID, Event: EventError, Error: err.Error(), target: c})
			return
		}
		h.publish(&Message{
			SessionID: c.sessionID,
			Event:     EventMoveResult,
			GameState: result.GameState,
			Events:    result.Events,
			Data:      result,
		})

	case "restart":
		state, err := h.handler.Restart(ctx, c.sessionID)
		if err != nil {
			h.publish(&Message{SessionID: c.sessionID, Event: EventError, Error: err.Error(), target: c})
			return
		}
		h.BroadcastToSession(c.sessionID, state)

	default:
		h.publish(&Message{SessionID: c.sessionID, Event: EventError, Error: "unknown action " + cmd.Action, target: c})
	}
}

// readPump pumps commands from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("read failed", "session", c.sessionID, "client", c.id, "err", err)
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.hub.publish(&Message{SessionID: c.sessionID, Event: EventError, Error: "malformed command", target: c})
			continue
		}
		c.hub.handleCommand(c, cmd)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
