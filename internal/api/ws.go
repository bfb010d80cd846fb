package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 1024
	// Outbound messages buffered per session before it counts as slow.
	sendBuffer = 256
)

// Websocket message types.
const (
	MsgState = "state"
	MsgAck   = "ack"
	MsgError = "error"
)

// Envelope is the websocket frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type stateMessage struct {
	Session string          `json:"session,omitempty"` // Only on the first message of a session
	State   engine.Snapshot `json:"state"`
	Events  []engine.Event  `json:"events,omitempty"`
}

type errorMessage struct {
	Command string `json:"command"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// session is one websocket connection.
type session struct {
	id   uuid.UUID
	ip   string
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, ip string) *session {
	return &session{
		id:   uuid.New(),
		ip:   ip,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue queues msg for the write pump. A session whose buffer is full is closed.
func (c *session) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		slog.Warn("websocket session too slow, dropping", "session", c.id)
		c.close()
		return false
	}
}

func (c *session) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *session) reply(env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		slog.Error("marshal failed", "error", err)
		return
	}
	c.enqueue(b)
}

// Hub tracks the connected sessions and fans broadcasts out to them.
type Hub struct {
	mu       sync.Mutex
	sessions map[*session]bool

	broadcast  chan []byte
	register   chan *session
	unregister chan *session
	stopped    chan struct{}
}

// NewHub creates an idle hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[*session]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *session),
		unregister: make(chan *session),
		stopped:    make(chan struct{}),
	}
}

// Run is the hub's main loop. Every session is closed when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.sessions {
				c.close()
				delete(h.sessions, c)
			}
			h.mu.Unlock()
			slog.Info("websocket hub stopped")
			return
		case c := <-h.register:
			h.mu.Lock()
			h.sessions[c] = true
			n := len(h.sessions)
			h.mu.Unlock()
			slog.Info("websocket session opened", "session", c.id, "ip", c.ip, "sessions", n)
		case c := <-h.unregister:
			h.mu.Lock()
			if h.sessions[c] {
				delete(h.sessions, c)
				c.close()
				slog.Info("websocket session closed", "session", c.id, "sessions", len(h.sessions))
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.sessions {
				if !c.enqueue(msg) {
					delete(h.sessions, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues env for every session without blocking.
func (h *Hub) Broadcast(env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		slog.Error("marshal failed", "error", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		slog.Warn("websocket broadcast queue full, dropping", "type", env.Type)
	}
}

// Sessions returns the number of connected sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) add(c *session) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) remove(c *session) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// handleWS upgrades the connection and serves one session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newSession(conn, clientIP(r))
	if !s.hub.add(c) {
		conn.Close()
		return
	}
	c.reply(Envelope{Type: MsgState, Payload: mustJSON(stateMessage{
		Session: c.id.String(),
		State:   s.Eng.Snapshot(),
	})})

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *session) {
	defer func() {
		s.hub.remove(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "session", c.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.replyError("", "bad_request", "invalid json")
			continue
		}
		if !s.limiter.Allow(c.ip) {
			c.replyError(env.Type, "rate_limited", "rate limit exceeded")
			continue
		}

		cmd, err := decodeCommand(env)
		if err != nil {
			c.replyError(env.Type, "bad_request", err.Error())
			continue
		}
		res, err := s.Apply(cmd)
		if err != nil {
			kind, _ := errorKind(err)
			c.replyError(env.Type, kind, err.Error())
			continue
		}
		c.reply(Envelope{Type: MsgAck, Payload: mustJSON(res)})
	}
}

func (s *Server) writePump(c *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *session) replyError(command, kind, msg string) {
	c.reply(Envelope{Type: MsgError, Payload: mustJSON(errorMessage{
		Command: command,
		Kind:    kind,
		Message: msg,
	})})
}

// decodeCommand turns an incoming envelope into a Command.
func decodeCommand(env Envelope) (Command, error) {
	cmd := Command{Type: env.Type}
	switch env.Type {
	case CmdSelect:
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ID == "" {
			return cmd, errors.New("select needs a payload with an archetype id")
		}
		cmd.ID = catalog.ID(p.ID)
	case CmdHover:
		var p struct {
			X *int `json:"x"`
			Y *int `json:"y"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.X == nil || p.Y == nil {
			return cmd, errors.New("hover needs a payload with integer x and y")
		}
		cmd.X, cmd.Y = *p.X, *p.Y
	case CmdCommit, CmdCancel:
	default:
		return cmd, fmt.Errorf("unknown message type %q", env.Type)
	}
	return cmd, nil
}
