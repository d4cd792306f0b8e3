package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	tempmail "github.com/tempmailkit/tempmail-go"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBuffer     = 64
	maxConnPerUser = 8
)

// EventType tells websocket listeners what an Event carries.
type EventType string

// Event types.
const (
	EventNotice   EventType = "notice"
	EventSnapshot EventType = "snapshot"
)

// Event is pushed to every websocket listening on a session.
type Event struct {
	Type      EventType          `json:"type"`
	Notice    *tempmail.Notice   `json:"notice,omitempty"`
	Session   *tempmail.Snapshot `json:"session,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// listener is one websocket connection.
type listener struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans session events out to websocket connections, keyed by session ID.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[*listener]struct{}
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewHub creates a hub accepting connections from allowedOrigins ("*" for
// any).
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		listeners: make(map[string]map[*listener]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Serve upgrades the request and streams events of sessionID until the
// peer goes away. first, if non-nil, is sent before anything else.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, first *Event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	l := &listener{conn: conn, send: make(chan []byte, sendBuffer)}
	if first != nil {
		if data, err := json.Marshal(first); err == nil {
			l.send <- data
		}
	}
	if !h.register(sessionID, l) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			time.Now().Add(writeWait))
		return conn.Close()
	}

	go h.writePump(sessionID, l)
	h.readPump(sessionID, l)
	return nil
}

// Publish sends ev to every listener of sessionID. Slow listeners miss
// events rather than blocking the caller.
func (h *Hub) Publish(sessionID string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.listeners[sessionID]
	if len(set) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", zap.Error(err))
		return
	}
	for l := range set {
		select {
		case l.send <- data:
		default:
			h.logger.Warn("websocket listener blocked, dropping event", zap.String("session", sessionID))
		}
	}
}

// Connections returns the number of listeners of sessionID.
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[sessionID])
}

// Drop disconnects every listener of sessionID.
func (h *Hub) Drop(sessionID string) {
	h.mu.Lock()
	set := h.listeners[sessionID]
	delete(h.listeners, sessionID)
	h.mu.Unlock()

	for l := range set {
		close(l.send)
	}
}

func (h *Hub) register(sessionID string, l *listener) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.listeners[sessionID]
	if !ok {
		set = make(map[*listener]struct{})
		h.listeners[sessionID] = set
	}
	if len(set) >= maxConnPerUser {
		return false
	}
	set[l] = struct{}{}
	return true
}

func (h *Hub) unregister(sessionID string, l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.listeners[sessionID]
	if !ok {
		return
	}
	if _, ok := set[l]; !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(h.listeners, sessionID)
	}
	close(l.send)
}

// readPump discards client frames and returns when the connection drops.
func (h *Hub) readPump(sessionID string, l *listener) {
	defer func() {
		h.unregister(sessionID, l)
		_ = l.conn.Close()
	}()

	l.conn.SetReadLimit(512)
	_ = l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := l.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(sessionID string, l *listener) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = l.conn.Close()
	}()

	for {
		select {
		case data, ok := <-l.send:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = l.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("websocket write failed", zap.String("session", sessionID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
