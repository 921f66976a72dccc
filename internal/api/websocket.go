// Package api - WebSocket handlers for jackpot tickers and slot sessions
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/slots"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient represents a WebSocket client connection
type WSClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	sessionID string
	playerID  string
	gameID    string
	currency  string

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// HandleJackpotSocket streams progressive pool totals on /ws/jackpots
func (h *Handler) HandleJackpotSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn)
	go h.writePump(c)
	go h.drain(c)

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	h.pushJackpots(r.Context(), c)
	for {
		select {
		case <-ticker.C:
			h.pushJackpots(r.Context(), c)
		case <-c.done:
			return
		}
	}
}

func (h *Handler) pushJackpots(ctx context.Context, c *WSClient) {
	pools, err := h.engine.Jackpots(ctx)
	if err != nil {
		h.log.Warn("failed to read jackpot pools", zap.Error(err))
		return
	}
	h.sendMessage(c, "jackpots", pools)
}

// drain reads until the peer goes away so control frames are processed
func (h *Handler) drain(c *WSClient) {
	defer c.close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// HandleSessionSocket plays a slot game session over /api/v1/ws/sessions/{id}
func (h *Handler) HandleSessionSocket(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	session, err := h.engine.Session(r.Context(), player, mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if session.Status != domain.GameSessionActive {
		respondError(w, http.StatusBadRequest, "SESSION_NOT_ACTIVE", "Game session is not active")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn)
	c.sessionID = session.ID
	c.playerID = player
	c.gameID = session.GameID
	c.currency = session.Currency

	go h.writePump(c)
	go h.readPump(c)
}

// writePump pumps messages from the send channel to the WebSocket connection
func (h *Handler) writePump(c *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump pumps messages from the WebSocket connection to the handler
func (h *Handler) readPump(c *WSClient) {
	defer c.close()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	h.sendMessage(c, "connected", map[string]interface{}{
		"session_id": c.sessionID,
		"game_id":    c.gameID,
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.sendError(c, "INVALID_MESSAGE", "Invalid message format")
			continue
		}
		h.handleWSMessage(c, &msg)
	}
}

// handleWSMessage processes incoming WebSocket messages
func (h *Handler) handleWSMessage(c *WSClient, msg *WSMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "spin":
		h.handleSpinMessage(ctx, c, msg)

	case "history":
		history, err := h.engine.History(ctx, c.playerID, 10)
		if err != nil {
			h.sendError(c, "HISTORY_ERROR", "Failed to get history")
			return
		}
		h.sendMessage(c, "history", history)

	case "session_info":
		session, err := h.engine.Session(ctx, c.playerID, c.sessionID)
		if err != nil {
			h.sendError(c, "SESSION_ERROR", "Failed to get session")
			return
		}
		h.sendMessage(c, "session_info", session)

	case "ping":
		h.sendMessage(c, "pong", map[string]interface{}{
			"timestamp": time.Now().Unix(),
		})

	default:
		h.sendError(c, "UNKNOWN_MESSAGE", "Unknown message type: "+msg.Type)
	}
}

// handleSpinMessage plays one spin on the session's game
func (h *Handler) handleSpinMessage(ctx context.Context, c *WSClient, msg *WSMessage) {
	var payload spinRequest
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.sendError(c, "INVALID_PAYLOAD", "Invalid spin payload")
		return
	}

	if _, err := h.engine.CheckGame(c.gameID); err != nil {
		code, _ := errorCode(err)
		h.sendError(c, code, err.Error())
		return
	}

	result, err := h.engine.Slots().Spin(ctx, slots.SpinRequest{
		PlayerID: c.playerID,
		GameID:   c.gameID,
		Bet:      payload.money(c.currency),
		Paylines: payload.Paylines,
	})
	if err != nil {
		code, status := errorCode(err)
		if status == http.StatusInternalServerError {
			h.log.Error("websocket spin failed", zap.String("session_id", c.sessionID), zap.Error(err))
			h.sendError(c, code, "Internal server error")
			return
		}
		h.sendError(c, code, err.Error())
		return
	}
	h.sendMessage(c, "outcome", result)
}

// sendMessage queues a message for the client, dropping it when the queue is full
func (h *Handler) sendMessage(c *WSClient, msgType string, payload interface{}) {
	payloadBytes, _ := json.Marshal(payload)
	msgBytes, _ := json.Marshal(WSMessage{
		Type:    msgType,
		Payload: payloadBytes,
	})

	select {
	case c.send <- msgBytes:
	case <-c.done:
	default:
	}
}

// sendError sends an error message to the client
func (h *Handler) sendError(c *WSClient, code, message string) {
	h.sendMessage(c, "error", map[string]string{
		"code":    code,
		"message": message,
	})
}
