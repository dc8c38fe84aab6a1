// Package ws carries the interactive debriefing Q&A over a websocket so the
// rep answers questions conversationally instead of posting one at a time.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens before the upgrade via the JWT middleware.
		return true
	},
}

// inbound is what the client sends: a start request or an answer.
type inbound struct {
	Type      string `json:"type"` // "start" | "answer"
	SessionID string `json:"session_id,omitempty"`
	Answer    string `json:"answer,omitempty"`
}

// outbound is what the server sends back.
type outbound struct {
	Type     string                     `json:"type"` // "question" | "completed" | "error"
	Question *models.DebriefingQuestion `json:"question,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// DebriefingHandler upgrades the connection and drives one debriefing session
// per socket.
type DebriefingHandler struct {
	debriefings *services.DebriefingService
	logger      *slog.Logger
}

func NewDebriefingHandler(debriefings *services.DebriefingService, logger *slog.Logger) *DebriefingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebriefingHandler{debriefings: debriefings, logger: logger}
}

func (h *DebriefingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := &conversation{
		handler: h,
		conn:    conn,
		send:    make(chan outbound, 8),
		done:    make(chan struct{}),
	}
	go session.writeLoop()
	session.readLoop(r.Context())
}

// conversation is one connected client's Q&A state.
type conversation struct {
	handler   *DebriefingHandler
	conn      *websocket.Conn
	send      chan outbound
	done      chan struct{} // closed when writeLoop exits
	sessionID uuid.UUID
	started   bool
}

// post queues a message for the writer. If the writer has exited, for
// example on a write error, the message is dropped instead of blocking the
// read side forever on a full send buffer.
func (c *conversation) post(msg outbound) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *conversation) readLoop(ctx context.Context) {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.post(outbound{Type: "error", Error: "invalid message"})
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *conversation) handle(ctx context.Context, msg inbound) {
	switch msg.Type {
	case "start":
		sessionID, err := uuid.Parse(msg.SessionID)
		if err != nil {
			c.post(outbound{Type: "error", Error: "invalid session id"})
			return
		}
		question, err := c.handler.debriefings.StartDebriefing(ctx, sessionID)
		if err != nil {
			c.post(outbound{Type: "error", Error: err.Error()})
			return
		}
		c.sessionID = sessionID
		c.started = true
		c.post(outbound{Type: "question", Question: question})

	case "answer":
		if !c.started {
			c.post(outbound{Type: "error", Error: "session not started"})
			return
		}
		question, err := c.handler.debriefings.SubmitAnswer(ctx, c.sessionID, msg.Answer)
		if err != nil {
			if errors.Is(err, services.ErrNoMoreQuestions) {
				c.post(outbound{Type: "completed"})
				return
			}
			c.post(outbound{Type: "error", Error: err.Error()})
			return
		}
		if question == nil {
			c.post(outbound{Type: "completed"})
			return
		}
		c.post(outbound{Type: "question", Question: question})

	default:
		c.post(outbound{Type: "error", Error: "unknown message type"})
	}
}

func (c *conversation) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Closing the connection unblocks readLoop's ReadMessage, and
		// closing done unblocks any post waiting on a full buffer.
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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
