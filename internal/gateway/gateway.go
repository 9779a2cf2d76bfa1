// Package gateway bridges one websocket connection to one conversation
// session: client frames drive the session, timeline and conversation-list
// snapshots flow back.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/festivo/messaging-service/internal/config"
	"github.com/festivo/messaging-service/internal/model"
	"github.com/festivo/messaging-service/internal/session"
)

const sendBufferSize = 256

type UserClient interface {
	GetUserInfo(ctx context.Context, userID string) (*model.UserInfo, error)
}

// SessionFactory builds the conversation session for one connected user.
type SessionFactory func(user model.UserInfo) *session.Session

type ClientCommand struct {
	Action   string `json:"action"` // open | send | close | conversations
	PeerID   string `json:"peer_id,omitempty"`
	PeerName string `json:"peer_name,omitempty"`
	Content  string `json:"content,omitempty"`
}

type ServerEvent struct {
	Type          string                 `json:"type"` // timeline | conversations | peer_activity | error
	Messages      model.MessageList      `json:"messages,omitempty"`
	Conversations model.ConversationList `json:"conversations,omitempty"`
	PeerID        string                 `json:"peer_id,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Draft         string                 `json:"draft,omitempty"`
}

type Handler struct {
	upgrader   websocket.Upgrader
	userClient UserClient
	newSession SessionFactory
}

func New(userClient UserClient, newSession SessionFactory) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		userClient: userClient,
		newSession: newSession,
	}
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("Serve")

	userUUID, ok := r.Context().Value(config.KeyUUID).(string)
	if !ok {
		logger.Error("failed to get user UUID")
		http.Error(w, "failed to get user UUID", http.StatusInternalServerError)
		return
	}

	userInfo, err := h.userClient.GetUserInfo(r.Context(), userUUID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to get user info: %v", err))
		http.Error(w, "failed to get user info", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to upgrade connection: %v", err))
		return
	}

	// The request context dies with the handshake response; the session
	// outlives it.
	ctx := context.WithValue(context.Background(), config.KeyLogger, logger)
	ctx = context.WithValue(ctx, config.KeyUUID, userUUID)
	ctx, cancel := context.WithCancel(ctx)

	client := &client{
		conn:   conn,
		sess:   h.newSession(*userInfo),
		events: make(chan ServerEvent, sendBufferSize),
		logger: logger,
	}

	client.sess.OnUpdate(func(messages model.MessageList) {
		client.push(ServerEvent{Type: "timeline", Messages: messages})
	})
	client.sess.OnConversations(func(conversations model.ConversationList) {
		client.push(ServerEvent{Type: "conversations", Conversations: conversations})
	})
	client.sess.OnPeerActivity(func(peerID string) {
		client.push(ServerEvent{Type: "peer_activity", PeerID: peerID})
	})

	go client.writePump()
	client.readPump(ctx, cancel)
}

type client struct {
	conn   *websocket.Conn
	sess   *session.Session
	logger logger_lib.LoggerInterface

	mu     sync.Mutex
	closed bool
	events chan ServerEvent
}

// push enqueues an event; a connection too slow to drain its buffer loses
// the event, the next open re-fetches authoritative state anyway. Session
// observers can fire from background refreshes after the connection is gone,
// so a closed client swallows the event instead of touching the channel.
func (c *client) push(event ServerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.events <- event:
	default:
		c.logger.Warn("dropping event for slow connection")
	}
}

// shutdown stops push and releases the write pump. Idempotent.
func (c *client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.events)
}

func (c *client) writePump() {
	for event := range c.events {
		payload, err := json.Marshal(event)
		if err != nil {
			c.logger.Error(fmt.Sprintf("failed to marshal event: %v", err))
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.sess.Close()
		c.shutdown()
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error(fmt.Sprintf("websocket error: %v", err))
			}
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.push(ServerEvent{Type: "error", Error: "invalid command"})
			continue
		}

		c.handle(ctx, cmd)
	}
}

func (c *client) handle(ctx context.Context, cmd ClientCommand) {
	switch cmd.Action {
	case "open":
		if err := c.sess.Open(ctx, cmd.PeerID, cmd.PeerName); err != nil {
			c.push(ServerEvent{Type: "error", Error: errorMessage(err)})
		}
		conversations, err := c.sess.Conversations(ctx)
		if err != nil {
			c.push(ServerEvent{Type: "error", Error: errorMessage(err)})
			return
		}
		c.push(ServerEvent{Type: "conversations", Conversations: conversations})
	case "send":
		if _, err := c.sess.Send(ctx, cmd.Content); err != nil {
			c.push(ServerEvent{Type: "error", Error: errorMessage(err), Draft: c.sess.Draft()})
		}
	case "conversations":
		conversations, err := c.sess.Conversations(ctx)
		if err != nil {
			c.push(ServerEvent{Type: "error", Error: errorMessage(err)})
			return
		}
		c.push(ServerEvent{Type: "conversations", Conversations: conversations})
	case "close":
		c.sess.Close()
	default:
		c.push(ServerEvent{Type: "error", Error: fmt.Sprintf("unknown action %q", cmd.Action)})
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return err.Error()
	case errors.Is(err, model.ErrTransport):
		return "temporarily unavailable, please retry"
	default:
		return err.Error()
	}
}
