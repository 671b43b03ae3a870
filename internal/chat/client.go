// AngelaMos | 2026
// client.go

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

type Authorizer interface {
	Authorize(ctx context.Context, conversationID, userID string) (*Conversation, error)
}

type clientCommand struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
}

type clientReply struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Client is one WebSocket connection. rooms is owned by the hub
// goroutine.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	replies    chan []byte
	userID     string
	authorizer Authorizer
	readLimit  int64
	rooms      map[string]bool
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close() //nolint:errcheck // connection is finished
	}()

	c.conn.SetReadLimit(c.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // surfaced by next read
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				c.hub.logger.Debug("chat read failed", "user_id", c.userID, "error", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil || !core.IsValidID(cmd.ConversationID) {
			c.reply(clientReply{Type: "error", Error: "invalid command"})
			continue
		}

		switch cmd.Action {
		case ActionSubscribe:
			if _, err := c.authorizer.Authorize(ctx, cmd.ConversationID, c.userID); err != nil {
				c.reply(clientReply{
					Type:           "error",
					ConversationID: cmd.ConversationID,
					Error:          subscribeError(err),
				})
				continue
			}
			c.hub.update(subscription{client: c, conversationID: cmd.ConversationID, join: true})
			c.reply(clientReply{Type: "subscribed", ConversationID: cmd.ConversationID})

		case ActionUnsubscribe:
			c.hub.update(subscription{client: c, conversationID: cmd.ConversationID})
			c.reply(clientReply{Type: "unsubscribed", ConversationID: cmd.ConversationID})

		default:
			c.reply(clientReply{Type: "error", Error: "unsupported action"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() //nolint:errcheck // connection is finished
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaced by write
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck // closing anyway
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case reply := <-c.replies:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaced by write
			if err := c.conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaced by write
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a control frame for writePump. replies is separate from
// send because only the hub may close send. Frames past the buffer are
// dropped.
func (c *Client) reply(r clientReply) {
	payload, err := json.Marshal(r)
	if err != nil {
		return
	}
	select {
	case c.replies <- payload:
	default:
	}
}

func subscribeError(err error) string {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return "conversation not found"
	case errors.Is(err, core.ErrForbidden):
		return "not a participant"
	default:
		return "subscribe failed"
	}
}
