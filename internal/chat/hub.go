// AngelaMos | 2026
// hub.go

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type Subscriber interface {
	PSubscribe(ctx context.Context, pattern string) (<-chan core.PubSubMessage, error)
}

type subscription struct {
	client         *Client
	conversationID string
	join           bool
}

// Hub fans pub/sub messages out to the local WebSocket clients that
// subscribed to a conversation. Run owns every map; other goroutines
// talk to it over channels.
type Hub struct {
	subscriber  Subscriber
	prefix      string
	connections prometheus.Gauge
	logger      *slog.Logger

	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	done       chan struct{}
}

func NewHub(
	subscriber Subscriber,
	prefix string,
	connections prometheus.Gauge,
	logger *slog.Logger,
) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		subscriber:  subscriber,
		prefix:      prefix,
		connections: connections,
		logger:      logger,
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		done:        make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or the broker subscription ends.
func (h *Hub) Run(ctx context.Context) error {
	msgs, err := h.subscriber.PSubscribe(ctx, h.prefix+"*")
	if err != nil {
		close(h.done)
		return fmt.Errorf("subscribe chat channels: %w", err)
	}

	defer func() {
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.register:
			h.clients[c] = true
			h.setGauge()

		case c := <-h.unregister:
			h.drop(c)

		case sub := <-h.subscribe:
			if !h.clients[sub.client] {
				continue
			}
			if sub.join {
				room, ok := h.rooms[sub.conversationID]
				if !ok {
					room = make(map[*Client]bool)
					h.rooms[sub.conversationID] = room
				}
				room[sub.client] = true
				sub.client.rooms[sub.conversationID] = true
			} else {
				h.leave(sub.client, sub.conversationID)
			}

		case msg, ok := <-msgs:
			if !ok {
				h.logger.Warn("chat subscription closed")
				return nil
			}
			h.fanOut(strings.TrimPrefix(msg.Channel, h.prefix), msg.Payload)
		}
	}
}

func (h *Hub) fanOut(conversationID string, payload []byte) {
	for c := range h.rooms[conversationID] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping slow chat client", "user_id", c.userID)
			h.drop(c)
		}
	}
}

func (h *Hub) leave(c *Client, conversationID string) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, c)
	delete(c.rooms, conversationID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

func (h *Hub) drop(c *Client) {
	if !h.clients[c] {
		return
	}
	for id := range c.rooms {
		h.leave(c, id)
	}
	delete(h.clients, c)
	close(c.send)
	h.setGauge()
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.drop(c)
	}
}

func (h *Hub) setGauge() {
	if h.connections != nil {
		h.connections.Set(float64(len(h.clients)))
	}
}

func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) update(sub subscription) {
	select {
	case h.subscribe <- sub:
	case <-h.done:
	}
}
