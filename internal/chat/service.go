// AngelaMos | 2026
// service.go

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/carterperez-dev/templates/nz-market/internal/catalog"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

var ErrSelfConversation = fmt.Errorf(
	"cannot start a conversation about your own item: %w",
	core.ErrInvalidInput,
)

type ItemLookup interface {
	Lookup(ctx context.Context, id string) (*catalog.Item, error)
}

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Event is the envelope pushed to live subscribers of a conversation.
type Event struct {
	Type           string           `json:"type"`
	ConversationID string           `json:"conversation_id"`
	Message        *MessageResponse `json:"message,omitempty"`
	ReaderID       string           `json:"reader_id,omitempty"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
}

const (
	EventMessage = "message"
	EventRead    = "read"
)

type ServiceConfig struct {
	Repo          Repository
	Items         ItemLookup
	Publisher     Publisher
	ChannelPrefix string
	Messages      prometheus.Counter
	Logger        *slog.Logger
}

type Service struct {
	repo      Repository
	items     ItemLookup
	publisher Publisher
	prefix    string
	messages  prometheus.Counter
	logger    *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:      cfg.Repo,
		items:     cfg.Items,
		publisher: cfg.Publisher,
		prefix:    cfg.ChannelPrefix,
		messages:  cfg.Messages,
		logger:    logger,
	}
}

func (s *Service) Channel(conversationID string) string {
	return s.prefix + conversationID
}

// CreateConversation returns the existing conversation for the item,
// requester and seller when there is one.
func (s *Service) CreateConversation(
	ctx context.Context,
	itemID, requesterID string,
) (*Conversation, error) {
	item, err := s.items.Lookup(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.SellerID == requesterID {
		return nil, ErrSelfConversation
	}

	return s.repo.FindOrCreateConversation(ctx, &Conversation{
		ID:       uuid.New().String(),
		ItemID:   item.ID,
		BuyerID:  requesterID,
		SellerID: item.SellerID,
	})
}

func (s *Service) ListConversations(
	ctx context.Context,
	userID string,
) ([]Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// Authorize returns the conversation when userID takes part in it.
func (s *Service) Authorize(
	ctx context.Context,
	conversationID, userID string,
) (*Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("not a participant: %w", core.ErrForbidden)
	}

	return conv, nil
}

func (s *Service) SendMessage(
	ctx context.Context,
	conversationID, senderID, msgType, content string,
) (*Message, error) {
	if _, err := s.Authorize(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	if msgType == "" {
		msgType = TypeText
	}

	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           msgType,
		Content:        content,
	}

	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.CreateMessage(ctx, msg); err != nil {
			return err
		}
		return repo.TouchConversation(ctx, conversationID, msg.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	if s.messages != nil {
		s.messages.Inc()
	}

	resp := ToMessageResponse(msg)
	s.push(ctx, Event{
		Type:           EventMessage,
		ConversationID: conversationID,
		Message:        &resp,
	})

	return msg, nil
}

func (s *Service) ListMessages(
	ctx context.Context,
	conversationID, userID string,
	page core.PageParams,
) ([]Message, int, error) {
	if _, err := s.Authorize(ctx, conversationID, userID); err != nil {
		return nil, 0, err
	}

	page.Normalize()
	return s.repo.ListMessages(ctx, conversationID, page)
}

// MarkAsRead stamps the other participant's unread messages with one
// call time. Calling it again updates nothing.
func (s *Service) MarkAsRead(
	ctx context.Context,
	conversationID, userID string,
) (int64, error) {
	if _, err := s.Authorize(ctx, conversationID, userID); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	n, err := s.repo.MarkRead(ctx, conversationID, userID, now)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.push(ctx, Event{
			Type:           EventRead,
			ConversationID: conversationID,
			ReaderID:       userID,
			ReadAt:         &now,
		})
	}

	return n, nil
}

func (s *Service) UnreadCount(
	ctx context.Context,
	conversationID, userID string,
) (int, error) {
	if _, err := s.Authorize(ctx, conversationID, userID); err != nil {
		return 0, err
	}

	return s.repo.UnreadCount(ctx, conversationID, userID)
}

// push never fails the caller; the message is already committed.
func (s *Service) push(ctx context.Context, evt Event) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Warn("encode chat event", "error", err)
		return
	}

	if err := s.publisher.Publish(
		context.WithoutCancel(ctx),
		s.Channel(evt.ConversationID),
		payload,
	); err != nil {
		s.logger.Warn("chat push failed",
			"conversation_id", evt.ConversationID,
			"type", evt.Type,
			"error", err,
		)
	}
}
