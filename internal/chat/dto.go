// AngelaMos | 2026
// dto.go

package chat

import (
	"time"
)

type CreateConversationRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
}

type SendMessageRequest struct {
	Type    string `json:"type"    validate:"omitempty,oneof=TEXT IMAGE"`
	Content string `json:"content" validate:"required,max=4000"`
}

type ConversationResponse struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"item_id"`
	ItemTitle     string     `json:"item_title,omitempty"`
	BuyerID       string     `json:"buyer_id"`
	BuyerName     string     `json:"buyer_name,omitempty"`
	SellerID      string     `json:"seller_id"`
	SellerName    string     `json:"seller_name,omitempty"`
	UnreadCount   int        `json:"unread_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type MessageResponse struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Type           string     `json:"type"`
	Content        string     `json:"content"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ReadResponse struct {
	Updated int64 `json:"updated"`
}

type UnreadResponse struct {
	Unread int `json:"unread"`
}

func ToConversationResponse(c *Conversation) ConversationResponse {
	return ConversationResponse{
		ID:            c.ID,
		ItemID:        c.ItemID,
		ItemTitle:     c.ItemTitle,
		BuyerID:       c.BuyerID,
		BuyerName:     c.BuyerName,
		SellerID:      c.SellerID,
		SellerName:    c.SellerName,
		UnreadCount:   c.UnreadCount,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Type:           m.Type,
		Content:        m.Content,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}
