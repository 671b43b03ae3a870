// AngelaMos | 2026
// entity.go

package chat

import (
	"time"
)

const (
	TypeText   = "TEXT"
	TypeImage  = "IMAGE"
	TypeSystem = "SYSTEM"
)

type Conversation struct {
	ID            string     `db:"id"`
	ItemID        string     `db:"item_id"`
	BuyerID       string     `db:"buyer_id"`
	SellerID      string     `db:"seller_id"`
	LastMessageAt *time.Time `db:"last_message_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`

	ItemTitle   string `db:"item_title"`
	BuyerName   string `db:"buyer_name"`
	SellerName  string `db:"seller_name"`
	UnreadCount int    `db:"unread_count"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

type Message struct {
	ID             string     `db:"id"`
	ConversationID string     `db:"conversation_id"`
	SenderID       string     `db:"sender_id"`
	Type           string     `db:"type"`
	Content        string     `db:"content"`
	ReadAt         *time.Time `db:"read_at"`
	CreatedAt      time.Time  `db:"created_at"`
}
