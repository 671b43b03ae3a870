// AngelaMos | 2026
// repository.go

package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type Repository interface {
	FindOrCreateConversation(ctx context.Context, c *Conversation) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	CreateMessage(ctx context.Context, m *Message) error
	TouchConversation(ctx context.Context, id string, at time.Time) error
	ListMessages(ctx context.Context, conversationID string, page core.PageParams) ([]Message, int, error)
	MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, conversationID, readerID string) (int, error)
	WithTx(ctx context.Context, fn func(Repository) error) error
}

type repository struct {
	db   core.DBTX
	pool *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, pool: db}
}

const conversationColumns = `
	c.id, c.item_id, c.buyer_id, c.seller_id, c.last_message_at,
	c.created_at, c.updated_at`

func (r *repository) WithTx(
	ctx context.Context,
	fn func(Repository) error,
) error {
	return core.InTx(ctx, r.pool, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx, pool: r.pool})
	})
}

// FindOrCreateConversation relies on the participants unique key, so
// two racing first messages still end up in one conversation.
func (r *repository) FindOrCreateConversation(
	ctx context.Context,
	c *Conversation,
) (*Conversation, error) {
	insert := `
		INSERT INTO conversations (id, item_id, buyer_id, seller_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT conversations_participants_key DO NOTHING`

	if _, err := r.db.ExecContext(ctx, insert,
		c.ID, c.ItemID, c.BuyerID, c.SellerID,
	); err != nil {
		if core.IsForeignKeyError(err) {
			return nil, fmt.Errorf("create conversation: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	query := `SELECT ` + conversationColumns + `
		FROM conversations c
		WHERE c.item_id = $1 AND c.buyer_id = $2 AND c.seller_id = $3`

	var out Conversation
	if err := r.db.GetContext(ctx, &out, query, c.ItemID, c.BuyerID, c.SellerID); err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	return &out, nil
}

func (r *repository) GetConversation(
	ctx context.Context,
	id string,
) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c WHERE c.id = $1`

	var c Conversation
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get conversation: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &c, nil
}

func (r *repository) ListConversations(
	ctx context.Context,
	userID string,
) ([]Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `,
		       i.title AS item_title,
		       b.display_name AS buyer_name,
		       s.display_name AS seller_name,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id
		          AND m.read_at IS NULL
		          AND m.sender_id <> $1) AS unread_count
		FROM conversations c
		JOIN items i ON i.id = c.item_id
		JOIN users b ON b.id = c.buyer_id
		JOIN users s ON s.id = c.seller_id
		WHERE c.buyer_id = $1 OR c.seller_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`

	var out []Conversation
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return out, nil
}

func (r *repository) CreateMessage(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, type, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID, m.ConversationID, m.SenderID, m.Type, m.Content,
	)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (r *repository) TouchConversation(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE conversations
		SET last_message_at = $2, updated_at = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	return nil
}

func (r *repository) ListMessages(
	ctx context.Context,
	conversationID string,
	page core.PageParams,
) ([]Message, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, conversationID); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := `
		SELECT id, conversation_id, sender_id, type, content, read_at, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	var out []Message
	err := r.db.SelectContext(ctx, &out, query, conversationID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	return out, total, nil
}

// MarkRead stamps every unread message from the other participant with
// the same instant in one statement.
func (r *repository) MarkRead(
	ctx context.Context,
	conversationID, readerID string,
	at time.Time,
) (int64, error) {
	query := `
		UPDATE messages
		SET read_at = $3
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND read_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, conversationID, readerID, at)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	return n, nil
}

func (r *repository) UnreadCount(
	ctx context.Context,
	conversationID, readerID string,
) (int, error) {
	query := `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`

	var n int
	if err := r.db.GetContext(ctx, &n, query, conversationID, readerID); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}

	return n, nil
}
