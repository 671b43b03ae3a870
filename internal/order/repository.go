// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, userID, role string, page core.PageParams) ([]Order, int, error)
	Transition(ctx context.Context, id string, from []string, to string) error

	CreatePayment(ctx context.Context, p *Payment) error
	GetPaymentByIntent(ctx context.Context, intentID string) (*Payment, error)
	LatestPayment(ctx context.Context, orderID, status string) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, intentID string, from []string, to string, payload []byte) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)

	CreateShipment(ctx context.Context, s *Shipment) error
	MarkShipmentDelivered(ctx context.Context, orderID string, at time.Time) error
	GetShipment(ctx context.Context, orderID string) (*Shipment, error)

	CreateReview(ctx context.Context, r *Review) error
	ListReviews(ctx context.Context, orderID string) ([]Review, error)

	WithTx(ctx context.Context, fn func(Repository) error) error
}

type repository struct {
	db   core.DBTX
	pool *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, pool: db}
}

const orderColumns = `
	o.id, o.item_id, i.title AS item_title, o.buyer_id, o.seller_id,
	o.price_at_order, o.currency, o.status, o.escrow, o.created_at, o.updated_at`

const paymentColumns = `
	id, order_id, provider, provider_intent_id, amount, currency,
	status, payload, created_at, updated_at`

func (r *repository) WithTx(
	ctx context.Context,
	fn func(Repository) error,
) error {
	return core.InTx(ctx, r.pool, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, item_id, buyer_id, seller_id, price_at_order, currency, status, escrow)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		o.ID, o.ItemID, o.BuyerID, o.SellerID,
		o.PriceAtOrder, o.Currency, o.Status, o.Escrow,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create order: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		JOIN items i ON i.id = o.item_id
		WHERE o.id = $1`

	var o Order
	err := r.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	return &o, nil
}

func (r *repository) List(
	ctx context.Context,
	userID, role string,
	page core.PageParams,
) ([]Order, int, error) {
	column := "o.buyer_id"
	if role == RoleSeller {
		column = "o.seller_id"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM orders o WHERE ` + column + ` = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders o
		JOIN items i ON i.id = o.item_id
		WHERE ` + column + ` = $1
		ORDER BY o.created_at DESC, o.id
		LIMIT $2 OFFSET $3`

	var out []Order
	if err := r.db.SelectContext(ctx, &out, query, userID, page.PageSize, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return out, total, nil
}

// Transition moves the order to `to` only while its status is still one
// of `from`. A lost race surfaces as ErrInvalidState.
func (r *repository) Transition(
	ctx context.Context,
	id string,
	from []string,
	to string,
) error {
	query := `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)`

	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("order status changed concurrently: %w", core.ErrInvalidState)
	}

	return nil
}

func (r *repository) CreatePayment(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, order_id, provider, provider_intent_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.OrderID, p.Provider, p.ProviderIntentID,
		p.Amount, p.Currency, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create payment: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

func (r *repository) GetPaymentByIntent(
	ctx context.Context,
	intentID string,
) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_intent_id = $1`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, intentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	return &p, nil
}

func (r *repository) LatestPayment(
	ctx context.Context,
	orderID, status string,
) (*Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = $1 AND status = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, orderID, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	return &p, nil
}

// UpdatePaymentStatus reports false when the payment was not in one of
// the `from` states, which is how replayed provider events are absorbed.
func (r *repository) UpdatePaymentStatus(
	ctx context.Context,
	intentID string,
	from []string,
	to string,
	payload []byte,
) (bool, error) {
	query := `
		UPDATE payments
		SET status = $3, payload = COALESCE($4::jsonb, payload), updated_at = NOW()
		WHERE provider_intent_id = $1 AND status = ANY($2)`

	result, err := r.db.ExecContext(ctx, query, intentID, from, to, jsonParam(payload))
	if err != nil {
		return false, fmt.Errorf("update payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update payment: %w", err)
	}

	return rows > 0, nil
}

// MarkEventProcessed reports true the first time a provider event id is
// seen. Called inside the webhook transaction so a failed handler
// leaves the event unrecorded for the provider's retry.
func (r *repository) MarkEventProcessed(
	ctx context.Context,
	eventID, eventType string,
) (bool, error) {
	query := `
		INSERT INTO processed_webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) CreateShipment(ctx context.Context, s *Shipment) error {
	query := `
		INSERT INTO shipments (id, order_id, carrier, tracking_no, status, shipped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.OrderID, s.Carrier, s.TrackingNo, s.Status, s.ShippedAt,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("order already shipped: %w", core.ErrInvalidState)
		}
		return fmt.Errorf("create shipment: %w", err)
	}

	return nil
}

func (r *repository) MarkShipmentDelivered(
	ctx context.Context,
	orderID string,
	at time.Time,
) error {
	query := `
		UPDATE shipments
		SET status = $2, delivered_at = $3, updated_at = NOW()
		WHERE order_id = $1`

	if _, err := r.db.ExecContext(ctx, query, orderID, ShipmentDelivered, at); err != nil {
		return fmt.Errorf("deliver shipment: %w", err)
	}

	return nil
}

func (r *repository) GetShipment(ctx context.Context, orderID string) (*Shipment, error) {
	query := `
		SELECT id, order_id, carrier, tracking_no, status, shipped_at,
		       delivered_at, created_at, updated_at
		FROM shipments WHERE order_id = $1`

	var s Shipment
	err := r.db.GetContext(ctx, &s, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get shipment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}

	return &s, nil
}

func (r *repository) CreateReview(ctx context.Context, rv *Review) error {
	query := `
		INSERT INTO reviews (id, order_id, reviewer_id, reviewee_id, rating, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &rv.CreatedAt, query,
		rv.ID, rv.OrderID, rv.ReviewerID, rv.RevieweeID, rv.Rating, rv.Content,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create review: %w", core.ErrDuplicateKey)
		}
		if core.IsCheckViolation(err) {
			return fmt.Errorf("rating must be between 1 and 5: %w", core.ErrInvalidInput)
		}
		return fmt.Errorf("create review: %w", err)
	}

	return nil
}

func (r *repository) ListReviews(ctx context.Context, orderID string) ([]Review, error) {
	query := `
		SELECT id, order_id, reviewer_id, reviewee_id, rating, content, created_at
		FROM reviews WHERE order_id = $1
		ORDER BY created_at`

	var out []Review
	if err := r.db.SelectContext(ctx, &out, query, orderID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return out, nil
}

func jsonParam(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}
	return string(payload)
}
