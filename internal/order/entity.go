// AngelaMos | 2026
// entity.go

package order

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusShipped   = "SHIPPED"
	StatusDelivered = "DELIVERED"
	StatusCancelled = "CANCELLED"
	StatusRefunded  = "REFUNDED"
)

const (
	PaymentInit      = "INIT"
	PaymentSucceeded = "SUCCEEDED"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
)

const (
	ShipmentShipped   = "SHIPPED"
	ShipmentDelivered = "DELIVERED"
)

const ProviderStripe = "STRIPE"

// Orders are priced in NZD, whose minor unit is the cent.
const minorUnitDigits = 2

// amountCents converts a price to the integer minor units the gateway
// charges in.
func amountCents(price decimal.Decimal) int64 {
	return price.Shift(minorUnitDigits).IntPart()
}

var transitions = map[string][]string{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusRefunded},
	StatusShipped:   {StatusDelivered, StatusRefunded},
	StatusDelivered: {StatusRefunded},
}

// refundable lists every status a refund may start from.
var refundable = []string{StatusPaid, StatusShipped, StatusDelivered}

func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

type Order struct {
	ID           string          `db:"id"`
	ItemID       string          `db:"item_id"`
	ItemTitle    string          `db:"item_title"`
	BuyerID      string          `db:"buyer_id"`
	SellerID     string          `db:"seller_id"`
	PriceAtOrder decimal.Decimal `db:"price_at_order"`
	Currency     string          `db:"currency"`
	Status       string          `db:"status"`
	Escrow       bool            `db:"escrow"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (o *Order) IsParty(userID string) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

type Payment struct {
	ID               string          `db:"id"`
	OrderID          string          `db:"order_id"`
	Provider         string          `db:"provider"`
	ProviderIntentID string          `db:"provider_intent_id"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         string          `db:"currency"`
	Status           string          `db:"status"`
	Payload          []byte          `db:"payload"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

type Shipment struct {
	ID          string     `db:"id"`
	OrderID     string     `db:"order_id"`
	Carrier     string     `db:"carrier"`
	TrackingNo  string     `db:"tracking_no"`
	Status      string     `db:"status"`
	ShippedAt   *time.Time `db:"shipped_at"`
	DeliveredAt *time.Time `db:"delivered_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

type Review struct {
	ID         string    `db:"id"`
	OrderID    string    `db:"order_id"`
	ReviewerID string    `db:"reviewer_id"`
	RevieweeID string    `db:"reviewee_id"`
	Rating     int       `db:"rating"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}
