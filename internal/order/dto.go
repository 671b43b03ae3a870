// AngelaMos | 2026
// dto.go

package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
	Escrow bool   `json:"escrow"`
}

type ShipOrderRequest struct {
	Carrier    string `json:"carrier"     validate:"required,max=100"`
	TrackingNo string `json:"tracking_no" validate:"required,max=100"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Content string `json:"content" validate:"max=2000"`
}

type OrderResponse struct {
	ID           string            `json:"id"`
	ItemID       string            `json:"item_id"`
	ItemTitle    string            `json:"item_title,omitempty"`
	BuyerID      string            `json:"buyer_id"`
	SellerID     string            `json:"seller_id"`
	PriceAtOrder decimal.Decimal   `json:"price_at_order"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Escrow       bool              `json:"escrow"`
	Shipment     *ShipmentResponse `json:"shipment,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type ShipmentResponse struct {
	Carrier     string     `json:"carrier"`
	TrackingNo  string     `json:"tracking_no"`
	Status      string     `json:"status"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

type PaymentIntentResponse struct {
	ClientSecret    string          `json:"client_secret"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

type ReviewResponse struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

func ToOrderResponse(o *Order, s *Shipment) OrderResponse {
	out := OrderResponse{
		ID:           o.ID,
		ItemID:       o.ItemID,
		ItemTitle:    o.ItemTitle,
		BuyerID:      o.BuyerID,
		SellerID:     o.SellerID,
		PriceAtOrder: o.PriceAtOrder,
		Currency:     o.Currency,
		Status:       o.Status,
		Escrow:       o.Escrow,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}

	if s != nil {
		out.Shipment = &ShipmentResponse{
			Carrier:     s.Carrier,
			TrackingNo:  s.TrackingNo,
			Status:      s.Status,
			ShippedAt:   s.ShippedAt,
			DeliveredAt: s.DeliveredAt,
		}
	}

	return out
}

func ToReviewResponse(r *Review) ReviewResponse {
	return ReviewResponse{
		ID:         r.ID,
		OrderID:    r.OrderID,
		ReviewerID: r.ReviewerID,
		RevieweeID: r.RevieweeID,
		Rating:     r.Rating,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
	}
}
