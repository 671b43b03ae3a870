// AngelaMos | 2026
// service.go

package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/templates/nz-market/internal/catalog"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/events"
	"github.com/carterperez-dev/templates/nz-market/internal/metrics"
)

const (
	AuditRefundOrder = "REFUND_ORDER"
	AuditTargetOrder = "ORDER"
)

const (
	webhookApplied   = "applied"
	webhookDuplicate = "duplicate"
	webhookIgnored   = "ignored"
	webhookUnmatched = "unmatched"
	webhookError     = "error"
)

type ItemLookup interface {
	Lookup(ctx context.Context, id string) (*catalog.Item, error)
}

type AuditRecorder interface {
	RecordAudit(ctx context.Context, actorID, action, targetType, targetID, metadata string) error
}

type CreatedEvent struct {
	OrderID  string          `json:"order_id"`
	ItemID   string          `json:"item_id"`
	BuyerID  string          `json:"buyer_id"`
	SellerID string          `json:"seller_id"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Escrow   bool            `json:"escrow"`
}

type StatusEvent struct {
	OrderID  string    `json:"order_id"`
	BuyerID  string    `json:"buyer_id"`
	SellerID string    `json:"seller_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}

type PaymentEvent struct {
	OrderID         string `json:"order_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	EventID         string `json:"event_id"`
}

type ServiceConfig struct {
	Repo    Repository
	Items   ItemLookup
	Gateway Gateway
	Audit   AuditRecorder
	Events  events.Publisher
	Metrics *metrics.Registry
	Logger  *slog.Logger
}

type Service struct {
	repo    Repository
	items   ItemLookup
	gateway Gateway
	audit   AuditRecorder
	events  events.Publisher
	metrics *metrics.Registry
	logger  *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gateway := cfg.Gateway
	if gateway == nil {
		gateway = DisabledGateway{}
	}

	return &Service{
		repo:    cfg.Repo,
		items:   cfg.Items,
		gateway: gateway,
		audit:   cfg.Audit,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// CreateOrder snapshots the item price. The snapshot is immutable
// afterwards, enforced by a trigger on orders.
func (s *Service) CreateOrder(
	ctx context.Context,
	buyerID, itemID string,
	escrow bool,
) (*Order, error) {
	item, err := s.items.Lookup(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !item.IsActive() {
		return nil, fmt.Errorf("item is not available: %w", core.ErrInvalidState)
	}
	if item.SellerID == buyerID {
		return nil, fmt.Errorf("cannot order your own item: %w", core.ErrInvalidInput)
	}

	o := &Order{
		ID:           uuid.New().String(),
		ItemID:       item.ID,
		ItemTitle:    item.Title,
		BuyerID:      buyerID,
		SellerID:     item.SellerID,
		PriceAtOrder: item.Price,
		Currency:     item.Currency,
		Status:       StatusPending,
		Escrow:       escrow,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	events.Emit(ctx, s.events, s.logger, events.SubjectOrderCreated, CreatedEvent{
		OrderID:  o.ID,
		ItemID:   o.ItemID,
		BuyerID:  o.BuyerID,
		SellerID: o.SellerID,
		Price:    o.PriceAtOrder,
		Currency: o.Currency,
		Escrow:   o.Escrow,
	})

	return o, nil
}

func (s *Service) GetOrder(
	ctx context.Context,
	orderID, requesterID string,
	isAdmin bool,
) (*Order, *Shipment, error) {
	o, err := s.visibleOrder(ctx, orderID, requesterID, isAdmin)
	if err != nil {
		return nil, nil, err
	}

	shipment, err := s.repo.GetShipment(ctx, o.ID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, nil, err
	}

	return o, shipment, nil
}

func (s *Service) ListOrders(
	ctx context.Context,
	userID, role string,
	page core.PageParams,
) ([]Order, int, error) {
	switch role {
	case "":
		role = RoleBuyer
	case RoleBuyer, RoleSeller:
	default:
		return nil, 0, fmt.Errorf("role must be buyer or seller: %w", core.ErrInvalidInput)
	}

	page.Normalize()
	return s.repo.List(ctx, userID, role, page)
}

// CreatePaymentIntent asks the gateway for an intent keyed on the order
// id, so a repeated call returns the same intent instead of a second
// charge.
func (s *Service) CreatePaymentIntent(
	ctx context.Context,
	orderID, requesterID string,
) (*PaymentIntentResponse, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.BuyerID != requesterID {
		return nil, fmt.Errorf("only the buyer can pay for this order: %w", core.ErrForbidden)
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("order is not pending: %w", core.ErrInvalidState)
	}

	intent, err := s.gateway.CreateIntent(
		ctx,
		o.ID,
		amountCents(o.PriceAtOrder),
		o.Currency,
		"order-"+o.ID+"-intent",
	)
	if err != nil {
		s.countPayment("create_intent", "error")
		return nil, fmt.Errorf("create payment intent: %w: %w", core.ErrExternalService, err)
	}
	s.countPayment("create_intent", "ok")

	payment := &Payment{
		ID:               uuid.New().String(),
		OrderID:          o.ID,
		Provider:         ProviderStripe,
		ProviderIntentID: intent.ID,
		Amount:           o.PriceAtOrder,
		Currency:         o.Currency,
		Status:           PaymentInit,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil &&
		!errors.Is(err, core.ErrDuplicateKey) {
		return nil, err
	}

	return &PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          o.PriceAtOrder,
		Currency:        o.Currency,
	}, nil
}

type webhookOutcome struct {
	result string
	order  *Order
	from   string
	to     string
}

// HandleWebhook verifies and applies a provider event. The event id is
// recorded in the same transaction as its effects, and every payment
// and order update is conditional on the current status, so replays
// and reordered deliveries are no-ops.
func (s *Service) HandleWebhook(
	ctx context.Context,
	payload []byte,
	signature string,
) error {
	if signature == "" {
		return fmt.Errorf("missing webhook signature: %w", core.ErrInvalidInput)
	}

	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook rejected", "error", err)
		return fmt.Errorf("invalid webhook signature: %w", core.ErrInvalidInput)
	}

	var out webhookOutcome
	err = s.repo.WithTx(ctx, func(repo Repository) error {
		fresh, err := repo.MarkEventProcessed(ctx, ev.ID, ev.Type)
		if err != nil {
			return err
		}
		if !fresh {
			out.result = webhookDuplicate
			return nil
		}
		return s.applyEvent(ctx, repo, ev, &out)
	})
	if err != nil {
		s.countWebhook(ev.Type, webhookError)
		return err
	}

	s.countWebhook(ev.Type, out.result)
	s.logger.InfoContext(ctx, "webhook handled",
		"event_id", ev.ID,
		"type", ev.Type,
		"result", out.result,
	)

	if out.order != nil {
		s.transitioned(ctx, out.order, out.from, out.to)
		if out.to == StatusPaid {
			events.Emit(ctx, s.events, s.logger, events.SubjectPaymentSucceeded, PaymentEvent{
				OrderID:         out.order.ID,
				PaymentIntentID: ev.IntentID,
				EventID:         ev.ID,
			})
		}
	}

	return nil
}

func (s *Service) applyEvent(
	ctx context.Context,
	repo Repository,
	ev *WebhookEvent,
	out *webhookOutcome,
) error {
	out.result = webhookIgnored
	if ev.IntentID == "" {
		return nil
	}

	var paymentFrom []string
	var paymentTo, orderTo string
	switch ev.Type {
	case EventIntentSucceeded:
		paymentFrom, paymentTo = []string{PaymentInit, PaymentFailed}, PaymentSucceeded
		orderTo = StatusPaid
	case EventIntentFailed:
		paymentFrom, paymentTo = []string{PaymentInit}, PaymentFailed
	case EventChargeRefunded:
		paymentFrom, paymentTo = []string{PaymentSucceeded}, PaymentRefunded
		orderTo = StatusRefunded
	default:
		return nil
	}

	payment, err := repo.GetPaymentByIntent(ctx, ev.IntentID)
	if errors.Is(err, core.ErrNotFound) {
		out.result = webhookUnmatched
		return nil
	}
	if err != nil {
		return err
	}

	changed, err := repo.UpdatePaymentStatus(ctx, ev.IntentID, paymentFrom, paymentTo, ev.Payload)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	out.result = webhookApplied

	if orderTo == "" {
		return nil
	}

	o, err := repo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	from := []string{StatusPending}
	if orderTo == StatusRefunded {
		from = refundable
	}
	if !slices.Contains(from, o.Status) {
		s.logger.WarnContext(ctx, "payment event does not match order status",
			"order_id", o.ID,
			"status", o.Status,
			"event_type", ev.Type,
		)
		return nil
	}

	if err := repo.Transition(ctx, o.ID, []string{o.Status}, orderTo); err != nil {
		return err
	}

	out.order, out.from, out.to = o, o.Status, orderTo
	return nil
}

func (s *Service) CancelOrder(
	ctx context.Context,
	orderID, requesterID string,
) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.BuyerID != requesterID {
		return nil, fmt.Errorf("only the buyer can cancel this order: %w", core.ErrForbidden)
	}

	return s.advance(ctx, o, StatusCancelled, nil)
}

func (s *Service) ShipOrder(
	ctx context.Context,
	orderID, sellerID, carrier, trackingNo string,
) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.SellerID != sellerID {
		return nil, fmt.Errorf("only the seller can ship this order: %w", core.ErrForbidden)
	}

	return s.advance(ctx, o, StatusShipped, func(repo Repository) error {
		now := time.Now().UTC()
		return repo.CreateShipment(ctx, &Shipment{
			ID:         uuid.New().String(),
			OrderID:    o.ID,
			Carrier:    carrier,
			TrackingNo: trackingNo,
			Status:     ShipmentShipped,
			ShippedAt:  &now,
		})
	})
}

func (s *Service) ConfirmDelivery(
	ctx context.Context,
	orderID, buyerID string,
) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.BuyerID != buyerID {
		return nil, fmt.Errorf("only the buyer can confirm delivery: %w", core.ErrForbidden)
	}

	return s.advance(ctx, o, StatusDelivered, func(repo Repository) error {
		return repo.MarkShipmentDelivered(ctx, o.ID, time.Now().UTC())
	})
}

// RefundOrder refunds the settled payment through the gateway and marks
// both rows refunded once the gateway accepts. The later charge.refunded
// webhook then finds nothing left to change.
func (s *Service) RefundOrder(
	ctx context.Context,
	orderID, adminID, reason string,
) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(refundable, o.Status) {
		return nil, fmt.Errorf("order cannot be refunded from %s: %w", o.Status, core.ErrInvalidState)
	}

	payment, err := s.repo.LatestPayment(ctx, o.ID, PaymentSucceeded)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("order has no settled payment: %w", core.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Refund(ctx, payment.ProviderIntentID, "order-"+o.ID+"-refund"); err != nil {
		s.countPayment("refund", "error")
		return nil, fmt.Errorf("refund payment: %w: %w", core.ErrExternalService, err)
	}
	s.countPayment("refund", "ok")

	from := o.Status
	err = s.repo.WithTx(ctx, func(repo Repository) error {
		if _, err := repo.UpdatePaymentStatus(ctx, payment.ProviderIntentID,
			[]string{PaymentSucceeded}, PaymentRefunded, nil); err != nil {
			return err
		}
		return repo.Transition(ctx, o.ID, []string{from}, StatusRefunded)
	})
	switch {
	case errors.Is(err, core.ErrInvalidState):
		// charge.refunded may commit between the gateway call and this
		// transaction.
		current, getErr := s.repo.GetByID(ctx, o.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status != StatusRefunded {
			return nil, err
		}
		o = current
	case err != nil:
		return nil, err
	default:
		o.Status = StatusRefunded
		s.transitioned(ctx, o, from, StatusRefunded)
	}

	if s.audit != nil {
		if err := s.audit.RecordAudit(ctx, adminID, AuditRefundOrder, AuditTargetOrder, o.ID, reason); err != nil {
			s.logger.ErrorContext(ctx, "refund audit failed", "order_id", o.ID, "error", err)
		}
	}

	return o, nil
}

func (s *Service) CreateReview(
	ctx context.Context,
	orderID, reviewerID string,
	rating int,
	content string,
) (*Review, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.IsParty(reviewerID) {
		return nil, fmt.Errorf("not a party to this order: %w", core.ErrForbidden)
	}
	if o.Status != StatusDelivered {
		return nil, fmt.Errorf("only delivered orders can be reviewed: %w", core.ErrInvalidState)
	}

	reviewee := o.SellerID
	if reviewerID == o.SellerID {
		reviewee = o.BuyerID
	}

	r := &Review{
		ID:         uuid.New().String(),
		OrderID:    o.ID,
		ReviewerID: reviewerID,
		RevieweeID: reviewee,
		Rating:     rating,
		Content:    content,
	}
	if err := s.repo.CreateReview(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Service) ListReviews(
	ctx context.Context,
	orderID, requesterID string,
	isAdmin bool,
) ([]Review, error) {
	if _, err := s.visibleOrder(ctx, orderID, requesterID, isAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListReviews(ctx, orderID)
}

func (s *Service) visibleOrder(
	ctx context.Context,
	orderID, requesterID string,
	isAdmin bool,
) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && !o.IsParty(requesterID) {
		return nil, fmt.Errorf("not a party to this order: %w", core.ErrForbidden)
	}

	return o, nil
}

// advance applies a state machine step plus any rows that belong to it
// in one transaction.
func (s *Service) advance(
	ctx context.Context,
	o *Order,
	to string,
	extra func(Repository) error,
) (*Order, error) {
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf(
			"order cannot move from %s to %s: %w", o.Status, to, core.ErrInvalidState,
		)
	}

	from := o.Status
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.Transition(ctx, o.ID, []string{from}, to); err != nil {
			return err
		}
		if extra != nil {
			return extra(repo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.Status = to
	s.transitioned(ctx, o, from, to)

	return o, nil
}

func (s *Service) transitioned(ctx context.Context, o *Order, from, to string) {
	if s.metrics != nil {
		s.metrics.OrderTransition.WithLabelValues(to).Inc()
	}

	s.logger.InfoContext(ctx, "order status changed",
		"order_id", o.ID,
		"from", from,
		"to", to,
	)

	events.Emit(ctx, s.events, s.logger, events.SubjectOrderStatusUpdated, StatusEvent{
		OrderID:  o.ID,
		BuyerID:  o.BuyerID,
		SellerID: o.SellerID,
		From:     from,
		To:       to,
		At:       time.Now().UTC(),
	})
}

func (s *Service) countPayment(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.Payments.WithLabelValues(operation, outcome).Inc()
	}
}

func (s *Service) countWebhook(eventType, result string) {
	if s.metrics != nil {
		s.metrics.WebhookEvents.WithLabelValues(eventType, result).Inc()
	}
}
