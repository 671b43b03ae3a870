// AngelaMos | 2026
// gateway.go

package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded  = "charge.refunded"
)

var ErrPaymentsDisabled = errors.New("payments are disabled")

type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
}

// WebhookEvent is a verified provider event reduced to what order
// handling needs. IntentID is empty for event types we do not act on.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
	Payload  []byte
}

type Gateway interface {
	CreateIntent(ctx context.Context, orderID string, amountCents int64, currency, idempotencyKey string) (*Intent, error)
	Refund(ctx context.Context, intentID, idempotencyKey string) error
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *StripeGateway) CreateIntent(
	ctx context.Context,
	orderID string,
	amountCents int64,
	currency string,
	idempotencyKey string,
) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", orderID)
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *StripeGateway) Refund(
	ctx context.Context,
	intentID string,
	idempotencyKey string,
) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	if _, err := g.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe refund: %w", err)
	}

	return nil
}

func (g *StripeGateway) ParseWebhook(
	payload []byte,
	signature string,
) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}

	out := &WebhookEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: payload,
	}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventIntentSucceeded, EventIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.IntentID = pi.ID

	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("decode charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.IntentID = ch.PaymentIntent.ID
		}
	}

	return out, nil
}

// DisabledGateway stands in when stripe is switched off so order routes
// still answer with a clean upstream error.
type DisabledGateway struct{}

func (DisabledGateway) CreateIntent(context.Context, string, int64, string, string) (*Intent, error) {
	return nil, ErrPaymentsDisabled
}

func (DisabledGateway) Refund(context.Context, string, string) error {
	return ErrPaymentsDisabled
}

func (DisabledGateway) ParseWebhook([]byte, string) (*WebhookEvent, error) {
	return nil, ErrPaymentsDisabled
}

func NewGateway(cfg config.StripeConfig) Gateway {
	if !cfg.Enabled {
		return DisabledGateway{}
	}
	return NewStripeGateway(cfg)
}
