// AngelaMos | 2026
// gateway_test.go

package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
)

const testWebhookSecret = "whsec_test_secret"

func signed(t *testing.T, payload, secret string) string {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func testGateway() *StripeGateway {
	return NewStripeGateway(config.StripeConfig{
		Enabled:       true,
		SecretKey:     "sk_test_unused",
		WebhookSecret: testWebhookSecret,
	})
}

func TestParseWebhookPaymentIntent(t *testing.T) {
	payload := `{
		"id": "evt_100",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_100", "object": "payment_intent", "amount": 1250}}
	}`

	ev, err := testGateway().ParseWebhook([]byte(payload), signed(t, payload, testWebhookSecret))
	require.NoError(t, err)

	assert.Equal(t, "evt_100", ev.ID)
	assert.Equal(t, EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_100", ev.IntentID)
	assert.JSONEq(t, payload, string(ev.Payload))
}

func TestParseWebhookChargeRefunded(t *testing.T) {
	payload := `{
		"id": "evt_200",
		"object": "event",
		"type": "charge.refunded",
		"data": {"object": {"id": "ch_200", "object": "charge", "payment_intent": "pi_200"}}
	}`

	ev, err := testGateway().ParseWebhook([]byte(payload), signed(t, payload, testWebhookSecret))
	require.NoError(t, err)

	assert.Equal(t, EventChargeRefunded, ev.Type)
	assert.Equal(t, "pi_200", ev.IntentID)
}

func TestParseWebhookIgnoresOtherTypes(t *testing.T) {
	payload := `{
		"id": "evt_300",
		"object": "event",
		"type": "customer.created",
		"data": {"object": {"id": "cus_300", "object": "customer"}}
	}`

	ev, err := testGateway().ParseWebhook([]byte(payload), signed(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Empty(t, ev.IntentID)
}

func TestParseWebhookRejectsBadSignatures(t *testing.T) {
	payload := `{"id": "evt_400", "object": "event", "type": "payment_intent.succeeded", "data": {"object": {}}}`

	tests := []struct {
		name   string
		header string
	}{
		{"wrong secret", signed(t, payload, "whsec_someone_else")},
		{"garbage header", "t=1,v1=deadbeef"},
		{"empty header", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testGateway().ParseWebhook([]byte(payload), tt.header)
			assert.Error(t, err)
		})
	}
}

func TestDisabledGateway(t *testing.T) {
	g := NewGateway(config.StripeConfig{Enabled: false})

	_, err := g.CreateIntent(t.Context(), "o", 100, "NZD", "k")
	assert.ErrorIs(t, err, ErrPaymentsDisabled)

	_, err = g.ParseWebhook([]byte(`{}`), "sig")
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}
