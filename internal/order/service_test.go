// AngelaMos | 2026
// service_test.go

package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/nz-market/internal/catalog"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/events"
	"github.com/carterperez-dev/templates/nz-market/internal/metrics"
)

const (
	orderID = "44444444-4444-4444-4444-444444444444"
	itemID  = "55555555-5555-5555-5555-555555555555"
)

type fixture struct {
	repo    *mockRepo
	items   *mockItems
	gateway *mockGateway
	audit   *mockAudit
	events  *recordingPublisher
	metrics *metrics.Registry
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:    new(mockRepo),
		items:   new(mockItems),
		gateway: new(mockGateway),
		audit:   new(mockAudit),
		events:  &recordingPublisher{},
		metrics: metrics.New("test"),
	}
	f.svc = NewService(ServiceConfig{
		Repo:    f.repo,
		Items:   f.items,
		Gateway: f.gateway,
		Audit:   f.audit,
		Events:  f.events,
		Metrics: f.metrics,
	})
	return f
}

func order(status string) *Order {
	return &Order{
		ID:           orderID,
		ItemID:       itemID,
		BuyerID:      "buyer",
		SellerID:     "seller",
		PriceAtOrder: decimal.RequireFromString("12.50"),
		Currency:     "NZD",
		Status:       status,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPaid, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPaid, StatusRefunded, true},
		{StatusDelivered, StatusRefunded, true},
		{StatusPending, StatusShipped, false},
		{StatusPaid, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		{StatusRefunded, StatusPaid, false},
		{StatusDelivered, StatusShipped, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCreateOrder(t *testing.T) {
	item := func(status string) *catalog.Item {
		return &catalog.Item{
			ID:       itemID,
			SellerID: "seller",
			Title:    "kayak",
			Price:    decimal.RequireFromString("12.50"),
			Currency: "NZD",
			Status:   status,
		}
	}

	t.Run("snapshots price", func(t *testing.T) {
		f := newFixture()
		f.items.On("Lookup", mock.Anything, itemID).Return(item(catalog.StatusActive), nil)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)

		o, err := f.svc.CreateOrder(context.Background(), "buyer", itemID, true)
		require.NoError(t, err)

		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, "seller", o.SellerID)
		assert.True(t, o.PriceAtOrder.Equal(decimal.RequireFromString("12.50")))
		assert.True(t, o.Escrow)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OrdersCreated))
		assert.Equal(t, []string{events.SubjectOrderCreated}, f.events.Subjects())
	})

	t.Run("inactive item", func(t *testing.T) {
		f := newFixture()
		f.items.On("Lookup", mock.Anything, itemID).Return(item(catalog.StatusInactive), nil)

		_, err := f.svc.CreateOrder(context.Background(), "buyer", itemID, false)
		assert.ErrorIs(t, err, core.ErrInvalidState)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("own item", func(t *testing.T) {
		f := newFixture()
		f.items.On("Lookup", mock.Anything, itemID).Return(item(catalog.StatusActive), nil)

		_, err := f.svc.CreateOrder(context.Background(), "seller", itemID, false)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("missing item", func(t *testing.T) {
		f := newFixture()
		f.items.On("Lookup", mock.Anything, itemID).Return(nil, core.ErrNotFound)

		_, err := f.svc.CreateOrder(context.Background(), "buyer", itemID, false)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestGetOrderVisibility(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPaid), nil)
	f.repo.On("GetShipment", mock.Anything, orderID).Return(nil, core.ErrNotFound)

	_, _, err := f.svc.GetOrder(context.Background(), orderID, "stranger", false)
	assert.ErrorIs(t, err, core.ErrForbidden)

	o, shipment, err := f.svc.GetOrder(context.Background(), orderID, "admin", true)
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
	assert.Nil(t, shipment)
}

func TestListOrdersRejectsUnknownRole(t *testing.T) {
	f := newFixture()

	_, _, err := f.svc.ListOrders(context.Background(), "buyer", "courier", core.PageParams{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	f.repo.On("List", mock.Anything, "buyer", RoleBuyer, core.PageParams{Page: 1, PageSize: 20}).
		Return([]Order{*order(StatusPending)}, 1, nil)

	out, total, err := f.svc.ListOrders(context.Background(), "buyer", "", core.PageParams{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, total)
}

func TestCreatePaymentIntent(t *testing.T) {
	t.Run("charges price in cents", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)
		f.gateway.On("CreateIntent", mock.Anything, orderID, int64(1250), "NZD", "order-"+orderID+"-intent").
			Return(&Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil)
		f.repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
			return p.ProviderIntentID == "pi_1" && p.Status == PaymentInit && p.OrderID == orderID
		})).Return(nil)

		resp, err := f.svc.CreatePaymentIntent(context.Background(), orderID, "buyer")
		require.NoError(t, err)

		assert.Equal(t, "pi_1_secret", resp.ClientSecret)
		assert.Equal(t, "pi_1", resp.PaymentIntentID)
		assert.Equal(t, "NZD", resp.Currency)
		assert.Equal(t, float64(1), testutil.ToFloat64(
			f.metrics.Payments.WithLabelValues("create_intent", "ok")))
	})

	t.Run("repeat call reuses intent", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)
		f.gateway.On("CreateIntent", mock.Anything, orderID, int64(1250), "NZD", mock.Anything).
			Return(&Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil)
		f.repo.On("CreatePayment", mock.Anything, mock.Anything).
			Return(errors.Join(errors.New("create payment"), core.ErrDuplicateKey))

		resp, err := f.svc.CreatePaymentIntent(context.Background(), orderID, "buyer")
		require.NoError(t, err)
		assert.Equal(t, "pi_1", resp.PaymentIntentID)
	})

	t.Run("not the buyer", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)

		_, err := f.svc.CreatePaymentIntent(context.Background(), orderID, "seller")
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	for _, status := range []string{
		StatusPaid, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
	} {
		t.Run("rejects "+status, func(t *testing.T) {
			f := newFixture()
			f.repo.On("GetByID", mock.Anything, orderID).Return(order(status), nil)

			_, err := f.svc.CreatePaymentIntent(context.Background(), orderID, "buyer")
			assert.ErrorIs(t, err, core.ErrInvalidState)
			f.gateway.AssertNotCalled(t, "CreateIntent",
				mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("gateway failure", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)
		f.gateway.On("CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("card network down"))

		_, err := f.svc.CreatePaymentIntent(context.Background(), orderID, "buyer")
		assert.ErrorIs(t, err, core.ErrExternalService)
		assert.Equal(t, float64(1), testutil.ToFloat64(
			f.metrics.Payments.WithLabelValues("create_intent", "error")))
	})
}

func succeededEvent() *WebhookEvent {
	return &WebhookEvent{
		ID:       "evt_1",
		Type:     EventIntentSucceeded,
		IntentID: "pi_1",
		Payload:  []byte(`{}`),
	}
}

func TestHandleWebhook(t *testing.T) {
	payload := []byte(`{}`)

	t.Run("missing signature", func(t *testing.T) {
		f := newFixture()
		err := f.svc.HandleWebhook(context.Background(), payload, "")
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("ParseWebhook", payload, "sig").Return(nil, errors.New("bad sig"))

		err := f.svc.HandleWebhook(context.Background(), payload, "sig")
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		f.repo.AssertNotCalled(t, "MarkEventProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("succeeded marks order paid", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("ParseWebhook", payload, "sig").Return(succeededEvent(), nil)
		f.repo.On("MarkEventProcessed", mock.Anything, "evt_1", EventIntentSucceeded).Return(true, nil)
		f.repo.On("GetPaymentByIntent", mock.Anything, "pi_1").
			Return(&Payment{OrderID: orderID, Status: PaymentInit}, nil)
		f.repo.On("UpdatePaymentStatus", mock.Anything, "pi_1",
			[]string{PaymentInit, PaymentFailed}, PaymentSucceeded, mock.Anything).Return(true, nil)
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusPending}, StatusPaid).
			Return(nil).Once()

		require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, "sig"))

		f.repo.AssertExpectations(t)
		assert.Equal(t, []string{
			events.SubjectOrderStatusUpdated,
			events.SubjectPaymentSucceeded,
		}, f.events.Subjects())
		assert.Equal(t, float64(1), testutil.ToFloat64(
			f.metrics.WebhookEvents.WithLabelValues(EventIntentSucceeded, webhookApplied)))
		assert.Equal(t, float64(1), testutil.ToFloat64(
			f.metrics.OrderTransition.WithLabelValues(StatusPaid)))
	})

	t.Run("replayed event id is a no-op", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("ParseWebhook", payload, "sig").Return(succeededEvent(), nil)
		f.repo.On("MarkEventProcessed", mock.Anything, "evt_1", EventIntentSucceeded).Return(false, nil)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, "sig"))

		f.repo.AssertNotCalled(t, "UpdatePaymentStatus",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.events.Subjects())
		assert.Equal(t, float64(1), testutil.ToFloat64(
			f.metrics.WebhookEvents.WithLabelValues(EventIntentSucceeded, webhookDuplicate)))
	})

	t.Run("second event for settled intent is a no-op", func(t *testing.T) {
		f := newFixture()
		ev := succeededEvent()
		ev.ID = "evt_2"
		f.gateway.On("ParseWebhook", payload, "sig").Return(ev, nil)
		f.repo.On("MarkEventProcessed", mock.Anything, "evt_2", EventIntentSucceeded).Return(true, nil)
		f.repo.On("GetPaymentByIntent", mock.Anything, "pi_1").
			Return(&Payment{OrderID: orderID, Status: PaymentSucceeded}, nil)
		f.repo.On("UpdatePaymentStatus", mock.Anything, "pi_1",
			mock.Anything, PaymentSucceeded, mock.Anything).Return(false, nil)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, "sig"))

		f.repo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.events.Subjects())
	})

	t.Run("unknown intent is acknowledged", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("ParseWebhook", payload, "sig").Return(succeededEvent(), nil)
		f.repo.On("MarkEventProcessed", mock.Anything, "evt_1", EventIntentSucceeded).Return(true, nil)
		f.repo.On("GetPaymentByIntent", mock.Anything, "pi_1").Return(nil, core.ErrNotFound)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, "sig"))
		assert.Equal(t, float64(1), testutil.ToFloat64(
			f.metrics.WebhookEvents.WithLabelValues(EventIntentSucceeded, webhookUnmatched)))
	})

	t.Run("payment failed leaves order pending", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("ParseWebhook", payload, "sig").Return(&WebhookEvent{
			ID: "evt_3", Type: EventIntentFailed, IntentID: "pi_1",
		}, nil)
		f.repo.On("MarkEventProcessed", mock.Anything, "evt_3", EventIntentFailed).Return(true, nil)
		f.repo.On("GetPaymentByIntent", mock.Anything, "pi_1").
			Return(&Payment{OrderID: orderID, Status: PaymentInit}, nil)
		f.repo.On("UpdatePaymentStatus", mock.Anything, "pi_1",
			[]string{PaymentInit}, PaymentFailed, mock.Anything).Return(true, nil)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, "sig"))
		f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("charge refunded", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("ParseWebhook", payload, "sig").Return(&WebhookEvent{
			ID: "evt_4", Type: EventChargeRefunded, IntentID: "pi_1",
		}, nil)
		f.repo.On("MarkEventProcessed", mock.Anything, "evt_4", EventChargeRefunded).Return(true, nil)
		f.repo.On("GetPaymentByIntent", mock.Anything, "pi_1").
			Return(&Payment{OrderID: orderID, Status: PaymentSucceeded}, nil)
		f.repo.On("UpdatePaymentStatus", mock.Anything, "pi_1",
			[]string{PaymentSucceeded}, PaymentRefunded, mock.Anything).Return(true, nil)
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusShipped), nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusShipped}, StatusRefunded).Return(nil)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, "sig"))
		f.repo.AssertExpectations(t)
	})

	t.Run("store failure is returned for retry", func(t *testing.T) {
		f := newFixture()
		f.gateway.On("ParseWebhook", payload, "sig").Return(succeededEvent(), nil)
		f.repo.On("MarkEventProcessed", mock.Anything, "evt_1", EventIntentSucceeded).
			Return(false, errors.New("db down"))

		err := f.svc.HandleWebhook(context.Background(), payload, "sig")
		require.Error(t, err)
		assert.Equal(t, float64(1), testutil.ToFloat64(
			f.metrics.WebhookEvents.WithLabelValues(EventIntentSucceeded, webhookError)))
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("buyer cancels pending", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusPending}, StatusCancelled).Return(nil)

		o, err := f.svc.CancelOrder(context.Background(), orderID, "buyer")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("second cancel conflicts", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusCancelled), nil)

		_, err := f.svc.CancelOrder(context.Background(), orderID, "buyer")
		assert.ErrorIs(t, err, core.ErrInvalidState)
		f.repo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("seller cannot cancel", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)

		_, err := f.svc.CancelOrder(context.Background(), orderID, "seller")
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("lost race", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)
		f.repo.On("Transition", mock.Anything, orderID, mock.Anything, StatusCancelled).
			Return(core.ErrInvalidState)

		_, err := f.svc.CancelOrder(context.Background(), orderID, "buyer")
		assert.ErrorIs(t, err, core.ErrInvalidState)
		assert.Empty(t, f.events.Subjects())
	})
}

func TestShipAndDeliver(t *testing.T) {
	t.Run("ship requires paid", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)

		_, err := f.svc.ShipOrder(context.Background(), orderID, "seller", "NZ Post", "NZ123")
		assert.ErrorIs(t, err, core.ErrInvalidState)
	})

	t.Run("seller ships", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPaid), nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusPaid}, StatusShipped).Return(nil)
		f.repo.On("CreateShipment", mock.Anything, mock.MatchedBy(func(s *Shipment) bool {
			return s.Carrier == "NZ Post" && s.TrackingNo == "NZ123" &&
				s.Status == ShipmentShipped && s.ShippedAt != nil
		})).Return(nil)

		o, err := f.svc.ShipOrder(context.Background(), orderID, "seller", "NZ Post", "NZ123")
		require.NoError(t, err)
		assert.Equal(t, StatusShipped, o.Status)
	})

	t.Run("buyer cannot ship", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPaid), nil)

		_, err := f.svc.ShipOrder(context.Background(), orderID, "buyer", "NZ Post", "NZ123")
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("buyer confirms delivery", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusShipped), nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusShipped}, StatusDelivered).Return(nil)
		f.repo.On("MarkShipmentDelivered", mock.Anything, orderID, mock.AnythingOfType("time.Time")).Return(nil)

		o, err := f.svc.ConfirmDelivery(context.Background(), orderID, "buyer")
		require.NoError(t, err)
		assert.Equal(t, StatusDelivered, o.Status)
	})
}

func TestRefundOrder(t *testing.T) {
	t.Run("refunds settled payment and audits", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusDelivered), nil)
		f.repo.On("LatestPayment", mock.Anything, orderID, PaymentSucceeded).
			Return(&Payment{ProviderIntentID: "pi_1"}, nil)
		f.gateway.On("Refund", mock.Anything, "pi_1", "order-"+orderID+"-refund").Return(nil)
		f.repo.On("UpdatePaymentStatus", mock.Anything, "pi_1",
			[]string{PaymentSucceeded}, PaymentRefunded, mock.Anything).Return(true, nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusDelivered}, StatusRefunded).Return(nil)
		f.audit.On("RecordAudit", mock.Anything, "admin", AuditRefundOrder, AuditTargetOrder, orderID, "damaged").
			Return(nil).Once()

		o, err := f.svc.RefundOrder(context.Background(), orderID, "admin", "damaged")
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, o.Status)
		f.audit.AssertExpectations(t)
	})

	t.Run("pending order cannot be refunded", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPending), nil)

		_, err := f.svc.RefundOrder(context.Background(), orderID, "admin", "")
		assert.ErrorIs(t, err, core.ErrInvalidState)
	})

	t.Run("no settled payment", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPaid), nil)
		f.repo.On("LatestPayment", mock.Anything, orderID, PaymentSucceeded).Return(nil, core.ErrNotFound)

		_, err := f.svc.RefundOrder(context.Background(), orderID, "admin", "")
		assert.ErrorIs(t, err, core.ErrInvalidState)
	})

	t.Run("webhook refunded first", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPaid), nil).Once()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusRefunded), nil).Once()
		f.repo.On("LatestPayment", mock.Anything, orderID, PaymentSucceeded).
			Return(&Payment{ProviderIntentID: "pi_1"}, nil)
		f.gateway.On("Refund", mock.Anything, "pi_1", mock.Anything).Return(nil)
		f.repo.On("UpdatePaymentStatus", mock.Anything, "pi_1",
			[]string{PaymentSucceeded}, PaymentRefunded, mock.Anything).Return(false, nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusPaid}, StatusRefunded).
			Return(fmt.Errorf("order status changed concurrently: %w", core.ErrInvalidState))
		f.audit.On("RecordAudit", mock.Anything, "admin", AuditRefundOrder, AuditTargetOrder, orderID, "duplicate").
			Return(nil).Once()

		o, err := f.svc.RefundOrder(context.Background(), orderID, "admin", "duplicate")
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, o.Status)
		f.audit.AssertExpectations(t)
	})

	t.Run("lost race to another status", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPaid), nil).Once()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusShipped), nil).Once()
		f.repo.On("LatestPayment", mock.Anything, orderID, PaymentSucceeded).
			Return(&Payment{ProviderIntentID: "pi_1"}, nil)
		f.gateway.On("Refund", mock.Anything, "pi_1", mock.Anything).Return(nil)
		f.repo.On("UpdatePaymentStatus", mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		f.repo.On("Transition", mock.Anything, orderID, []string{StatusPaid}, StatusRefunded).
			Return(core.ErrInvalidState)

		_, err := f.svc.RefundOrder(context.Background(), orderID, "admin", "")
		assert.ErrorIs(t, err, core.ErrInvalidState)
		f.audit.AssertNotCalled(t, "RecordAudit",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway failure leaves state alone", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusPaid), nil)
		f.repo.On("LatestPayment", mock.Anything, orderID, PaymentSucceeded).
			Return(&Payment{ProviderIntentID: "pi_1"}, nil)
		f.gateway.On("Refund", mock.Anything, "pi_1", mock.Anything).Return(errors.New("stripe 500"))

		_, err := f.svc.RefundOrder(context.Background(), orderID, "admin", "")
		assert.ErrorIs(t, err, core.ErrExternalService)
		f.repo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCreateReview(t *testing.T) {
	t.Run("seller reviews buyer", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusDelivered), nil)
		f.repo.On("CreateReview", mock.Anything, mock.MatchedBy(func(r *Review) bool {
			return r.ReviewerID == "seller" && r.RevieweeID == "buyer" && r.Rating == 5
		})).Return(nil)

		r, err := f.svc.CreateReview(context.Background(), orderID, "seller", 5, "prompt payment")
		require.NoError(t, err)
		assert.Equal(t, "buyer", r.RevieweeID)
	})

	t.Run("only delivered", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusShipped), nil)

		_, err := f.svc.CreateReview(context.Background(), orderID, "buyer", 4, "")
		assert.ErrorIs(t, err, core.ErrInvalidState)
	})

	t.Run("stranger", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusDelivered), nil)

		_, err := f.svc.CreateReview(context.Background(), orderID, "stranger", 4, "")
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("second review conflicts", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, orderID).Return(order(StatusDelivered), nil)
		f.repo.On("CreateReview", mock.Anything, mock.Anything).Return(core.ErrDuplicateKey)

		_, err := f.svc.CreateReview(context.Background(), orderID, "buyer", 4, "")
		assert.ErrorIs(t, err, core.ErrDuplicateKey)
	})
}
