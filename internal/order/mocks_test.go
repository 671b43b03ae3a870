// AngelaMos | 2026
// mocks_test.go

package order

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/carterperez-dev/templates/nz-market/internal/catalog"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, userID, role string, page core.PageParams) ([]Order, int, error) {
	args := m.Called(ctx, userID, role, page)
	out, _ := args.Get(0).([]Order)
	return out, args.Int(1), args.Error(2)
}

func (m *mockRepo) Transition(ctx context.Context, id string, from []string, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockRepo) CreatePayment(ctx context.Context, p *Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) GetPaymentByIntent(ctx context.Context, intentID string) (*Payment, error) {
	args := m.Called(ctx, intentID)
	p, _ := args.Get(0).(*Payment)
	return p, args.Error(1)
}

func (m *mockRepo) LatestPayment(ctx context.Context, orderID, status string) (*Payment, error) {
	args := m.Called(ctx, orderID, status)
	p, _ := args.Get(0).(*Payment)
	return p, args.Error(1)
}

func (m *mockRepo) UpdatePaymentStatus(
	ctx context.Context,
	intentID string,
	from []string,
	to string,
	payload []byte,
) (bool, error) {
	args := m.Called(ctx, intentID, from, to, payload)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	args := m.Called(ctx, eventID, eventType)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) CreateShipment(ctx context.Context, s *Shipment) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockRepo) MarkShipmentDelivered(ctx context.Context, orderID string, at time.Time) error {
	return m.Called(ctx, orderID, at).Error(0)
}

func (m *mockRepo) GetShipment(ctx context.Context, orderID string) (*Shipment, error) {
	args := m.Called(ctx, orderID)
	s, _ := args.Get(0).(*Shipment)
	return s, args.Error(1)
}

func (m *mockRepo) CreateReview(ctx context.Context, r *Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRepo) ListReviews(ctx context.Context, orderID string) ([]Review, error) {
	args := m.Called(ctx, orderID)
	out, _ := args.Get(0).([]Review)
	return out, args.Error(1)
}

func (m *mockRepo) WithTx(_ context.Context, fn func(Repository) error) error {
	return fn(m)
}

type mockItems struct {
	mock.Mock
}

func (m *mockItems) Lookup(ctx context.Context, id string) (*catalog.Item, error) {
	args := m.Called(ctx, id)
	it, _ := args.Get(0).(*catalog.Item)
	return it, args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(
	ctx context.Context,
	orderID string,
	amountCents int64,
	currency, key string,
) (*Intent, error) {
	args := m.Called(ctx, orderID, amountCents, currency, key)
	in, _ := args.Get(0).(*Intent)
	return in, args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, intentID, key string) error {
	return m.Called(ctx, intentID, key).Error(0)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*WebhookEvent)
	return ev, args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) RecordAudit(ctx context.Context, actorID, action, targetType, targetID, metadata string) error {
	return m.Called(ctx, actorID, action, targetType, targetID, metadata).Error(0)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}
