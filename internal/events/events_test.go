// AngelaMos | 2026
// events_test.go

package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, payload any) error {
	args := m.Called(ctx, subject, payload)
	return args.Error(0)
}

func (m *mockPublisher) Close() {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := new(mockPublisher)
	payload := map[string]string{"order_id": "o1"}
	pub.On("Publish", mock.Anything, SubjectOrderCreated, payload).
		Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		Emit(context.Background(), pub, discardLogger(), SubjectOrderCreated, payload)
	})
	pub.AssertExpectations(t)
}

func TestEmitNilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), nil, discardLogger(), SubjectUserBanned, nil)
	})
}

func TestLogPublisherNeverFails(t *testing.T) {
	p := NewLogPublisher(discardLogger())
	assert.NoError(t, p.Publish(context.Background(), SubjectPaymentSucceeded, struct{}{}))
	p.Close()
}
