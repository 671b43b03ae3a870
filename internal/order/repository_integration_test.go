// AngelaMos | 2026
// repository_integration_test.go

//go:build integration

package order

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/testdb"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	db, cleanup, err := testdb.Start()
	if err != nil {
		log.Fatalf("start test database: %v", err)
	}
	testDB = db

	code := m.Run()
	cleanup()
	os.Exit(code)
}

func seedOrder(t *testing.T, prefix string) (Repository, *Order) {
	t.Helper()
	ctx := context.Background()

	seller, err := testdb.InsertUser(ctx, testDB, prefix+"-seller@example.nz", "USER")
	require.NoError(t, err)
	buyer, err := testdb.InsertUser(ctx, testDB, prefix+"-buyer@example.nz", "USER")
	require.NoError(t, err)
	item, err := testdb.InsertItem(ctx, testDB, seller, "bike", "450.00", "ACTIVE")
	require.NoError(t, err)

	repo := NewRepository(testDB)
	o := &Order{
		ID:           uuid.New().String(),
		ItemID:       item,
		BuyerID:      buyer,
		SellerID:     seller,
		PriceAtOrder: decimal.RequireFromString("450.00"),
		Currency:     "NZD",
		Status:       StatusPending,
	}
	require.NoError(t, repo.Create(ctx, o))

	return repo, o
}

func TestTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	repo, o := seedOrder(t, "cas")

	require.NoError(t, repo.Transition(ctx, o.ID, []string{StatusPending}, StatusPaid))

	err := repo.Transition(ctx, o.ID, []string{StatusPending}, StatusCancelled)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, "bike", got.ItemTitle)
}

func TestPriceAtOrderIsImmutable(t *testing.T) {
	ctx := context.Background()
	_, o := seedOrder(t, "immutable")

	_, err := testDB.ExecContext(ctx,
		`UPDATE orders SET price_at_order = 1.00 WHERE id = $1`, o.ID)
	require.Error(t, err)
}

func TestWebhookBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo, o := seedOrder(t, "webhook")

	p := &Payment{
		ID:               uuid.New().String(),
		OrderID:          o.ID,
		Provider:         ProviderStripe,
		ProviderIntentID: "pi_integration_1",
		Amount:           o.PriceAtOrder,
		Currency:         "NZD",
		Status:           PaymentInit,
	}
	require.NoError(t, repo.CreatePayment(ctx, p))

	dup := *p
	dup.ID = uuid.New().String()
	assert.ErrorIs(t, repo.CreatePayment(ctx, &dup), core.ErrDuplicateKey)

	fresh, err := repo.MarkEventProcessed(ctx, "evt_integration_1", EventIntentSucceeded)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = repo.MarkEventProcessed(ctx, "evt_integration_1", EventIntentSucceeded)
	require.NoError(t, err)
	assert.False(t, fresh)

	changed, err := repo.UpdatePaymentStatus(ctx, p.ProviderIntentID,
		[]string{PaymentInit}, PaymentSucceeded, []byte(`{"id":"evt_integration_1"}`))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdatePaymentStatus(ctx, p.ProviderIntentID,
		[]string{PaymentInit}, PaymentSucceeded, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	latest, err := repo.LatestPayment(ctx, o.ID, PaymentSucceeded)
	require.NoError(t, err)
	assert.Equal(t, p.ProviderIntentID, latest.ProviderIntentID)
	assert.JSONEq(t, `{"id":"evt_integration_1"}`, string(latest.Payload))
}

func TestReviewsAreOnePerReviewer(t *testing.T) {
	ctx := context.Background()
	repo, o := seedOrder(t, "review")

	review := func() *Review {
		return &Review{
			ID:         uuid.New().String(),
			OrderID:    o.ID,
			ReviewerID: o.BuyerID,
			RevieweeID: o.SellerID,
			Rating:     5,
		}
	}

	require.NoError(t, repo.CreateReview(ctx, review()))
	assert.ErrorIs(t, repo.CreateReview(ctx, review()), core.ErrDuplicateKey)

	reviews, err := repo.ListReviews(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}
