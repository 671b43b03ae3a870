// AngelaMos | 2026
// metrics_test.go

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	reg := New("test")

	r := chi.NewRouter()
	r.Use(reg.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	got := testutil.ToFloat64(
		reg.httpRequests.WithLabelValues(http.MethodGet, "/items/{id}", "404"),
	)
	assert.Equal(t, float64(3), got)
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	reg := New("test")
	reg.OrdersCreated.Inc()
	reg.WebhookEvents.WithLabelValues("payment_intent.succeeded", "processed").Inc()

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "test_orders_created_total 1"))
	assert.Contains(t, body, `test_webhook_events_total{result="processed",type="payment_intent.succeeded"} 1`)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New("test")
	b := New("test")
	a.ChatMessages.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.ChatMessages))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.ChatMessages))

	count, err := testutil.GatherAndCount(a.Gatherer(), "test_chat_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
