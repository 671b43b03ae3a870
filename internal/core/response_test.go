// AngelaMos | 2026
// response_test.go

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDetail(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrForbidden, "forbidden"},
		{fmt.Errorf("order is not pending: %w", ErrInvalidState), "order is not pending"},
		{
			fmt.Errorf("cancel order: %w", fmt.Errorf("order is not pending: %w", ErrInvalidState)),
			"order is not pending",
		},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, errorDetail(tc.err))
	}
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", fmt.Errorf("get item: %w", ErrNotFound), http.StatusNotFound, "item not found"},
		{"bare forbidden", ErrForbidden, http.StatusForbidden, "insufficient permissions"},
		{
			"forbidden with detail",
			fmt.Errorf("not a party to this order: %w", ErrForbidden),
			http.StatusForbidden, "not a party to this order",
		},
		{"invalid input", fmt.Errorf("cannot ban yourself: %w", ErrInvalidInput), http.StatusBadRequest, "cannot ban yourself"},
		{"duplicate", fmt.Errorf("insert: %w", ErrDuplicateKey), http.StatusConflict, "item already exists"},
		{"invalid state", fmt.Errorf("report is already RESOLVED: %w", ErrInvalidState), http.StatusConflict, "report is already RESOLVED"},
		{
			"external",
			fmt.Errorf("create payment intent: %w: %w", ErrExternalService, errors.New("card_declined")),
			http.StatusBadGateway, "upstream service is unavailable",
		},
		{"token expired", ErrTokenExpired, http.StatusUnauthorized, "token has expired"},
		{"app error passes through", BadRequestError("bad cursor"), http.StatusBadRequest, "bad cursor"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tc.err, "item")

			assert.Equal(t, tc.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body.Error)
			assert.NotEmpty(t, body.Code)
		})
	}
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []string{"a", "b"}, 2, 2, 5)

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.TotalPages)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 5, body.Total)
}
