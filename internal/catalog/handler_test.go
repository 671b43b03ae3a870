// AngelaMos | 2026
// handler_test.go

package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/nz-market/internal/middleware"
)

func newRouter(repo *mockRepo) http.Handler {
	r := chi.NewRouter()
	allow := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{
				UserID: "stranger",
				Role:   "USER",
			})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
	NewHandler(NewService(repo)).RegisterRoutes(r, allow)
	return r
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestSearchRejectsBadQuery(t *testing.T) {
	router := newRouter(new(mockRepo))

	cases := map[string]string{
		"/items/search?min_price=abc":  "min_price must be a number",
		"/items/search?sort_by=title":  "sort_by must be one of createdAt, price, viewCount",
		"/items/search?category_id=42": "category_id must be a valid id",
	}

	for url, msg := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
		assert.Equal(t, msg, errorBody(t, rec), url)
	}
}

func TestGetItemInvalidIDIsNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(new(mockRepo)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/items/not-a-uuid", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item not found", errorBody(t, rec))
}

func TestDeleteByStrangerIsForbidden(t *testing.T) {
	repo := new(mockRepo)
	item := sampleItem()
	repo.On("GetByID", mock.Anything, item.ID).Return(item, nil)

	rec := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/items/"+item.ID, nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateItemValidatesBody(t *testing.T) {
	body := `{"title":"ok title","price":"10","condition":"BROKEN","trade_method":"PICKUP"}`

	rec := httptest.NewRecorder()
	newRouter(new(mockRepo)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/items/", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "condition")
}
