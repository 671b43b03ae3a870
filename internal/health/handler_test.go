// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("refused") }

func readiness(t *testing.T, h *Handler) (int, ReadinessResponse) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadiness(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		code, body := readiness(t, NewHandler(
			Dependency{Name: "database", Checker: CheckerFunc(ok)},
			Dependency{Name: "redis", Checker: CheckerFunc(ok)},
		))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		require.Len(t, body.Checks, 2)
		assert.Equal(t, "database", body.Checks[0].Name)
		assert.Equal(t, "redis", body.Checks[1].Name)
	})

	t.Run("required dependency down", func(t *testing.T) {
		code, body := readiness(t, NewHandler(
			Dependency{Name: "database", Checker: CheckerFunc(down)},
		))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "ping failed", body.Checks[0].Message)
	})

	t.Run("optional dependency down stays ready", func(t *testing.T) {
		code, body := readiness(t, NewHandler(
			Dependency{Name: "database", Checker: CheckerFunc(ok)},
			Dependency{Name: "nats", Checker: CheckerFunc(down), Optional: true},
		))

		assert.Equal(t, http.StatusOK, code)
		assert.False(t, body.Checks[1].Healthy)
	})

	t.Run("missing checker", func(t *testing.T) {
		code, body := readiness(t, NewHandler(Dependency{Name: "redis"}))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "redis checker not configured", body.Checks[0].Message)
	})
}

func TestShutdown(t *testing.T) {
	h := NewHandler()
	h.SetShutdown(true)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}
