// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type stubVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (s stubVerifier) VerifyAccessToken(context.Context, string) (*AccessTokenClaims, error) {
	return s.claims, s.err
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserID(r.Context())))
	})
}

func TestAuthenticator(t *testing.T) {
	claims := &AccessTokenClaims{UserID: "u-1", Role: "USER"}

	cases := []struct {
		name     string
		verifier stubVerifier
		header   string
		status   int
	}{
		{"no token", stubVerifier{claims: claims}, "", http.StatusUnauthorized},
		{"wrong scheme", stubVerifier{claims: claims}, "Basic abc", http.StatusUnauthorized},
		{"valid", stubVerifier{claims: claims}, "Bearer tok", http.StatusOK},
		{
			"revoked after ban",
			stubVerifier{err: fmt.Errorf("verify: %w", core.ErrTokenRevoked)},
			"Bearer tok",
			http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			Authenticator(tc.verifier)(echoUser()).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u-1", rec.Body.String())
			}
		})
	}
}

func TestExtractTokenFromQueryOnlyForWebSocket(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/chat/ws?access_token=abc", nil)
	assert.Empty(t, ExtractToken(req))

	req.Header.Set("Upgrade", "websocket")
	assert.Equal(t, "abc", ExtractToken(req))
}

func TestRequireAdmin(t *testing.T) {
	run := func(role string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		if role != "" {
			req = req.WithContext(WithClaims(req.Context(), &AccessTokenClaims{UserID: "u", Role: role}))
		}
		rec := httptest.NewRecorder()
		RequireAdmin(echoUser()).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, run(""))
	assert.Equal(t, http.StatusForbidden, run("USER"))
	assert.Equal(t, http.StatusOK, run(RoleAdmin))
}

func TestKeyByIPAndEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders/3f2504e0-4f89-11d3-9a0c-0305e82c3301/pay", nil)
	req.RemoteAddr = "203.0.113.9:5123"

	assert.Equal(t, "ratelimit:ip:203.0.113.9:endpoint:/orders/{id}/pay", KeyByIPAndEndpoint(req))
}
