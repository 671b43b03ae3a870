// AngelaMos | 2026
// service_test.go

package upload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

type fakePresigner struct {
	key         string
	contentType string
	expiry      time.Duration
	err         error
}

func (f *fakePresigner) PresignPut(
	_ context.Context,
	key, contentType string,
	expiry time.Duration,
) (*url.URL, error) {
	f.key, f.contentType, f.expiry = key, contentType, expiry
	if f.err != nil {
		return nil, f.err
	}
	return url.Parse("https://storage.test/bucket/" + key + "?X-Amz-Signature=abc")
}

func (f *fakePresigner) PublicURL(key string) string {
	return "https://storage.test/bucket/" + key
}

func TestPresign(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("keeps a matching extension lower-cased", func(t *testing.T) {
		store := &fakePresigner{}
		svc := NewService(store, 0)
		svc.now = func() time.Time { return fixed }

		resp, err := svc.Presign(context.Background(), PresignRequest{
			FileName:    "Holiday.JPG",
			ContentType: "image/jpeg",
		})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(resp.Key, "uploads/"))
		assert.True(t, strings.HasSuffix(resp.Key, ".jpg"))
		assert.Equal(t, resp.Key, store.key)
		assert.Equal(t, "image/jpeg", store.contentType)
		assert.Equal(t, 15*time.Minute, store.expiry)
		assert.Equal(t, fixed.Add(15*time.Minute), resp.ExpiresAt)
		assert.Equal(t, resp.Key, resp.Fields["key"])
		assert.Contains(t, resp.URL, "X-Amz-Signature")
		assert.Equal(t, "https://storage.test/bucket/"+resp.Key, resp.PublicURL)
	})

	t.Run("derives extension when the name has none", func(t *testing.T) {
		svc := NewService(&fakePresigner{}, time.Minute)

		resp, err := svc.Presign(context.Background(), PresignRequest{
			FileName:    "photo",
			ContentType: "image/webp",
		})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(resp.Key, ".webp"))
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		svc := NewService(&fakePresigner{}, 0)

		_, err := svc.Presign(context.Background(), PresignRequest{
			FileName:    "notes.pdf",
			ContentType: "application/pdf",
		})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("rejects mismatched extension", func(t *testing.T) {
		svc := NewService(&fakePresigner{}, 0)

		_, err := svc.Presign(context.Background(), PresignRequest{
			FileName:    "shell.php",
			ContentType: "image/png",
		})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("storage failure is external", func(t *testing.T) {
		svc := NewService(&fakePresigner{err: errors.New("no route to host")}, 0)

		_, err := svc.Presign(context.Background(), PresignRequest{
			FileName:    "a.png",
			ContentType: "image/png",
		})
		assert.ErrorIs(t, err, core.ErrExternalService)
	})
}

func TestMinIOPresignIsOffline(t *testing.T) {
	store, err := NewMinIOStorage(config.StorageConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "nz-market-uploads",
		Region:    "ap-southeast-2",
	})
	require.NoError(t, err)

	u, err := store.PresignPut(context.Background(), "uploads/x.png", "image/png", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "/nz-market-uploads/uploads/x.png", u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "http://localhost:9000/nz-market-uploads/uploads/x.png", store.PublicURL("uploads/x.png"))
}

func TestPresignEndpoint(t *testing.T) {
	svc := NewService(&fakePresigner{err: errors.New("down")}, 0)
	r := chi.NewRouter()
	pass := func(next http.Handler) http.Handler { return next }
	NewHandler(svc).RegisterRoutes(r, pass)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing fields", `{}`, http.StatusBadRequest},
		{"wrong type", `{"file_name":"a.gif","content_type":"image/gif"}`, http.StatusBadRequest},
		{"storage down", `{"file_name":"a.png","content_type":"image/png"}`, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/uploads/presign", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
