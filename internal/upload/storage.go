// AngelaMos | 2026
// storage.go

package upload

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/carterperez-dev/templates/nz-market/internal/config"
)

// Presigner signs object URLs without touching the object itself.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (*url.URL, error)
	PublicURL(key string) string
}

type MinIOStorage struct {
	client *minio.Client
	bucket string
}

func NewMinIOStorage(cfg config.StorageConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStorage{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the upload bucket on first start. Failure is
// logged rather than fatal since presigning works offline.
func (s *MinIOStorage) EnsureBucket(ctx context.Context, region string) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return
	}

	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
	if err != nil {
		slog.Warn("upload bucket unavailable", "bucket", s.bucket, "error", err)
		return
	}
	slog.Info("upload bucket created", "bucket", s.bucket)
}

// PresignPut binds the content type into the signature, so the client
// must send the same Content-Type header on upload.
func (s *MinIOStorage) PresignPut(
	ctx context.Context,
	key, contentType string,
	expiry time.Duration,
) (*url.URL, error) {
	headers := http.Header{}
	headers.Set("Content-Type", contentType)

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, expiry, nil, headers)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}
	return u, nil
}

func (s *MinIOStorage) PublicURL(key string) string {
	return s.client.EndpointURL().JoinPath(s.bucket, key).String()
}
