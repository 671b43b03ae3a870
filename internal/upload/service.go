// AngelaMos | 2026
// service.go

package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

const (
	keyPrefix     = "uploads/"
	defaultExpiry = 15 * time.Minute
)

var extensionsByType = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/jpg":  {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/webp": {".webp"},
}

type Service struct {
	storage Presigner
	expiry  time.Duration
	now     func() time.Time
}

func NewService(storage Presigner, expiry time.Duration) *Service {
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &Service{
		storage: storage,
		expiry:  expiry,
		now:     time.Now,
	}
}

// Presign issues a one-shot PUT URL under a fresh key. The stored
// extension always agrees with the declared content type.
func (s *Service) Presign(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	ext, err := objectExtension(req.FileName, req.ContentType)
	if err != nil {
		return nil, err
	}

	key := keyPrefix + uuid.New().String() + ext
	expiresAt := s.now().UTC().Add(s.expiry)

	u, err := s.storage.PresignPut(ctx, key, req.ContentType, s.expiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w: %w", core.ErrExternalService, err)
	}

	return &PresignResponse{
		URL: u.String(),
		Key: key,
		Fields: map[string]string{
			"key":          key,
			"Content-Type": req.ContentType,
		},
		PublicURL: s.storage.PublicURL(key),
		ExpiresAt: expiresAt,
	}, nil
}

func objectExtension(fileName, contentType string) (string, error) {
	allowed, ok := extensionsByType[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("only image files are allowed: %w", core.ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return allowed[0], nil
	}
	for _, a := range allowed {
		if ext == a {
			return ext, nil
		}
	}
	return "", fmt.Errorf("file extension does not match content type: %w", core.ErrInvalidInput)
}
