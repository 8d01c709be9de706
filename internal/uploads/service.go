package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidUpload = errors.New("invalid upload")

const (
	// MaxUploadSize bounds attachments and signatures.
	MaxUploadSize = 10 << 20
	defaultMime   = "application/octet-stream"
)

// UploadService stores files referenced by form responses.
type UploadService struct {
	Driver StorageDriver
}

func NewUploadService(driver StorageDriver) *UploadService {
	return &UploadService{Driver: driver}
}

// Upload stores reader under a fresh <kind>/<uuid><ext> key. Signatures must be images.
func (s *UploadService) Upload(ctx context.Context, kind Kind, filename string, reader io.Reader, size int64, mime string) (*FileMetadata, error) {
	if size > MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, MaxUploadSize)
	}
	if mime == "" {
		mime = defaultMime
	}
	if kind == KindSignature && !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: signatures must be images", ErrInvalidUpload)
	}

	id := uuid.New()
	key := objectKey(kind, id, filename)

	if err := s.Driver.Save(ctx, key, io.LimitReader(reader, MaxUploadSize), mime); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned file", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	slog.InfoContext(ctx, "file uploaded", "id", id, "key", key, "kind", kind)
	return &FileMetadata{
		ID:       id,
		Kind:     kind,
		Name:     filename,
		Key:      key,
		URL:      url,
		Size:     size,
		MimeType: mime,
	}, nil
}

// Download retrieves the file content and its MIME type.
func (s *UploadService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, "", err
	}
	return s.Driver.Get(ctx, key)
}
