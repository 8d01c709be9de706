package uploads

import (
	"context"
	"io"
	"time"
)

// StorageDriver stores the binary content of attachments and signatures.
// Get returns drivers.ErrNotFound for unknown keys.
type StorageDriver interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	// GenerateURL returns a URL the portal can fetch the object from.
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
