package uploads

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kind namespaces uploaded files by what a form response uses them for.
type Kind string

const (
	KindAttachment Kind = "attachment"
	KindSignature  Kind = "signature"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAttachment, KindSignature:
		return Kind(s), nil
	case "":
		return KindAttachment, nil
	}
	return "", fmt.Errorf("%w: unsupported kind %q", ErrInvalidUpload, s)
}

// FileMetadata represents the metadata of an uploaded file
type FileMetadata struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	Name     string    `json:"name"`
	Key      string    `json:"key"`
	URL      string    `json:"url"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mimeType"`
}

// objectKey builds the storage key <kind>/<uuid><ext>.
func objectKey(kind Kind, id uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return fmt.Sprintf("%s/%s%s", kind, id, ext)
}

// ValidateKey accepts only keys produced by objectKey.
func ValidateKey(key string) error {
	kind, name, ok := strings.Cut(key, "/")
	if !ok || path.Clean(key) != key {
		return fmt.Errorf("%w: malformed key", ErrInvalidUpload)
	}
	if _, err := ParseKind(kind); err != nil || kind == "" {
		return fmt.Errorf("%w: malformed key", ErrInvalidUpload)
	}
	ext := path.Ext(name)
	if _, err := uuid.Parse(strings.TrimSuffix(name, ext)); err != nil {
		return fmt.Errorf("%w: malformed key", ErrInvalidUpload)
	}
	return nil
}
