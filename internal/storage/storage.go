package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Backend stores media objects (uploads, thumbnails, QR images) by key.
type Backend interface {
	// Upload writes the object, replacing any existing one under the same key
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error

	// Download opens the object for reading
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object
	Delete(ctx context.Context, key string) error
}

// CleanKey normalizes a slash-separated key and rejects keys that escape the root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

type Config struct {
	Backend string
	Dir     string
	S3      S3Config
}

// New builds the backend named in cfg.
func New(cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFS(cfg.Dir)
	case "s3":
		return NewS3(context.Background(), cfg.S3)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
}
