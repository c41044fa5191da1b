package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrNotFound = errors.New("file not found")

// FileStorage is the blob store documents are kept in. Paths are
// slash-separated keys relative to the store root.
type FileStorage interface {
	// Upload uploads a file and returns the stored path
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Download retrieves a file
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// GetURL generates a presigned/public URL
	GetURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// Exists checks if file exists
	Exists(ctx context.Context, path string) (bool, error)
}

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

type Config struct {
	Driver    string
	LocalPath string
	BaseURL   string
	S3        S3Config
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (FileStorage, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		return NewLocalStorage(cfg.LocalPath, cfg.BaseURL)
	case DriverS3:
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
