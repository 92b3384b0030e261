// Package storage persists uploaded documents and generated exports on the
// local filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/config"
)

// Key prefixes.
const (
	UploadPrefix = "data"
	ExportPrefix = "exports"
)

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("invalid storage key")

// Store saves and reads blobs. A location returned by Save is opaque to
// callers and is what gets persisted in the documents table.
type Store interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, location string) error
	URL(location string) string
}

// New builds the Store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.StorageBackendLocal, "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case config.StorageBackendS3:
		return NewS3Store(ctx, cfg.S3, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}

// UploadKey returns a fresh key for an uploaded file, keeping its extension.
func UploadKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(UploadPrefix, strings.ReplaceAll(uuid.NewString(), "-", "")+ext)
}

// ExportKey returns a fresh key for a generated export with the given extension.
func ExportKey(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(ExportPrefix, uuid.NewString()+ext)
}

// ExportsRoute returns the URL path under which exports are reachable when
// download URLs are built from publicBaseURL. Only the path of an absolute
// base URL is used.
func ExportsRoute(publicBaseURL string) string {
	base := publicBaseURL
	if u, err := url.Parse(publicBaseURL); err == nil {
		base = u.Path
	}
	return path.Join("/", base, ExportPrefix)
}

// cleanKey normalizes a slash-separated key. Cleaning against a rooted path
// drops any leading ".." segments.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	return key, nil
}

func joinURL(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + key
}
