package attach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSignedURLUnsupported is returned by file stores that cannot mint
// time-limited download URLs (callers fall back to streaming).
var ErrSignedURLUnsupported = errors.New("signed URLs not supported by this file store")

// StoredFile describes a file persisted by a FileStore.
type StoredFile struct {
	// Filename is the collision-resistant stored name; it doubles as the
	// public download path segment.
	Filename string
	Size     int64
}

// FileStore is the interface for attachment storage backends.
type FileStore interface {
	// Store writes the upload under a freshly generated storage name derived
	// from originalName. Fails when data exceeds maxSize bytes.
	Store(ctx context.Context, originalName string, data io.Reader, maxSize int64) (*StoredFile, error)
	// Retrieve returns a reader for a stored file.
	Retrieve(ctx context.Context, filename string) (io.ReadCloser, error)
	// Delete removes a stored file. Deleting a missing file is not an error.
	Delete(ctx context.Context, filename string) error
	// SignedURL returns a time-limited download URL, if the backend supports it.
	SignedURL(ctx context.Context, filename string, expiry time.Duration) (*url.URL, error)
}

// StorageName builds a collision-resistant stored filename from an upload's
// original name: epoch-millis timestamp, a random suffix, and the original
// extension. Uploads across concurrent requests share one namespace, so the
// name must be unique without coordination.
func StorageName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, ext)
}

// Loader creates a FileStore from the config carried in ctx.
type Loader func(ctx context.Context) (FileStore, error)

// Plugin represents a file store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a file store plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered file store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named file store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown file store %q; valid: %v", name, Names())
}
