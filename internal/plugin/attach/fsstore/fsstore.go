// Package fsstore keeps attachment files in a local directory served under
// the public /uploads path. Stored names come from attach.StorageName, so
// concurrent uploads never collide even though they share one directory.
package fsstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/firedesk/records-service/internal/config"
	registryattach "github.com/firedesk/records-service/internal/registry/attach"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
)

func init() {
	registryattach.Register(registryattach.Plugin{
		Name: "fs",
		Loader: func(ctx context.Context) (registryattach.FileStore, error) {
			cfg := config.FromContext(ctx)
			if cfg == nil || cfg.UploadDir == "" {
				return nil, fmt.Errorf("fsstore: upload directory is required")
			}
			return New(cfg.UploadDir)
		},
	})
}

// FSStore implements FileStore over a single directory.
type FSStore struct {
	dir string
}

// New creates the upload directory if needed and returns the store.
func New(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create upload dir %q: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Store(ctx context.Context, originalName string, data io.Reader, maxSize int64) (*registryattach.StoredFile, error) {
	name := registryattach.StorageName(originalName, time.Now())
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("fsstore: create %q: %w", name, err)
	}
	n, err := io.Copy(f, io.LimitReader(data, maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("fsstore: write %q: %w", name, err)
	}
	if n > maxSize {
		_ = os.Remove(path)
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", maxSize)
	}
	return &registryattach.StoredFile{Filename: name, Size: n}, nil
}

func (s *FSStore) Retrieve(ctx context.Context, filename string) (io.ReadCloser, error) {
	path, err := s.safePath(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &registrystore.NotFoundError{Resource: "file", ID: filename}
		}
		return nil, fmt.Errorf("fsstore: open %q: %w", filename, err)
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, filename string) error {
	path, err := s.safePath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fsstore: remove %q: %w", filename, err)
	}
	return nil
}

func (s *FSStore) SignedURL(ctx context.Context, filename string, expiry time.Duration) (*url.URL, error) {
	return nil, registryattach.ErrSignedURLUnsupported
}

// safePath rejects path separators and traversal so a crafted filename can
// never escape the upload directory.
func (s *FSStore) safePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", &registrystore.NotFoundError{Resource: "file", ID: filename}
	}
	return filepath.Join(s.dir, filename), nil
}
