package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for object keys that escape the bucket directory.
var ErrInvalidKey = errors.New("invalid object key")

// LocalStorage keeps attachment objects on disk under a base directory and
// addresses them by public URLs of the form <publicPrefix><key>.
type LocalStorage struct {
	baseDir      string
	publicPrefix string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicPrefix string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./design-attachments"
	}
	if publicPrefix == "" {
		publicPrefix = "/design-attachments/"
	}
	if !strings.HasSuffix(publicPrefix, "/") {
		publicPrefix += "/"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicPrefix: publicPrefix}, nil
}

// Put streams r into the object addressed by key and returns its public URL.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.URL(key), nil
}

// Open returns a read-only handle for the stored object.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Remove deletes every key, ignoring objects that are already gone.
// All keys are attempted; the joined error lists the ones that failed.
func (s *LocalStorage) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := s.resolve(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("delete object %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// URL returns the public URL of key.
func (s *LocalStorage) URL(key string) string {
	return s.publicPrefix + key
}

// KeyFromURL extracts the object key from a public URL. ok is false for URLs
// that do not point into this bucket.
func (s *LocalStorage) KeyFromURL(url string) (string, bool) {
	idx := strings.Index(url, s.publicPrefix)
	if idx < 0 {
		return "", false
	}
	key := url[idx+len(s.publicPrefix):]
	if key == "" {
		return "", false
	}
	return key, true
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || filepath.IsAbs(key) || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.baseDir, clean), nil
}
