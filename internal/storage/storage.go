// Package storage persists uploaded objects either on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalURLPrefix is the URL path under which the server exposes LocalStorage.
const LocalURLPrefix = "/uploads"

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// ObjectStorage stores objects by key and reports where clients can fetch them.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// LocalStorage writes objects beneath a directory served at LocalURLPrefix.
type LocalStorage struct {
	dir string
}

// NewLocalStorage returns a LocalStorage rooted at dir.
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Dir returns the storage root.
func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return "", err
	}
	return path.Join(LocalURLPrefix, key), nil
}

func (s *LocalStorage) Remove(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
