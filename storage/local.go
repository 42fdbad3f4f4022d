package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"teamvault-backend/apperr"
)

// LocalBackend implements Backend on the local filesystem
type LocalBackend struct {
	basePath string
}

// NewLocalBackend creates a local backend rooted at basePath
func NewLocalBackend(basePath string) (*LocalBackend, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalBackend{basePath: basePath}, nil
}

// Put stores an object under key
func (b *LocalBackend) Put(ctx context.Context, key string, data io.Reader) error {
	fullPath := filepath.Join(b.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return &apperr.StorageError{Op: "put", Key: key, Err: err}
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return &apperr.StorageError{Op: "put", Key: key, Err: err}
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		os.Remove(fullPath) // clean up partial write
		return &apperr.StorageError{Op: "put", Key: key, Err: err}
	}

	return nil
}

// Get retrieves an object by key
func (b *LocalBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath := filepath.Join(b.basePath, filepath.FromSlash(key))

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &apperr.StorageError{Op: "get", Key: key, Err: apperr.ErrNotFound}
		}
		return nil, &apperr.StorageError{Op: "get", Key: key, Err: err}
	}

	return file, nil
}

// Delete removes an object by key
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	fullPath := filepath.Join(b.basePath, filepath.FromSlash(key))

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return &apperr.StorageError{Op: "delete", Key: key, Err: err}
	}

	return nil
}
