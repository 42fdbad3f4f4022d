package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend is the narrow contract every content backend implements.
// Keys are opaque to the backend; Get of an absent key returns an error
// wrapping apperr.ErrNotFound.
type Backend interface {
	// Put stores the object under key, overwriting any previous object
	Put(ctx context.Context, key string, data io.Reader) error

	// Get retrieves the object stored under key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object under key; deleting an absent key is a no-op
	Delete(ctx context.Context, key string) error
}

// BackendType selects the content backend implementation
type BackendType string

const (
	BackendTypeLocal BackendType = "local"
	BackendTypeS3    BackendType = "s3"
)

// BackendConfig holds configuration for content backends
type BackendConfig struct {
	Type         BackendType
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// NewBackend creates a content backend from explicit configuration
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Type {
	case BackendTypeLocal:
		return NewLocalBackend(cfg.LocalPath)
	case BackendTypeS3:
		return NewS3Backend(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Type)
	}
}

// NewBackendFromEnv creates a content backend from environment variables
func NewBackendFromEnv() (Backend, error) {
	backendType := os.Getenv("STORAGE_TYPE")
	if backendType == "" {
		backendType = "local" // default for development
	}

	cfg := BackendConfig{Type: BackendType(backendType)}

	switch cfg.Type {
	case BackendTypeLocal:
		cfg.LocalPath = os.Getenv("STORAGE_LOCAL_PATH")
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./storage/files"
		}
		return NewLocalBackend(cfg.LocalPath)

	case BackendTypeS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}
		return NewS3Backend(cfg)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backendType)
	}
}

// Checksum computes the hex-encoded SHA-256 digest of the content
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BuildKey derives a unique storage key from the category, the upload
// time and the file id: category/YYYY/MM/<id>_<unixnano><ext>. The id
// and nanosecond timestamp make the key unique without coordination.
func BuildKey(category string, fileID uuid.UUID, uploadedAt time.Time, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return path.Join(
		category,
		fmt.Sprintf("%04d", uploadedAt.Year()),
		fmt.Sprintf("%02d", uploadedAt.Month()),
		fmt.Sprintf("%s_%d%s", fileID, uploadedAt.UnixNano(), ext),
	)
}
