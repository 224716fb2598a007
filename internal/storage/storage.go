package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/globaltrotters/apiserver/config"
	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

const (
	photoPrefix  = "profile-photos"
	cacheControl = "private, max-age=3600"
)

// Object is one blob to upload.
type Object struct {
	Key          string
	Body         io.Reader
	Size         int64
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// Backend is implemented by each blob store.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage holds profile photos in the configured bucket.
type Storage struct {
	backend Backend
}

func NewStorage(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// FromConfig builds the backend named by cfg.Backend and makes sure its
// bucket exists. It returns nil without error when no backend is configured.
func FromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend Backend
	switch name := strings.ToLower(strings.TrimSpace(cfg.Backend)); name {
	case "":
		return nil, nil
	case "minio":
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// PhotoKey returns a fresh object key for a profile photo of userID. Keys are
// never reused so a cached photo URL cannot serve a replaced image.
func PhotoKey(userID int, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d/%s.%s", photoPrefix, userID, uuid.NewString(), ext)
}

// Put uploads a private, briefly cacheable object tagged with its owner.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("object key is required")
	}
	obj := Object{
		Key:          key,
		Body:         r,
		Size:         size,
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	if owner := ownerFromKey(key); owner != "" {
		obj.Metadata = map[string]string{"owner": owner}
	}
	return s.backend.Put(ctx, obj)
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

func ownerFromKey(key string) string {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || parts[0] != photoPrefix {
		return ""
	}
	return parts[1]
}
