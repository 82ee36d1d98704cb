package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ObjectStore defines common object operations across backends.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Store wraps an ObjectStore backend with a stable API and key layout
// for tour and user imagery.
type Store struct {
	backend ObjectStore
}

func NewStore(backend ObjectStore) *Store {
	return &Store{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Store) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object to the configured bucket.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens a reader for an object in the configured bucket.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes an object from the configured bucket.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string {
	return s.backend.Bucket()
}

// TourCoverKey builds an object key for a tour cover image. The random
// component makes re-uploads cache-safe.
func TourCoverKey(tourID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("tours/%s/cover-%s%s", tourID, uuid.NewString(), ext)
}

// AvatarKey builds an object key for a user avatar.
func AvatarKey(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("users/%s/avatar-%s%s", userID, uuid.NewString(), ext)
}
