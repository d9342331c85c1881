// Package storage implements the media store adapter: object writes, best-effort deletes,
// and resolution of stored paths into public or time-limited signed URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Open when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the narrow contract the adapter needs from a bucket backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Delete removes every key; missing keys are not an error.
	Delete(ctx context.Context, keys []string) error
	PublicURL(key string) string
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// KeyFromURL recovers a key from a URL this backend produced.
	KeyFromURL(rawURL string) (string, bool)
}
