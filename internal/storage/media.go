package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"github.com/google/uuid"
)

// OwnerKind is the logical owner of an object; each kind has its own namespace.
type OwnerKind string

const (
	OwnerAvatar    OwnerKind = "avatar"
	OwnerCover     OwnerKind = "cover"
	OwnerPostMedia OwnerKind = "post-media"
)

// ParseOwnerKind validates a kind received from a caller.
func ParseOwnerKind(raw string) (OwnerKind, error) {
	switch k := OwnerKind(strings.TrimSpace(raw)); k {
	case OwnerAvatar, OwnerCover, OwnerPostMedia:
		return k, nil
	default:
		return "", models.NewValidationError("Unknown media owner kind")
	}
}

// ResolveMode selects how a stored path becomes a viewer-usable URL.
type ResolveMode string

const (
	// ResolvePublic yields a durable URL for world-readable content.
	ResolvePublic ResolveMode = "public"
	// ResolveSigned yields a URL that stops working after the signed TTL.
	ResolveSigned ResolveMode = "signed"
)

// DefaultSignedURLTTL is the lifetime of signed URLs unless configured otherwise.
const DefaultSignedURLTTL = 3600 * time.Second

// File is a binary blob handed to Store.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// MediaStore is the media store adapter used by posts, edit sessions and groups.
type MediaStore struct {
	store    ObjectStore
	maxBytes int64
	ttl      time.Duration
	newID    func() string
}

// NewMediaStore wraps store. maxBytes <= 0 disables the size limit; ttl <= 0 uses DefaultSignedURLTTL.
func NewMediaStore(store ObjectStore, maxBytes int64, ttl time.Duration) *MediaStore {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	return &MediaStore{
		store:    store,
		maxBytes: maxBytes,
		ttl:      ttl,
		newID:    func() string { return uuid.NewString() },
	}
}

// SignedURLTTL reports the lifetime used for signed URLs.
func (m *MediaStore) SignedURLTTL() time.Duration {
	return m.ttl
}

// Store writes f under the kind's namespace and returns the stored path.
// On failure nothing may be assumed about the object.
func (m *MediaStore) Store(ctx context.Context, f File, kind OwnerKind) (string, error) {
	if _, err := ParseOwnerKind(string(kind)); err != nil {
		return "", err
	}
	if len(f.Data) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if m.maxBytes > 0 && int64(len(f.Data)) > m.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", m.maxBytes/(1024*1024)))
	}

	key := path.Join(string(kind), m.newID()+strings.ToLower(path.Ext(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(f.Name))
	}
	if contentType == "" {
		contentType = http.DetectContentType(f.Data)
	}

	err := m.store.Put(ctx, key, bytes.NewReader(f.Data), contentType)
	observability.RecordStorage("put", err)
	if err != nil {
		return "", models.NewStorageWriteError(err)
	}
	return key, nil
}

// Remove deletes paths on a best-effort basis. Failures are logged and swallowed so that
// the dependent database mutation is never blocked.
func (m *MediaStore) Remove(ctx context.Context, paths []string) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		if key, ok := m.PathFromURL(p); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	err := m.store.Delete(ctx, keys)
	observability.RecordStorage("delete", err)
	if err != nil {
		observability.LogBestEffortFailure(ctx, "media_remove", err, map[string]interface{}{
			"paths": keys,
		})
		return
	}
	observability.GlobalLogger.DebugContext(ctx, "media removed", slog.Int("count", len(keys)))
}

// Resolve converts a stored path into a URL according to mode. Absolute URLs that this
// backend did not produce are returned unchanged.
func (m *MediaStore) Resolve(ctx context.Context, p string, mode ResolveMode) (string, error) {
	key, ok := m.PathFromURL(p)
	if !ok {
		if isAbsoluteURL(p) {
			return p, nil
		}
		return "", models.NewValidationError("Empty media path")
	}

	switch mode {
	case ResolvePublic:
		return m.store.PublicURL(key), nil
	case ResolveSigned:
		signed, err := m.store.SignedURL(ctx, key, m.ttl)
		observability.RecordStorage("sign", err)
		if err != nil {
			return "", models.NewStorageReadError(err)
		}
		return signed, nil
	default:
		return "", models.NewValidationError("Unknown resolve mode")
	}
}

// PathFromURL returns the storable key for either representation: a plain path is
// returned cleaned, a URL produced by the backend has its base stripped. Foreign URLs
// and empty input report false.
func (m *MediaStore) PathFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !isAbsoluteURL(raw) {
		return strings.TrimPrefix(path.Clean("/"+raw), "/"), true
	}
	return m.store.KeyFromURL(raw)
}

// URLFromPath is the inverse of PathFromURL for the public representation.
func (m *MediaStore) URLFromPath(p string) string {
	if isAbsoluteURL(p) {
		return p
	}
	return m.store.PublicURL(p)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// RequiresSignature reports whether key lives in a namespace that is only served
// through signed URLs.
func RequiresSignature(key string) bool {
	return strings.HasPrefix(key, string(OwnerCover)+"/")
}
