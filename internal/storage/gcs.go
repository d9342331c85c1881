package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

const gcsPublicHost = "storage.googleapis.com"

// GCSStore stores objects in a Cloud Storage bucket reached through the Firebase app.
type GCSStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
	signer     GCSSigner
}

// GCSSigner carries the service account used for V4 signed URLs.
// When empty, the client library falls back to the ambient credentials.
type GCSSigner struct {
	GoogleAccessID string
	PrivateKey     []byte
}

// NewGCSStore opens bucketName via the Firebase storage client.
func NewGCSStore(ctx context.Context, app *firebase.App, bucketName string, signer GCSSigner) (*GCSStore, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	handle, err := client.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	return &GCSStore{bucket: handle, bucketName: bucketName, signer: signer}, nil
}

// Put uploads r to key.
func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Delete removes every key; objects that do not exist are ignored.
func (s *GCSStore) Delete(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		err := s.bucket.Object(key).Delete(ctx)
		if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// PublicURL returns the world-readable URL for key.
func (s *GCSStore) PublicURL(key string) string {
	u := url.URL{Scheme: "https", Host: gcsPublicHost, Path: "/" + s.bucketName + "/" + key}
	return u.String()
}

// SignedURL returns a V4 signed GET URL valid for ttl.
func (s *GCSStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	if s.signer.GoogleAccessID != "" {
		opts.GoogleAccessID = s.signer.GoogleAccessID
		opts.PrivateKey = s.signer.PrivateKey
	}
	return s.bucket.SignedURL(key, opts)
}

// KeyFromURL recovers the key from public or signed bucket URLs.
func (s *GCSStore) KeyFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != gcsPublicHost {
		return "", false
	}
	prefix := "/" + s.bucketName + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, prefix)
	return key, key != ""
}
