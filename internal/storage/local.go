package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalStore keeps objects under a directory and signs URLs with an HMAC token.
type LocalStore struct {
	root    string
	baseURL *url.URL
	secret  []byte
	now     func() time.Time
}

type mediaClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// NewLocalStore creates a store rooted at root whose objects are served under baseURL.
func NewLocalStore(root, baseURL string, secret []byte) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}
	return &LocalStore{root: abs, baseURL: u, secret: secret, now: time.Now}, nil
}

func (s *LocalStore) pathFromKey(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" || strings.HasPrefix(clean, "/tmp/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put streams r into a temp file and renames it into place.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.pathFromKey(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Open returns a reader for the object.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

// Delete removes every key. Missing files are ignored.
func (s *LocalStore) Delete(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := s.pathFromKey(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *LocalStore) objectURL(key string) *url.URL {
	u := *s.baseURL
	u.Path = path.Join(u.Path, key)
	return &u
}

// PublicURL returns the durable URL for key.
func (s *LocalStore) PublicURL(key string) string {
	return s.objectURL(key).String()
}

// SignedURL returns a URL carrying a token that stops validating after ttl.
func (s *LocalStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := mediaClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	u := s.objectURL(key)
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// VerifyToken checks that token was issued for key and has not expired.
func (s *LocalStore) VerifyToken(key, token string) error {
	var claims mediaClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if claims.Key != key {
		return fmt.Errorf("token was issued for a different object")
	}
	return nil
}

// KeyFromURL strips the public base from URLs produced by this store.
func (s *LocalStore) KeyFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != s.baseURL.Host || u.Scheme != s.baseURL.Scheme {
		return "", false
	}
	prefix := strings.TrimRight(s.baseURL.Path, "/") + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, prefix)
	return key, key != ""
}
