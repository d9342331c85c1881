package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "http://localhost:8375/media", []byte("media-signing-secret"))
	require.NoError(t, err)
	return s
}

func TestLocalStore_PutOpenDelete(t *testing.T) {
	t.Parallel()
	s := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "post-media/a.png", bytes.NewReader([]byte("png")), "image/png"))

	rc, err := s.Open(ctx, "post-media/a.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png", string(data))

	require.NoError(t, s.Delete(ctx, []string{"post-media/a.png", "post-media/missing.png"}))
	_, err = s.Open(ctx, "post-media/a.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStore_RejectsTraversalAndTmp(t *testing.T) {
	t.Parallel()
	s := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "../../escape.txt", strings.NewReader("x"), ""))
	_, err := os.Stat(filepath.Join(s.root, "escape.txt"))
	assert.NoError(t, err, "traversal must be confined under the root")

	assert.Error(t, s.Put(ctx, "tmp/put-1", strings.NewReader("x"), ""))
}

func TestLocalStore_SignedURL(t *testing.T) {
	t.Parallel()
	s := newTestLocalStore(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	signed, err := s.SignedURL(context.Background(), "cover/c.jpg", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/media/cover/c.jpg", u.Path)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)

	assert.NoError(t, s.VerifyToken("cover/c.jpg", token))
	assert.Error(t, s.VerifyToken("cover/other.jpg", token))

	now = now.Add(time.Hour + time.Second)
	assert.Error(t, s.VerifyToken("cover/c.jpg", token), "token must expire after the ttl")
}

func TestLocalStore_KeyFromURL(t *testing.T) {
	t.Parallel()
	s := newTestLocalStore(t)

	key, ok := s.KeyFromURL("http://localhost:8375/media/post-media/a.png?token=abc")
	assert.True(t, ok)
	assert.Equal(t, "post-media/a.png", key)

	_, ok = s.KeyFromURL("https://cdn.example.com/media/post-media/a.png")
	assert.False(t, ok)

	_, ok = s.KeyFromURL("http://localhost:8375/other/a.png")
	assert.False(t, ok)
}
