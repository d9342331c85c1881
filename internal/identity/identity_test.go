package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupfeed/internal/models"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTProvider_RoundTrip(t *testing.T) {
	t.Parallel()
	p := NewJWTProvider("secret", time.Hour)

	token, exp, err := p.IssueToken(&models.User{ID: 42, Username: "ines"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	v, err := p.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Viewer{ID: 42, Username: "ines"}, v)
}

func TestJWTProvider_Rejects(t *testing.T) {
	t.Parallel()
	issuer := NewJWTProvider("secret", time.Minute)
	token, _, err := issuer.IssueToken(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	wrongKey := NewJWTProvider("other", time.Minute)
	_, err = wrongKey.Verify(context.Background(), token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	expired := NewJWTProvider("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Verify(context.Background(), token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = issuer.Verify(context.Background(), "not-a-token")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestViewerContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Nil(t, CurrentViewer(ctx))
	assert.Zero(t, ViewerID(ctx))

	ctx = WithViewer(ctx, &Viewer{ID: 7})
	assert.Equal(t, uint(7), ViewerID(ctx))
}

type verifierStub struct {
	verifyFn func(context.Context, string) (*auth.Token, error)
}

func (s verifierStub) VerifyIDToken(ctx context.Context, token string) (*auth.Token, error) {
	return s.verifyFn(ctx, token)
}

type lookupStub struct {
	users map[string]*models.User
}

func (s lookupStub) GetByExternalUID(_ context.Context, uid string) (*models.User, error) {
	if u, ok := s.users[uid]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", uid)
}

func TestFirebaseProvider(t *testing.T) {
	t.Parallel()
	verifier := verifierStub{verifyFn: func(_ context.Context, token string) (*auth.Token, error) {
		if token == "bad" {
			return nil, errors.New("signature invalid")
		}
		return &auth.Token{UID: token}, nil
	}}
	p := NewFirebaseProvider(verifier, lookupStub{users: map[string]*models.User{
		"uid-1": {ID: 3, Username: "rowan"},
	}})

	v, err := p.Verify(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, uint(3), v.ID)

	_, err = p.Verify(context.Background(), "bad")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = p.Verify(context.Background(), "uid-unknown")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}
