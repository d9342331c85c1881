// Package identity resolves bearer tokens into the current viewer.
package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	"groupfeed/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Viewer is the authenticated actor for a request.
type Viewer struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Provider verifies a bearer token.
type Provider interface {
	Verify(ctx context.Context, token string) (*Viewer, error)
}

type viewerKey struct{}

// WithViewer stores v in ctx.
func WithViewer(ctx context.Context, v *Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// CurrentViewer returns the viewer stored in ctx, or nil for anonymous requests.
func CurrentViewer(ctx context.Context) *Viewer {
	v, _ := ctx.Value(viewerKey{}).(*Viewer)
	return v
}

// ViewerID is CurrentViewer's id, 0 when anonymous.
func ViewerID(ctx context.Context) uint {
	if v := CurrentViewer(ctx); v != nil {
		return v.ID
	}
	return 0
}

const defaultTokenTTL = 24 * time.Hour

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTProvider issues and verifies HS256 tokens whose subject is the user id.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTProvider(secret string, ttl time.Duration) *JWTProvider {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTProvider{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueToken signs a token for user.
func (p *JWTProvider) IssueToken(user *models.User) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, models.NewInternalError(err)
	}
	return signed, exp, nil
}

func (p *JWTProvider) Verify(_ context.Context, raw string) (*Viewer, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid or expired token", Err: err}
	}

	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return nil, models.NewUnauthorizedError("Invalid token subject")
	}
	return &Viewer{ID: uint(id), Username: c.Username}, nil
}
