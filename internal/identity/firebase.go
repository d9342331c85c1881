package identity

import (
	"context"

	"groupfeed/internal/models"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is the subset of *auth.Client the provider needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserLookup maps a Firebase UID to a local account.
type UserLookup interface {
	GetByExternalUID(ctx context.Context, uid string) (*models.User, error)
}

// FirebaseProvider verifies Firebase ID tokens and resolves the local account.
type FirebaseProvider struct {
	verifier TokenVerifier
	users    UserLookup
}

func NewFirebaseProvider(verifier TokenVerifier, users UserLookup) *FirebaseProvider {
	return &FirebaseProvider{verifier: verifier, users: users}
}

func (p *FirebaseProvider) Verify(ctx context.Context, raw string) (*Viewer, error) {
	token, err := p.verifier.VerifyIDToken(ctx, raw)
	if err != nil {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid token", Err: err}
	}
	user, err := p.users.GetByExternalUID(ctx, token.UID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Must have a user profile")
		}
		return nil, err
	}
	return &Viewer{ID: user.ID, Username: user.Username}, nil
}
