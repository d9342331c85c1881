package service

import (
	"context"
	"strings"
	"time"

	"groupfeed/internal/models"
	"groupfeed/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(user *models.User) (string, time.Time, error)
}

type AuthService struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func NewAuthService(userRepo repository.UserRepository, issuer TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, issuer: issuer}
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, exp, err := s.issuer.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}
