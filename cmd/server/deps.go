package main

import (
	"context"
	"fmt"
	"os"

	"groupfeed/internal/config"
	"groupfeed/internal/identity"
	"groupfeed/internal/repository"
	"groupfeed/internal/service"
	"groupfeed/internal/storage"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

var firebaseApp *firebase.App

// getFirebaseApp initializes the Firebase app once. Without an explicit credentials file
// the SDK uses GOOGLE_APPLICATION_CREDENTIALS.
func getFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if firebaseApp != nil {
		return firebaseApp, nil
	}
	var fbCfg *firebase.Config
	if cfg.StorageBucket != "" {
		fbCfg = &firebase.Config{StorageBucket: cfg.StorageBucket}
	}
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase: %w", err)
	}
	firebaseApp = app
	return app, nil
}

// buildMedia picks the object store named by STORAGE_DRIVER. The local store is also
// returned so the server can serve its objects.
func buildMedia(ctx context.Context, cfg *config.Config) (*storage.MediaStore, *storage.LocalStore, error) {
	switch cfg.StorageDriver {
	case "gcs":
		app, err := getFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		signer := storage.GCSSigner{GoogleAccessID: cfg.GCSSignerEmail}
		if cfg.GCSSignerKeyFile != "" {
			key, err := os.ReadFile(cfg.GCSSignerKeyFile)
			if err != nil {
				return nil, nil, fmt.Errorf("read signer key: %w", err)
			}
			signer.PrivateKey = key
		}
		gcsStore, err := storage.NewGCSStore(ctx, app, cfg.StorageBucket, signer)
		if err != nil {
			return nil, nil, fmt.Errorf("open bucket %s: %w", cfg.StorageBucket, err)
		}
		return storage.NewMediaStore(gcsStore, cfg.MaxUploadBytes(), cfg.SignedURLTTL()), nil, nil
	case "local", "":
		local, err := storage.NewLocalStore(cfg.StorageRoot, cfg.StoragePublicBaseURL, []byte(cfg.MediaSigningSecret))
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMediaStore(local, cfg.MaxUploadBytes(), cfg.SignedURLTTL()), local, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// buildIdentity picks the token verifier named by AUTH_PROVIDER. Firebase accounts sign
// in on the client, so password login is only served in jwt mode.
func buildIdentity(ctx context.Context, cfg *config.Config, db *gorm.DB) (identity.Provider, service.TokenIssuer, error) {
	switch cfg.AuthProvider {
	case "firebase":
		app, err := getFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing auth client: %w", err)
		}
		return identity.NewFirebaseProvider(authClient, repository.NewUserRepository(db)), nil, nil
	case "jwt", "":
		jwtProvider := identity.NewJWTProvider(cfg.JWTSecret, 0)
		return jwtProvider, jwtProvider, nil
	default:
		return nil, nil, fmt.Errorf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}
}
