package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:          "8375",
		Env:           "development",
		JWTSecret:          "a-development-secret-that-is-long-enough",
		MediaSigningSecret: "a-separate-media-signing-secret-value",
		DBDriver:           "sqlite",
		StorageDriver:      "local",
		StorageRoot:        "/tmp/media",
		AuthProvider:       "jwt",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Port = "" }, wantErr: "PORT"},
		{name: "unknown db driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: "DB_DRIVER"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.StorageDriver = "gcs" }, wantErr: "STORAGE_BUCKET"},
		{name: "missing media signing secret", mutate: func(c *Config) { c.MediaSigningSecret = "" }, wantErr: "MEDIA_SIGNING_SECRET"},
		{
			name:    "media secret reuses jwt secret",
			mutate:  func(c *Config) { c.MediaSigningSecret = c.JWTSecret },
			wantErr: "must differ from JWT_SECRET",
		},
		{
			name: "gcs ignores media secret",
			mutate: func(c *Config) {
				c.StorageDriver = "gcs"
				c.StorageBucket = "groupfeed-media"
				c.MediaSigningSecret = ""
			},
		},
		{
			name: "production default media secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = "a-production-secret-that-is-long-enough-123"
				c.MediaSigningSecret = defaultMediaSigningSecret
			},
			wantErr: "MEDIA_SIGNING_SECRET",
		},
		{name: "unknown auth provider", mutate: func(c *Config) { c.AuthProvider = "saml" }, wantErr: "AUTH_PROVIDER"},
		{
			name: "production default secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = defaultJWTSecret
			},
			wantErr: "JWT_SECRET",
		},
		{
			name: "production weak db password",
			mutate: func(c *Config) {
				c.Env = "production"
				c.DBDriver = "postgres"
				c.DBPassword = "password"
			},
			wantErr: "DB_PASSWORD",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSignedURLTTL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, time.Hour, cfg.SignedURLTTL())

	cfg.SignedURLTTLSeconds = 120
	assert.Equal(t, 2*time.Minute, cfg.SignedURLTTL())
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8375", cfg.Port)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 3600, cfg.SignedURLTTLSeconds)
	assert.Equal(t, "jwt", cfg.AuthProvider)
}
