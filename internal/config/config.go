// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret          = "your-secret-key-change-in-production"
	defaultMediaSigningSecret = "media-signing-key-change-in-production"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	RedisURL string `mapstructure:"REDIS_URL"`

	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	StorageRoot          string `mapstructure:"STORAGE_ROOT"`
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	StorageBucket        string `mapstructure:"STORAGE_BUCKET"`
	MediaSigningSecret   string `mapstructure:"MEDIA_SIGNING_SECRET"`
	SignedURLTTLSeconds  int    `mapstructure:"SIGNED_URL_TTL_SECONDS"`
	MediaMaxUploadMB     int    `mapstructure:"MEDIA_MAX_UPLOAD_MB"`
	GCSSignerEmail       string `mapstructure:"GCS_SIGNER_EMAIL"`
	GCSSignerKeyFile     string `mapstructure:"GCS_SIGNER_KEY_FILE"`

	AuthProvider            string `mapstructure:"AUTH_PROVIDER"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base config file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "groupfeed")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "groupfeed.db")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_ROOT", "/tmp/groupfeed/media")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8375/media")
	v.SetDefault("MEDIA_SIGNING_SECRET", defaultMediaSigningSecret)
	v.SetDefault("SIGNED_URL_TTL_SECONDS", 3600)
	v.SetDefault("MEDIA_MAX_UPLOAD_MB", 50)
	v.SetDefault("AUTH_PROVIDER", "jwt")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	// Keys without a meaningful default still need registering so Unmarshal sees env overrides.
	for _, key := range []string{"STORAGE_BUCKET", "GCS_SIGNER_EMAIL", "GCS_SIGNER_KEY_FILE", "FIREBASE_CREDENTIALS_FILE", "OTLP_ENDPOINT"} {
		v.SetDefault(key, "")
	}
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// SignedURLTTL returns the lifetime of signed media URLs.
func (c *Config) SignedURLTTL() time.Duration {
	if c.SignedURLTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.SignedURLTTLSeconds) * time.Second
}

// MaxUploadBytes returns the per-object upload limit.
func (c *Config) MaxUploadBytes() int64 {
	if c.MediaMaxUploadMB <= 0 {
		return 50 * 1024 * 1024
	}
	return int64(c.MediaMaxUploadMB) * 1024 * 1024
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}

	switch c.StorageDriver {
	case "local":
		if c.StorageRoot == "" {
			return errors.New("STORAGE_ROOT is required for the local storage driver")
		}
		if c.MediaSigningSecret == "" {
			return errors.New("MEDIA_SIGNING_SECRET is required for the local storage driver")
		}
		// Session tokens and media tokens must not share a key.
		if c.MediaSigningSecret == c.JWTSecret {
			return errors.New("MEDIA_SIGNING_SECRET must differ from JWT_SECRET")
		}
	case "gcs":
		if c.StorageBucket == "" {
			return errors.New("STORAGE_BUCKET is required for the gcs storage driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be local or gcs, got %q", c.StorageDriver)
	}

	switch c.AuthProvider {
	case "jwt", "firebase":
	default:
		return fmt.Errorf("AUTH_PROVIDER must be jwt or firebase, got %q", c.AuthProvider)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.StorageDriver == "local" && (c.MediaSigningSecret == defaultMediaSigningSecret || len(c.MediaSigningSecret) < 32) {
			return errors.New("MEDIA_SIGNING_SECRET must be a non-default value of at least 32 characters in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
