/*
Package configs loads the server configuration from the environment.

A .env file in the working directory is read first when present; real environment
variables always win over it.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig contains every setting the server reads at startup.
type AppConfig struct {
	// General Server Settings
	Environment    string
	Port           int
	AllowedOrigins []string

	// Security Settings
	JWTSecret     string
	TokenExpires  time.Duration
	AdminUserID   string
	TrustedUserID string

	// Chat Settings
	MaxGroupsCount   int
	SealDuration     time.Duration
	MaxMessageLength int
	DefaultGroupName string

	// Backends. Empty values select the in-memory implementations.
	DatabaseDSN string
	RedisURL    string

	// S3 Storage Settings. Either all set or all empty.
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// StorageEnabled reports whether the S3 collaborator is configured.
func (c *AppConfig) StorageEnabled() bool {
	return c.S3BucketName != ""
}

// LoadConfig reads and validates the configuration.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = getEnv("ENVIRONMENT", "development")

	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the allowed range (1024-65535)", cfg.Port)
	}

	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// --- Security Settings ---
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment", cfg.Environment)
		}
		cfg.JWTSecret = "development_insecure_secret_change_me"
	}

	if cfg.TokenExpires, err = getDuration("TOKEN_EXPIRES", 30*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.AdminUserID = os.Getenv("ADMINISTRATOR_ID")
	cfg.TrustedUserID = os.Getenv("TRUSTED_USER_ID")

	// --- Chat Settings ---
	if cfg.MaxGroupsCount, err = getInt("MAX_GROUPS_COUNT", 3); err != nil {
		return nil, err
	}
	if cfg.SealDuration, err = getDuration("SEAL_DURATION", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxMessageLength, err = getInt("MAX_MESSAGE_LENGTH", 2048); err != nil {
		return nil, err
	}
	if cfg.MaxGroupsCount < 0 || cfg.MaxMessageLength <= 0 || cfg.SealDuration <= 0 {
		return nil, errors.New("MAX_GROUPS_COUNT, MAX_MESSAGE_LENGTH and SEAL_DURATION must be positive")
	}
	cfg.DefaultGroupName = getEnv("DEFAULT_GROUP_NAME", "lobby")

	// --- Backends ---
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if !cfg.IsDevelopment() && cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required in %s environment", cfg.Environment)
	}

	// --- S3 Storage Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	s3Set := 0
	for _, v := range []string{cfg.S3BucketName, cfg.S3Endpoint, cfg.S3AccessKeyID, cfg.S3SecretAccessKey} {
		if v != "" {
			s3Set++
		}
	}
	if s3Set != 0 && s3Set != 4 {
		return nil, errors.New("S3_BUCKET_NAME, S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}
