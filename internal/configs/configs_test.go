package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "JWT_SECRET", "TOKEN_EXPIRES",
	"ADMINISTRATOR_ID", "TRUSTED_USER_ID", "MAX_GROUPS_COUNT", "SEAL_DURATION",
	"MAX_MESSAGE_LENGTH", "DEFAULT_GROUP_NAME", "DATABASE_URL", "REDIS_URL",
	"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3, cfg.MaxGroupsCount)
	assert.Equal(t, 10*time.Minute, cfg.SealDuration)
	assert.Equal(t, 2048, cfg.MaxMessageLength)
	assert.Equal(t, "lobby", cfg.DefaultGroupName)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.StorageEnabled())
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ADMINISTRATOR_ID", "admin-id")
	t.Setenv("SEAL_DURATION", "30m")
	t.Setenv("MAX_GROUPS_COUNT", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "admin-id", cfg.AdminUserID)
	assert.Equal(t, 30*time.Minute, cfg.SealDuration)
	assert.Equal(t, 5, cfg.MaxGroupsCount)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad port":            {"PORT": "abc"},
		"privileged port":     {"PORT": "80"},
		"bad duration":        {"SEAL_DURATION": "ten minutes"},
		"production secret":   {"ENVIRONMENT": "production", "DATABASE_URL": "postgres://x"},
		"production database": {"ENVIRONMENT": "production", "JWT_SECRET": "s"},
		"partial s3":          {"S3_BUCKET_NAME": "bucket"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
