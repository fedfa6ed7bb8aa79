package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "task_manager.db", cfg.DatabaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "09:00", cfg.DigestTime)
	assert.False(t, cfg.TelegramEnabled())
	assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://app@localhost/tasks")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL_HOURS", "12")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://tasks.example.com ,")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://app@localhost/tasks", cfg.DatabaseURL)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:3000", "https://tasks.example.com"}, cfg.CORSOrigins)
	assert.EqualValues(t, -100200, cfg.TelegramChatID)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLBelowEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\ndigest_time: \"18:15\"\njwt_secret: from-file\n"), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "18:15", cfg.DigestTime)
	assert.Equal(t, "from-env", cfg.JWTSecret)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv(FileEnv, "")

	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("TOKEN_TTL_HOURS", "0")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TOKEN_TTL_HOURS", "")
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}
