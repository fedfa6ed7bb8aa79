package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileEnv names an optional YAML file merged below the environment.
const FileEnv = "TASKMANAGER_CONFIG"

// Config keeps runtime settings for the API server and its CLI.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	TokenTTL    time.Duration

	Port        string
	CORSOrigins []string

	TelegramToken  string
	TelegramChatID int64
	DigestTime     string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from .env, an optional YAML file and environment
// variables, in increasing priority, with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "task_manager.db")
	v.SetDefault("TOKEN_TTL_HOURS", 168)
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DIGEST_TIME", "09:00")
	v.SetDefault("ADMIN_NAME", "Admin User")
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		DatabaseDriver: strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTIssuer:      strings.TrimSpace(v.GetString("JWT_ISSUER")),
		JWTAudience:    strings.TrimSpace(v.GetString("JWT_AUDIENCE")),
		Port:           strings.TrimSpace(v.GetString("PORT")),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
		TelegramToken:  strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		TelegramChatID: v.GetInt64("TELEGRAM_CHAT_ID"),
		DigestTime:     strings.TrimSpace(v.GetString("DIGEST_TIME")),
		AdminName:      strings.TrimSpace(v.GetString("ADMIN_NAME")),
		AdminEmail:     strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
	}

	hours := v.GetInt("TOKEN_TTL_HOURS")
	if hours <= 0 {
		return cfg, fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %q", v.GetString("TOKEN_TTL_HOURS"))
	}
	cfg.TokenTTL = time.Duration(hours) * time.Hour

	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return cfg, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", cfg.DatabaseDriver)
	}

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return nil
}

// TelegramEnabled reports whether notifications should go to Telegram.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
