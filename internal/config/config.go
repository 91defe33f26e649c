package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	HTTPAddr                  string
	DatabaseURL               string
	RedisURL                  string // optional, enables cross-instance fan-out
	JWTSecret                 string
	TelegramToken             string // optional, enables Telegram push
	LogLevel                  string
	Environment               string
	NotificationRetentionDays int
	NotificationPurgeCron     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{
		HTTPAddr:              getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:              strings.ToLower(getenv("LOG_LEVEL", "info")),
		Environment:           strings.ToLower(getenv("ENVIRONMENT", "development")),
		NotificationPurgeCron: getenv("NOTIFICATION_PURGE_CRON", "0 3 * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	days, err := strconv.Atoi(getenv("NOTIFICATION_RETENTION_DAYS", strconv.Itoa(DefaultRetentionDays)))
	if err != nil || days <= 0 {
		return nil, fmt.Errorf("invalid NOTIFICATION_RETENTION_DAYS: must be a positive integer")
	}
	cfg.NotificationRetentionDays = days

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
