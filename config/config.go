// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tally service.
type Config struct {
	Port            int
	DBPath          string
	LogLevel        string
	Environment     string
	AllowedOrigins  []string
	SessionSeedFrom string
	SessionCronSpec string
}

// Load reads configuration from environment variables and a .env file
// (if present). Existing env variables are never overridden by the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            8080,
		DBPath:          "tally.db",
		LogLevel:        "info",
		Environment:     "development",
		AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
		SessionSeedFrom: "2024-01-01",
		SessionCronSpec: "0 6 * * *",
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("TALLY_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = strings.ToLower(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("SESSION_SEED_FROM"); v != "" {
		cfg.SessionSeedFrom = v
	}
	if v := os.Getenv("SESSION_CRON_SPEC"); v != "" {
		cfg.SessionCronSpec = v
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
