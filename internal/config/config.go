// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	SessionFile        string
	DeviceDBPath       string
	DefaultCountryCode string
	AutoReplyFile      string        // optional YAML overlay for the auto-reply table
	MediaFetchTimeout  time.Duration // 0 = no timeout
	LogLevel           slog.Level
	EngineLogLevel     string // whatsmeow log level: DEBUG, INFO, WARN, ERROR
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8000"),
		FrontendURL:        getEnv("FRONTEND_URL", ""),
		SessionFile:        getEnv("SESSION_FILE", "./whatsapp-session.json"),
		DeviceDBPath:       getEnv("DEVICE_DB_PATH", "./data/whatsmeow.db"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "62"),
		AutoReplyFile:      getEnv("AUTO_REPLY_FILE", ""),
		MediaFetchTimeout:  getEnvDuration("MEDIA_FETCH_TIMEOUT", 0),
		LogLevel:           getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		EngineLogLevel:     strings.ToUpper(getEnv("WHATSMEOW_LOG_LEVEL", "WARN")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.SessionFile == "" {
		return fmt.Errorf("SESSION_FILE cannot be empty")
	}
	if c.DeviceDBPath == "" {
		return fmt.Errorf("DEVICE_DB_PATH cannot be empty")
	}
	if c.DefaultCountryCode == "" {
		return fmt.Errorf("DEFAULT_COUNTRY_CODE cannot be empty")
	}
	if _, err := strconv.ParseUint(c.DefaultCountryCode, 10, 32); err != nil {
		return fmt.Errorf("DEFAULT_COUNTRY_CODE must be digits only: %q", c.DefaultCountryCode)
	}
	if c.MediaFetchTimeout < 0 {
		return fmt.Errorf("MEDIA_FETCH_TIMEOUT must be >= 0")
	}
	switch c.EngineLogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("WHATSMEOW_LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
