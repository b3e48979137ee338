// Package config provides environment-based configuration for the dashboard backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for the dashboard backend.
type Config struct {
	// Server configuration
	APIHost string
	APIPort int

	// Directory holding the persisted JSON documents.
	DataDir string

	// Directory holding the static frontend assets.
	FrontendDir string

	// Path to the externally issued admin bearer token.
	AdminTokenFile string

	// External read-only CLI tools.
	AdminCLIBin  string
	TenantCLIBin string

	// Session lifetime upper bound. The effective lifetime may be shorter
	// when the admin token carries an earlier expiry.
	SessionTTL time.Duration

	// Graceful shutdown timeout.
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string
	LogJSON  bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	cfg := &Config{
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 5001),
		DataDir:         getEnv("DATA_DIR", "data"),
		FrontendDir:     getEnv("FRONTEND_DIR", "frontend"),
		AdminTokenFile:  getEnv("ADMIN_TOKEN_FILE", filepath.Join(home, ".cloud-admin", "admin-token-prod")),
		AdminCLIBin:     getEnv("ADMIN_CLI_BIN", "cloud-admin"),
		TenantCLIBin:    getEnv("TENANT_CLI_BIN", "cloudctl"),
		SessionTTL:      getDurationEnv("SESSION_TTL", 30*24*time.Hour),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogJSON:         getBoolEnv("LOG_JSON", true),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
