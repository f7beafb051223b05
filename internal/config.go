package internal

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// CRM backend API
	APIBaseURL string
	APITimeout time.Duration

	// Session persistence
	SessionDBPath string
	SessionTTL    time.Duration

	// Template and static asset locations
	TemplatesDir string
	StaticDir    string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		APITimeout: getEnvDuration("CRM_API_TIMEOUT", 15*time.Second),

		SessionDBPath: getEnv("SESSION_DB_PATH", "./sessions.db"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 7*24*time.Hour),

		TemplatesDir: getEnv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:    getEnv("STATIC_DIR", "./web/static"),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.APIBaseURL = strings.TrimRight(os.Getenv("CRM_API_URL"), "/")
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("CRM_API_URL is required")
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("CRM_API_URL must be an absolute URL, got: %s", cfg.APIBaseURL)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
