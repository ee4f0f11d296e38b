package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIBaseURL     = "http://localhost:8080/api"
	defaultHTTPTimeout    = 30 * time.Second
	defaultAccessTokenTTL = 15 * time.Minute
)

// loads client configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - a .env file is optional
	}

	cfg := &Config{
		APIBaseURL:  strings.TrimRight(envOr("PYQ_API_URL", defaultAPIBaseURL), "/"),
		AuthPolicy:  envOr("PYQ_AUTH_POLICY", PolicyRedirect),
		HTTPTimeout: defaultHTTPTimeout,
		SessionDB:   os.Getenv("PYQ_SESSION_DB"),
		Environment: envOr("ENVIRONMENT", "development"),
	}

	if raw := os.Getenv("PYQ_HTTP_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("PYQ_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = timeout
	}

	if raw := os.Getenv("PYQ_RATE_LIMIT"); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("PYQ_RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = limit
	}

	if cfg.SessionDB == "" {
		cfg.SessionDB = defaultSessionDB()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checks values that env and flags can both set
func (c *Config) Validate() error {
	if c.AuthPolicy != PolicyRedirect && c.AuthPolicy != PolicyRefresh {
		return fmt.Errorf("auth policy must be %q or %q, got %q", PolicyRedirect, PolicyRefresh, c.AuthPolicy)
	}

	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api base url must be absolute, got %q", c.APIBaseURL)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}

	return nil
}

// loads dev backend configuration from environment variables
func LoadServerEnvironment() (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - a .env file is optional
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	sessionSecret := os.Getenv("SESSION_SECRET")

	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	ttl := defaultAccessTokenTTL
	if raw := os.Getenv("ACCESS_TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
		}
		ttl = parsed
	}

	var origins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return &ServerConfig{
		Port:              envOr("PORT", "8080"),
		JWTSecret:         jwtSecret,
		SessionSecret:     sessionSecret,
		AccessTokenTTL:    ttl,
		GoogleClientID:    os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleSecret:      os.Getenv("GOOGLE_CLIENT_SECRET"),
		CORSOrigins:       origins,
		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
		Environment:       envOr("ENVIRONMENT", "development"),
	}, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func defaultSessionDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "pyqpapers", "session.db")
}
