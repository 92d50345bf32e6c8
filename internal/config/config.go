package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultResetTTL   = time.Hour
)

// Config holds immutable process configuration. It is built once in main and
// passed explicitly into constructors; core packages never read the
// environment themselves.
type Config struct {
	Env  string
	Port string

	DatabaseDSN string

	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	Issuer        string

	// DefaultRole is assigned to every newly registered user. It must name
	// an existing role; registration fails otherwise.
	DefaultRole string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string
	ClientURL string

	RateLimitPerSecond int
	RateLimitBurst     int
}

// Load reads configuration from environment variables. The two signing
// secrets and the database DSN are required; everything else has a default.
func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("AUTHCORE_ENV", "development"),
		Port:               getEnv("AUTHCORE_PORT", "8080"),
		DatabaseDSN:        os.Getenv("AUTHCORE_PG_DSN"),
		AccessSecret:       os.Getenv("AUTHCORE_JWT_SECRET"),
		RefreshSecret:      os.Getenv("AUTHCORE_JWT_REFRESH_SECRET"),
		Issuer:             getEnv("AUTHCORE_ISSUER", "authcore"),
		DefaultRole:        getEnv("AUTHCORE_DEFAULT_ROLE", "STAFF"),
		SMTPHost:           os.Getenv("AUTHCORE_SMTP_HOST"),
		SMTPUser:           os.Getenv("AUTHCORE_SMTP_USER"),
		SMTPPass:           os.Getenv("AUTHCORE_SMTP_PASS"),
		EmailFrom:          getEnv("AUTHCORE_EMAIL_FROM", "no-reply@authcore.io"),
		ClientURL:          getEnv("AUTHCORE_CLIENT_URL", "http://localhost:3000"),
		AccessTTL:          defaultAccessTTL,
		RefreshTTL:         defaultRefreshTTL,
		ResetTTL:           defaultResetTTL,
		SMTPPort:           587,
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
	}

	var err error
	if cfg.AccessTTL, err = getDuration("AUTHCORE_JWT_TTL", cfg.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = getDuration("AUTHCORE_JWT_REFRESH_TTL", cfg.RefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.ResetTTL, err = getDuration("AUTHCORE_RESET_TTL", cfg.ResetTTL); err != nil {
		return Config{}, err
	}
	if cfg.SMTPPort, err = getInt("AUTHCORE_SMTP_PORT", cfg.SMTPPort); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSecond, err = getInt("AUTHCORE_RATE_LIMIT_RPS", cfg.RateLimitPerSecond); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("AUTHCORE_RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return Config{}, err
	}

	for name, value := range map[string]string{
		"AUTHCORE_PG_DSN":             cfg.DatabaseDSN,
		"AUTHCORE_JWT_SECRET":         cfg.AccessSecret,
		"AUTHCORE_JWT_REFRESH_SECRET": cfg.RefreshSecret,
	} {
		if strings.TrimSpace(value) == "" {
			return Config{}, fmt.Errorf("missing required environment variable %s", name)
		}
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production hardening
// (no error detail leakage).
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, raw)
	}
	return n, nil
}
