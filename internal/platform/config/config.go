package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	RateLimit RateLimit
	// CacheTTL is the default lifetime of cached GET responses.
	CacheTTL       time.Duration
	RequestTimeout time.Duration

	JWT JWT

	RedisURL         string
	DatabaseURL      string
	FeatureFlagsFile string

	// TrustedProxies lists the proxies, as CIDR prefixes or addresses, whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies []string
}

// RateLimit is the global limiter rule applied to every route.
type RateLimit struct {
	Window time.Duration
	Max    int
}

type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// IsDevelopment reports whether internal error details may be shown.
func (s Server) IsDevelopment() bool {
	return s.Environment == "development"
}

// LoadDotEnv reads .env files into the environment for local runs. Missing
// files are ignored; variables already set win.
func LoadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
//
// Defaults: ENGAGE_ADDR=:8080, APP_ENV=development, LOG_LEVEL=info,
// RATE_LIMIT_WINDOW=15m, RATE_LIMIT_MAX=1000, CACHE_TTL=5m,
// REQUEST_TIMEOUT=30s. REDIS_URL, DATABASE_URL and FEATURE_FLAGS_FILE are
// optional. TRUSTED_PROXIES is a comma separated list and is empty by default.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:             getenv("ENGAGE_ADDR", ":8080"),
		Environment:      getenv("APP_ENV", "development"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		FeatureFlagsFile: os.Getenv("FEATURE_FLAGS_FILE"),
		TrustedProxies:   listEnv("TRUSTED_PROXIES"),
		JWT: JWT{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     getenv("JWT_ISSUER", "engage"),
			Audience:   getenv("JWT_AUDIENCE", "engage-api"),
		},
	}

	var err error
	if cfg.RateLimit.Window, err = durationEnv("RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit.Max, err = intEnv("RATE_LIMIT_MAX", 1000); err != nil {
		return Server{}, err
	}
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", 5*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return Server{}, err
	}

	if cfg.JWT.SigningKey == "" {
		if !cfg.IsDevelopment() {
			return Server{}, fmt.Errorf("JWT_SIGNING_KEY is required outside development")
		}
		// Use a default for development - should be overridden in production
		cfg.JWT.SigningKey = "dev-secret-key-change-in-production"
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func listEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return n, nil
}
