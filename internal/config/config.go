package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// DefaultAuthSecret signs tokens when AUTH_HMAC_SECRET is unset. It is only
// accepted outside production.
const DefaultAuthSecret = "dev-secret-change-me"

var ErrDefaultAuthSecret = errors.New("AUTH_HMAC_SECRET must be set when LOG_MODE is prod")

type Config struct {
	HTTPAddr string

	DBPath        string
	DocumentsPath string

	LogMode string

	AuthHMACSecret string
	AuthIssuer     string

	// Text generation is disabled when TextGenBaseURL is empty.
	TextGenBaseURL string
	TextGenAPIKey  string
	TextGenModel   string
	TextGenTimeout time.Duration

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		DBPath:         envOr("DB_PATH", "cyberguard.db"),
		DocumentsPath:  envOr("DOCUMENTS_PATH", "./data"),
		LogMode:        envOr("LOG_MODE", "dev"),
		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", DefaultAuthSecret),
		AuthIssuer:     envOr("AUTH_ISSUER", "cyberguard"),
		TextGenBaseURL: os.Getenv("TEXTGEN_BASE_URL"),
		TextGenAPIKey:  os.Getenv("TEXTGEN_API_KEY"),
		TextGenModel:   envOr("TEXTGEN_MODEL", "gpt-4o-mini"),
		TextGenTimeout: envDuration("TEXTGEN_TIMEOUT", 8*time.Second),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:8501"),
	}
}

func (c Config) TextGenEnabled() bool {
	return strings.TrimSpace(c.TextGenBaseURL) != ""
}

func (c Config) Production() bool {
	switch strings.ToLower(strings.TrimSpace(c.LogMode)) {
	case "prod", "production":
		return true
	}
	return false
}

func (c Config) UsesDefaultSecret() bool {
	return c.AuthHMACSecret == DefaultAuthSecret
}

// Validate rejects settings that must not reach a production deployment.
func (c Config) Validate() error {
	if c.Production() && c.UsesDefaultSecret() {
		return ErrDefaultAuthSecret
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
