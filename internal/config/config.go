// Package config loads the process-wide configuration from PEKA_*
// environment variables. It is loaded once at startup and treated as
// immutable; components receive the values they need at construction.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAddr           = ":8080"
	defaultTokenTTL       = 30 * time.Minute
	defaultSessionMaxAge  = 14 * 24 * time.Hour
	defaultAssistTimeout  = 30 * time.Second
	defaultGoogleIssuer   = "https://accounts.google.com"
	defaultCalendarAPIURL = "https://www.googleapis.com/calendar/v3"
	defaultRateBurst      = 20
	defaultRatePerSec     = 10
)

// Config carries every environment-sourced setting of the service.
type Config struct {
	Addr  string
	PGDSN string

	// Token signing. Algorithm is pinned server-side: only HS256 is
	// accepted, and it is validated here rather than read from tokens.
	AuthSecret   string
	AuthAlg      string
	TokenTTL     time.Duration
	TokenIssuer  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleIssuer       string
	GoogleRedirectURL  string

	SessionSecret string
	SessionMaxAge time.Duration

	CORSOrigins []string

	AssistantURL     string
	AssistantAPIKey  string
	AssistantTimeout time.Duration

	CalendarBaseURL string

	RateBurst  int
	RatePerSec int
}

// Load reads configuration from the environment, applying defaults and
// validating the fields the auth subsystem cannot run without.
func Load() (Config, error) {
	cfg := Config{
		Addr:               envOr("PEKA_ADDR", defaultAddr),
		PGDSN:              os.Getenv("PEKA_PG_DSN"),
		AuthSecret:         strings.TrimSpace(os.Getenv("PEKA_AUTH_SECRET")),
		AuthAlg:            envOr("PEKA_AUTH_ALGORITHM", "HS256"),
		TokenIssuer:        envOr("PEKA_TOKEN_ISSUER", "peka"),
		GoogleClientID:     os.Getenv("PEKA_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("PEKA_GOOGLE_CLIENT_SECRET"),
		GoogleIssuer:       envOr("PEKA_GOOGLE_ISSUER", defaultGoogleIssuer),
		GoogleRedirectURL:  os.Getenv("PEKA_GOOGLE_REDIRECT_URL"),
		SessionSecret:      strings.TrimSpace(os.Getenv("PEKA_SESSION_SECRET")),
		AssistantURL:       os.Getenv("PEKA_ASSISTANT_URL"),
		AssistantAPIKey:    os.Getenv("PEKA_ASSISTANT_API_KEY"),
		CalendarBaseURL:    envOr("PEKA_CALENDAR_BASE_URL", defaultCalendarAPIURL),
	}

	var err error
	if cfg.TokenTTL, err = envMinutes("PEKA_TOKEN_TTL_MINUTES", defaultTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionMaxAge, err = envSeconds("PEKA_SESSION_MAX_AGE_SECONDS", defaultSessionMaxAge); err != nil {
		return Config{}, err
	}
	if cfg.AssistantTimeout, err = envSeconds("PEKA_ASSISTANT_TIMEOUT_SECONDS", defaultAssistTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RateBurst, err = envInt("PEKA_RATE_BURST", defaultRateBurst); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSec, err = envInt("PEKA_RATE_PER_SEC", defaultRatePerSec); err != nil {
		return Config{}, err
	}
	cfg.CORSOrigins = splitList(os.Getenv("PEKA_CORS_ORIGINS"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AuthSecret == "" {
		return errors.New("config: PEKA_AUTH_SECRET is required")
	}
	if !strings.EqualFold(c.AuthAlg, "HS256") {
		return fmt.Errorf("config: unsupported signing algorithm %q (only HS256)", c.AuthAlg)
	}
	if c.SessionSecret == "" {
		return errors.New("config: PEKA_SESSION_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return v, nil
}

func envMinutes(key string, fallback time.Duration) (time.Duration, error) {
	v, err := envInt(key, int(fallback/time.Minute))
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Minute, nil
}

func envSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v, err := envInt(key, int(fallback/time.Second))
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
