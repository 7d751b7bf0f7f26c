// Package config loads server settings from ATHENA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration.
type Config struct {
	Port      int    `env:"ATHENA_PORT"       envDefault:"8080"`
	DBPath    string `env:"ATHENA_DB_PATH"    envDefault:"data/athena.db"`
	JWTSecret string `env:"ATHENA_JWT_SECRET"`

	// SecureCookies marks session cookies Secure. Enable behind HTTPS.
	SecureCookies bool `env:"ATHENA_SECURE_COOKIES" envDefault:"false"`

	Log Log

	Google   Google
	EventKit EventKit

	// SyncInterval is the periodic sync cadence. Zero disables it.
	SyncInterval time.Duration `env:"ATHENA_SYNC_INTERVAL" envDefault:"15m"`
}

type Log struct {
	Level  string `env:"ATHENA_LOG_LEVEL"  envDefault:"info"`
	Format string `env:"ATHENA_LOG_FORMAT" envDefault:"text"`
	// File, when set, also writes logs to a rotated file.
	File string `env:"ATHENA_LOG_FILE"`
}

type Google struct {
	ClientID     string `env:"ATHENA_GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"ATHENA_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"ATHENA_GOOGLE_REDIRECT_URL"`
	PastDays     int    `env:"ATHENA_GOOGLE_PAST_DAYS"   envDefault:"30"`
	FutureDays   int    `env:"ATHENA_GOOGLE_FUTURE_DAYS" envDefault:"60"`
}

// Enabled reports whether Google Calendar credentials are configured.
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type EventKit struct {
	URL        string `env:"ATHENA_EVENTKIT_URL"         envDefault:"http://127.0.0.1:3001"`
	PastDays   int    `env:"ATHENA_EVENTKIT_PAST_DAYS"   envDefault:"0"`
	FutureDays int    `env:"ATHENA_EVENTKIT_FUTURE_DAYS" envDefault:"40"`

	Timeout time.Duration `env:"ATHENA_EVENTKIT_TIMEOUT" envDefault:"30s"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.Google.RedirectURL == "" {
		cfg.Google.RedirectURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("ATHENA_PORT %d out of range", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("ATHENA_DB_PATH must not be empty"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("ATHENA_JWT_SECRET must be at least 16 characters"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("ATHENA_LOG_FORMAT %q must be text or json", c.Log.Format))
	}
	if c.Google.PastDays < 0 || c.Google.FutureDays < 0 || c.EventKit.PastDays < 0 || c.EventKit.FutureDays < 0 {
		errs = append(errs, errors.New("sync window days must not be negative"))
	}
	if c.SyncInterval < 0 {
		errs = append(errs, errors.New("ATHENA_SYNC_INTERVAL must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
