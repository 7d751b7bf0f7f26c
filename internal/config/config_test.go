package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/athena.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 30, cfg.Google.PastDays)
	assert.Equal(t, 60, cfg.Google.FutureDays)
	assert.Equal(t, "http://127.0.0.1:3001", cfg.EventKit.URL)
	assert.Equal(t, 0, cfg.EventKit.PastDays)
	assert.Equal(t, 40, cfg.EventKit.FutureDays)
	assert.Equal(t, 30*time.Second, cfg.EventKit.Timeout)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "http://localhost:8080/auth/google/callback", cfg.Google.RedirectURL)
	assert.False(t, cfg.Google.Enabled())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ATHENA_PORT":                 "9090",
		"ATHENA_LOG_FORMAT":           "json",
		"ATHENA_GOOGLE_CLIENT_ID":     "id",
		"ATHENA_GOOGLE_CLIENT_SECRET": "secret",
		"ATHENA_GOOGLE_REDIRECT_URL":  "https://athena.example.com/auth/google/callback",
		"ATHENA_SYNC_INTERVAL":        "0s",
		"ATHENA_SECURE_COOKIES":       "true",
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Google.Enabled())
	assert.Equal(t, "https://athena.example.com/auth/google/callback", cfg.Google.RedirectURL)
	assert.Zero(t, cfg.SyncInterval)
	assert.True(t, cfg.SecureCookies)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad port":      {"ATHENA_PORT": "70000"},
		"not a number":  {"ATHENA_PORT": "eighty"},
		"short secret":  {"ATHENA_JWT_SECRET": "short"},
		"bad format":    {"ATHENA_LOG_FORMAT": "xml"},
		"negative days": {"ATHENA_GOOGLE_PAST_DAYS": "-1"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}
