package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CWA_API_KEY", "CWB-TEST")
	for _, k := range []string{"APP_ENV", "LOG_LEVEL", "PORT", "CWA_BASE_URL", "CWA_RPS", "CWA_BURST",
		"HTTP_TIMEOUT", "FETCH_TIMEOUT", "REFRESH_INTERVAL", "SQLITE_PATH", "SUN_TABLE_PATH", "DEFAULT_CITY"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "CWB-TEST", cfg.CWAAPIKey)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.FetchTimeout)
	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "臺北市", cfg.DefaultCity)
	assert.Equal(t, 2.0, cfg.CWARPS)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CWA_API_KEY", "K")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "9090")
	t.Setenv("REFRESH_INTERVAL", "0s")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("CWA_BURST", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "9090", cfg.Port)
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5, cfg.CWABurst)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing key":  {"CWA_API_KEY": ""},
		"bad env":      {"CWA_API_KEY": "K", "APP_ENV": "staging"},
		"bad level":    {"CWA_API_KEY": "K", "LOG_LEVEL": "loud"},
		"bad duration": {"CWA_API_KEY": "K", "HTTP_TIMEOUT": "soon"},
		"negative":     {"CWA_API_KEY": "K", "FETCH_TIMEOUT": "-1s"},
		"bad port":     {"CWA_API_KEY": "K", "PORT": "http"},
		"bad base url": {"CWA_API_KEY": "K", "CWA_BASE_URL": "not a url"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
