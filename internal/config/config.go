package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level `validate:"-"`
	Port     string     `validate:"required,numeric"`

	// CWAAPIKey is the credential sent with both dataset requests.
	CWAAPIKey  string `validate:"required"`
	CWABaseURL string `validate:"required,url"`
	CWARPS     float64
	CWABurst   int `validate:"gte=0"`

	// HTTPTimeout bounds each outbound request (0 = none).
	HTTPTimeout time.Duration
	// FetchTimeout bounds a whole fetch cycle (0 = none).
	FetchTimeout time.Duration
	// RefreshInterval schedules background refreshes (0 = disabled).
	RefreshInterval time.Duration

	SQLitePath   string `validate:"required"`
	SunTablePath string
	DefaultCity  string `validate:"required"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.CWAAPIKey = os.Getenv("CWA_API_KEY")
	cfg.CWABaseURL = getenvDefault("CWA_BASE_URL", "https://opendata.cwa.gov.tw/api/v1/rest/datastore")
	cfg.CWARPS = getenvFloat("CWA_RPS", 2)
	cfg.CWABurst = getenvInt("CWA_BURST", 2)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", "0s"); err != nil {
		return nil, err
	}
	// Scheduler interval: default 10 minutes, matching the observation cadence.
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "10m"); err != nil {
		return nil, err
	}

	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/weather-card.db")
	cfg.SunTablePath = os.Getenv("SUN_TABLE_PATH")
	cfg.DefaultCity = getenvDefault("DEFAULT_CITY", "臺北市")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", key, d)
	}
	return d, nil
}
