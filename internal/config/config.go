// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds process-level settings. Organization settings (windows,
// schedules) live in the settings file, not here.
type Config struct {
	DBPath       string `env:"DB"`
	SettingsPath string `env:"SETTINGS"`

	// Identity handed over by the authentication layer.
	User string `env:"USER"`
	Role string `env:"ROLE" envDefault:"employee"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`

	AggregationFastPath bool          `env:"AGGREGATION_FAST_PATH" envDefault:"true"`
	DashboardRefresh    time.Duration `env:"DASHBOARD_REFRESH" envDefault:"5s"`
}

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "MARKETSHIFT_"

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists. Variables already set in the
// environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" || cfg.SettingsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(home, ".marketshift", "marketshift.db")
		}
		if cfg.SettingsPath == "" {
			cfg.SettingsPath = filepath.Join(home, ".marketshift", "settings.yaml")
		}
	}
	if cfg.DashboardRefresh <= 0 {
		return Config{}, fmt.Errorf("parse env: %sDASHBOARD_REFRESH must be positive", EnvPrefix)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to warn.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TracingEnabled reports whether spans should be exported.
func (c Config) TracingEnabled() bool {
	return c.OTelEnabled && c.OTelEndpoint != ""
}
