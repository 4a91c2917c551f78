package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MARKETSHIFT_DB", "")
	t.Setenv("MARKETSHIFT_SETTINGS", "")
	t.Setenv("MARKETSHIFT_ROLE", "")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "marketshift.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, "settings.yaml", filepath.Base(cfg.SettingsPath))
	assert.Equal(t, 5*time.Second, cfg.DashboardRefresh)
	assert.True(t, cfg.AggregationFastPath)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.False(t, cfg.TracingEnabled())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("MARKETSHIFT_DB", "/tmp/x.db")
	t.Setenv("MARKETSHIFT_SETTINGS", "/tmp/s.yaml")
	t.Setenv("MARKETSHIFT_USER", "u-7")
	t.Setenv("MARKETSHIFT_ROLE", "manager")
	t.Setenv("MARKETSHIFT_LOG_LEVEL", "debug")
	t.Setenv("MARKETSHIFT_AGGREGATION_FAST_PATH", "false")
	t.Setenv("MARKETSHIFT_DASHBOARD_REFRESH", "750ms")
	t.Setenv("MARKETSHIFT_OTEL_ENDPOINT", "http://localhost:4318")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "/tmp/s.yaml", cfg.SettingsPath)
	assert.Equal(t, "u-7", cfg.User)
	assert.Equal(t, "manager", cfg.Role)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.False(t, cfg.AggregationFastPath)
	assert.Equal(t, 750*time.Millisecond, cfg.DashboardRefresh)
	assert.True(t, cfg.TracingEnabled())
}

func TestParse_InvalidValue(t *testing.T) {
	t.Setenv("MARKETSHIFT_DB", "/tmp/x.db")
	t.Setenv("MARKETSHIFT_SETTINGS", "/tmp/s.yaml")
	t.Setenv("MARKETSHIFT_DASHBOARD_REFRESH", "soon")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestParse_TracingDisabledExplicitly(t *testing.T) {
	t.Setenv("MARKETSHIFT_DB", "/tmp/x.db")
	t.Setenv("MARKETSHIFT_SETTINGS", "/tmp/s.yaml")
	t.Setenv("MARKETSHIFT_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("MARKETSHIFT_OTEL_ENABLED", "false")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.False(t, cfg.TracingEnabled())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MARKETSHIFT_USER=from-dotenv\nMARKETSHIFT_DB=/tmp/d.db\nMARKETSHIFT_SETTINGS=/tmp/d.yaml\n"), 0o644))
	t.Chdir(dir)
	// Registered so t.Setenv restores the variable that godotenv sets.
	t.Setenv("MARKETSHIFT_USER", "")
	require.NoError(t, os.Unsetenv("MARKETSHIFT_USER"))
	t.Setenv("MARKETSHIFT_DB", "/tmp/explicit.db")
	t.Setenv("MARKETSHIFT_SETTINGS", "/tmp/explicit.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.User)
	assert.Equal(t, "/tmp/explicit.db", cfg.DBPath, "environment wins over .env")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Config{LogLevel: "info", LogFormat: "json"}.NewLogger(&buf)
	logger.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
