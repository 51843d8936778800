package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/garagedesk/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "garagedesk.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "garagedesk.db", cfg.DatabasePath)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout.Duration)
	assert.Equal(t, 30*time.Minute, cfg.SetupSessionTTL.Duration)
	assert.True(t, cfg.EphemeralSecret)
	assert.Len(t, cfg.JWTSecret, 64)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
port = "9090"
database_path = "/var/lib/garagedesk/data.db"
jwt_secret = "from-file"
probe_timeout = "3s"
setup_session_ttl = "1h"
cookie_secure = true

[log]
level = "debug"
format = "json"

[telemetry]
exporter = "none"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/var/lib/garagedesk/data.db", cfg.DatabasePath)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.False(t, cfg.EphemeralSecret)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout.Duration)
	assert.Equal(t, time.Hour, cfg.SetupSessionTTL.Duration)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)
	assert.Equal(t, "garagedesk", cfg.Telemetry.ServiceName, "unset keys keep their defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
port = "9090"
probe_timeout = "3s"
`)
	t.Setenv(config.EnvConfigPath, path)
	t.Setenv("PORT", "7070")
	t.Setenv("PROBE_TIMEOUT", "750ms")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("OTEL_EXPORTER", "otlp")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.ProbeTimeout.Duration)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "otlp", cfg.Telemetry.Exporter)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad duration env", env: map[string]string{"PROBE_TIMEOUT": "soon"}},
		{name: "bad bool env", env: map[string]string{"COOKIE_SECURE": "maybe"}},
		{name: "zero probe timeout", file: `probe_timeout = "0s"`},
		{name: "unknown exporter", env: map[string]string{"OTEL_EXPORTER": "zipkin"}},
		{name: "unknown log format", file: "[log]\nformat = \"xml\""},
		{name: "malformed toml", file: `port = `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvConfigPath, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.NewLogger(config.Log{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "probe", "super_admin")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "super_admin", entry["probe"])
}
