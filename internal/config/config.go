// Package config loads garagedesk settings from an optional TOML file and
// the environment. Environment variables win over the file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath names the variable holding the TOML file path.
const EnvConfigPath = "GARAGEDESK_CONFIG"

// Duration is a time.Duration that decodes from strings like "30m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full process configuration.
type Config struct {
	Port            string   `toml:"port"`
	DatabasePath    string   `toml:"database_path"`
	JWTSecret       string   `toml:"jwt_secret"`
	TokenTTL        Duration `toml:"token_ttl"`
	ProbeTimeout    Duration `toml:"probe_timeout"`
	SetupSessionTTL Duration `toml:"setup_session_ttl"`
	CookieSecure    bool     `toml:"cookie_secure"`
	Workers         int      `toml:"workers"`

	Log       Log       `toml:"log"`
	Telemetry Telemetry `toml:"telemetry"`

	// EphemeralSecret is set when no JWT secret was configured and a random
	// one was generated. Tokens then do not survive a restart.
	EphemeralSecret bool `toml:"-"`
}

// Log configures the process logger.
type Log struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// Telemetry configures the OpenTelemetry providers.
type Telemetry struct {
	ServiceName    string `toml:"service_name"`
	ServiceVersion string `toml:"service_version"`
	Environment    string `toml:"environment"`
	Exporter       string `toml:"exporter"` // stdout, otlp, none
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:            "8080",
		DatabasePath:    "garagedesk.db",
		TokenTTL:        Duration{12 * time.Hour},
		ProbeTimeout:    Duration{10 * time.Second},
		SetupSessionTTL: Duration{30 * time.Minute},
		Workers:         2,
		Log:             Log{Level: "info", Format: "text"},
		Telemetry: Telemetry{
			ServiceName:    "garagedesk",
			ServiceVersion: "0.1.0",
			Environment:    "development",
			Exporter:       "stdout",
		},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (or at
// $GARAGEDESK_CONFIG when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.JWTSecret = secret
		cfg.EphemeralSecret = true
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Port = envOrDefault("PORT", c.Port)
	c.DatabasePath = envOrDefault("DATABASE_PATH", c.DatabasePath)
	c.JWTSecret = envOrDefault("JWT_SECRET", c.JWTSecret)
	c.Log.Level = envOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("LOG_FORMAT", c.Log.Format)

	c.Telemetry.ServiceName = envOrDefault("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
	c.Telemetry.ServiceVersion = envOrDefault("OTEL_SERVICE_VERSION", c.Telemetry.ServiceVersion)
	c.Telemetry.Environment = envOrDefault("OTEL_ENVIRONMENT", c.Telemetry.Environment)
	c.Telemetry.Exporter = envOrDefault("OTEL_EXPORTER", c.Telemetry.Exporter)

	var errs []error
	for key, dst := range map[string]*Duration{
		"TOKEN_TTL":         &c.TokenTTL,
		"PROBE_TIMEOUT":     &c.ProbeTimeout,
		"SETUP_SESSION_TTL": &c.SetupSessionTTL,
	} {
		if v := os.Getenv(key); v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("COOKIE_SECURE: %w", err))
		}
		c.CookieSecure = b
	}

	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WORKERS: %w", err))
		}
		c.Workers = n
	}

	return errors.Join(errs...)
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is empty"))
	}
	if c.ProbeTimeout.Duration <= 0 {
		errs = append(errs, errors.New("probe_timeout must be positive"))
	}
	if c.TokenTTL.Duration <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.SetupSessionTTL.Duration <= 0 {
		errs = append(errs, errors.New("setup_session_ttl must be positive"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q: use text or json", c.Log.Format))
	}
	switch c.Telemetry.Exporter {
	case "stdout", "otlp", "none":
	default:
		errs = append(errs, fmt.Errorf("telemetry exporter %q: use stdout, otlp, or none", c.Telemetry.Exporter))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
