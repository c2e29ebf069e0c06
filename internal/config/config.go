// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package config loads roster configuration from an optional YAML file
// overlaid with command-line flags.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/roster/roster/internal/account"
	"github.com/roster/roster/internal/logging"
)

// CodeInvalid is the error code for rejected configuration.
const CodeInvalid = "CONFIG_INVALID"

// DatabaseURLEnv is consulted when database.url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete roster configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Notify   NotifyConfig   `koanf:"notify"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns"`
	ConnectAttempts uint64        `koanf:"connect_attempts"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// AuthConfig configures login and credential hashing.
type AuthConfig struct {
	MaxLoginAttempts int          `koanf:"max_login_attempts"`
	Argon2           Argon2Config `koanf:"argon2"`
}

// Argon2Config holds the argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Time    uint32 `koanf:"time"`
	Memory  uint32 `koanf:"memory"`
	Threads uint8  `koanf:"threads"`
}

// Params converts the configuration into hasher parameters.
func (c Argon2Config) Params() account.Argon2Params {
	return account.Argon2Params{Time: c.Time, Memory: c.Memory, Threads: c.Threads}
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// NotifyConfig configures verification notices.
type NotifyConfig struct {
	VerifyURL string `koanf:"verify_url"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			ConnectAttempts: 5,
			ConnectTimeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			MaxLoginAttempts: account.DefaultMaxLoginAttempts,
			Argon2: Argon2Config{
				Time:    account.DefaultArgon2Params.Time,
				Memory:  account.DefaultArgon2Params.Memory,
				Threads: account.DefaultArgon2Params.Threads,
			},
		},
		Log: LogConfig{
			Format: logging.FormatJSON,
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
		Notify: NotifyConfig{
			VerifyURL: "http://localhost:8080/verify",
		},
	}
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"database-url":       "database.url",
	"max-login-attempts": "auth.max_login_attempts",
	"log-format":         "log.format",
	"log-level":          "log.level",
	"metrics-addr":       "metrics.addr",
	"verify-url":         "notify.verify_url",
}

// RegisterFlags adds the configuration override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database-url", "", "PostgreSQL connection URL (default: $"+DatabaseURLEnv+")")
	fs.Int("max-login-attempts", d.Auth.MaxLoginAttempts, "failed logins before an account locks")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("verify-url", d.Notify.VerifyURL, "base URL of the email verification link")
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty) and any flags in fs that were set explicitly. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeInvalid).
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).
				With("operation", "load flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalid).
			With("operation", "decode config").
			Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Auth.MaxLoginAttempts < 1 {
		return invalid("auth.max_login_attempts", "must be at least 1")
	}
	if c.Auth.Argon2.Time == 0 || c.Auth.Argon2.Memory == 0 || c.Auth.Argon2.Threads == 0 {
		return invalid("auth.argon2", "time, memory and threads must be positive")
	}
	if c.Auth.Argon2.Time > account.MaxArgon2Time || c.Auth.Argon2.Memory > account.MaxArgon2Memory {
		return invalid("auth.argon2", "time must not exceed %d and memory must not exceed %d KiB",
			account.MaxArgon2Time, account.MaxArgon2Memory)
	}
	if c.Database.MaxConns < 0 {
		return invalid("database.max_conns", "must not be negative")
	}
	if c.Database.ConnectTimeout < 0 {
		return invalid("database.connect_timeout", "must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatText:
	default:
		return invalid("log.format", "must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code(CodeInvalid).With("field", "log.level").Wrap(err)
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return invalid("database.url", "database URL is required (set --database-url or %s)", DatabaseURLEnv)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code(CodeInvalid).With("field", field).Errorf(format, args...)
}
