// Package config loads composer settings from defaults, an optional config.yaml and
// COMPOSER_ environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/validation"
)

// Backends
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

// DefaultUserID owns the library in local mode
const DefaultUserID = "local"

// Config is the resolved composer configuration
type Config struct {
	Backend string `mapstructure:"backend" json:"backend" validate:"oneof=sqlite supabase memory"`
	UserID  string `mapstructure:"user_id" json:"user_id"`
	// Token is the session token the CLI and TUI authenticate with on the supabase backend
	Token    string         `mapstructure:"token" json:"-"`
	Debounce time.Duration  `mapstructure:"debounce" json:"debounce" validate:"gte=0"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" json:"sqlite"`
	Supabase SupabaseConfig `mapstructure:"supabase" json:"supabase"`
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
	Seed     SeedConfig     `mapstructure:"seed" json:"seed"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

type SupabaseConfig struct {
	URL string `mapstructure:"url" json:"url"`
	Key string `mapstructure:"key" json:"key"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port" validate:"gte=1,lte=65535"`
}

// Addr is the listen address of the API server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format" validate:"oneof=json text"`
}

// SeedConfig points at a catalog file replacing the embedded defaults
type SeedConfig struct {
	Catalog string `mapstructure:"catalog" json:"catalog"`
}

// Dir is the per-user composer directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".composer"
	}
	return filepath.Join(home, ".composer")
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Backend:  BackendSQLite,
		UserID:   DefaultUserID,
		Debounce: 300 * time.Millisecond,
		SQLite:   SQLiteConfig{Path: filepath.Join(Dir(), "composer.db")},
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8787},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration. An empty cfgFile searches ./config.yaml and
// $HOME/.composer/config.yaml; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("user_id", defaults.UserID)
	v.SetDefault("token", "")
	v.SetDefault("debounce", defaults.Debounce)
	v.SetDefault("sqlite.path", defaults.SQLite.Path)
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("seed.catalog", "")

	// COMPOSER_SQLITE_PATH overrides sqlite.path
	v.SetEnvPrefix("COMPOSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.composer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and backend requirements
func (c *Config) Validate() error {
	if err := validation.Check(c); err != nil {
		return err
	}
	switch c.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return apperrors.NewAppError(apperrors.ErrCodeMissingField, "supabase backend needs supabase.url and supabase.key")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return apperrors.NewAppError(apperrors.ErrCodeMissingField, "sqlite backend needs sqlite.path")
		}
	}
	return nil
}

// Local reports whether the backend has no identity provider
func (c *Config) Local() bool {
	return c.Backend != BackendSupabase
}
