// Package config loads campussync settings from defaults, an optional config
// file, a .env file and CAMPUSSYNC_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CAMPUSSYNC_REMOTE_URI.
const EnvPrefix = "CAMPUSSYNC"

// Remote drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config is the effective configuration.
type Config struct {
	Local     LocalConfig     `mapstructure:"local" yaml:"local"`
	Remote    RemoteConfig    `mapstructure:"remote" yaml:"remote"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Seed      SeedConfig      `mapstructure:"seed" yaml:"seed"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// LocalConfig locates the SQLite database.
type LocalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// RemoteConfig selects the remote store. URI and Database are only used by
// the mongo driver.
type RemoteConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	URI      string `mapstructure:"uri" yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// SyncConfig tunes the sync engine, the daemon schedule and the
// connectivity probe.
type SyncConfig struct {
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
	Schedule      string        `mapstructure:"schedule" yaml:"schedule"`
	Debounce      time.Duration `mapstructure:"debounce" yaml:"debounce"`
	ProbeInterval time.Duration `mapstructure:"probe_interval" yaml:"probe_interval"`
}

// SeedConfig picks the first-run seed data.
type SeedConfig struct {
	// File is a TOML seed file; empty uses the built-in baseline.
	File string `mapstructure:"file" yaml:"file"`
}

// DashboardConfig configures the status dashboard.
type DashboardConfig struct {
	// Port for the status dashboard; 0 disables it.
	Port int `mapstructure:"port" yaml:"port"`
}

// LogConfig controls the daemon's rotating log file. An empty File logs to
// stderr only.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("local.path", filepath.Join(".campussync", "campussync.db"))
	v.SetDefault("remote.driver", DriverMongo)
	v.SetDefault("remote.uri", "mongodb://localhost:27017")
	v.SetDefault("remote.database", "campussync")
	v.SetDefault("sync.batch_size", 450)
	v.SetDefault("sync.schedule", "@every 5m")
	v.SetDefault("sync.debounce", 500*time.Millisecond)
	v.SetDefault("sync.probe_interval", 10*time.Second)
	v.SetDefault("seed.file", "")
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads the configuration.
//
// If path is set the file must exist. Otherwise campussync.{yaml,toml} is
// looked up in the working directory and $HOME/.campussync, and a missing
// file is not an error. A .env file in the working directory is loaded into
// the environment first; variables already set win over it.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("campussync")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".campussync"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Remote.Driver {
	case DriverMongo:
		if c.Remote.URI == "" {
			return fmt.Errorf("remote.uri is required for the %s driver", DriverMongo)
		}
		if c.Remote.Database == "" {
			return fmt.Errorf("remote.database is required for the %s driver", DriverMongo)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown remote.driver %q (want %s or %s)", c.Remote.Driver, DriverMongo, DriverMemory)
	}

	if c.Local.Path == "" {
		return fmt.Errorf("local.path is required")
	}
	if c.Sync.BatchSize < 1 || c.Sync.BatchSize > 500 {
		return fmt.Errorf("sync.batch_size must be between 1 and 500 (got %d)", c.Sync.BatchSize)
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	return nil
}

// YAML renders the configuration for display.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return string(out), nil
}
