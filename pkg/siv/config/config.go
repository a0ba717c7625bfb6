package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/siv/pkg/siv/pathutil"
)

// HashConfig selects the digest algorithm.
type HashConfig struct {
	Default string `mapstructure:"default" yaml:"default" json:"default"`
}

// ReportConfig configures the stdout summary.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path          string `mapstructure:"path" yaml:"path" json:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days" json:"retention_days"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level" json:"level"`
	Path       string            `mapstructure:"path" yaml:"path" json:"path"`
	MaxSize    string            `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	MaxBackups int               `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	Components map[string]string `mapstructure:"components" yaml:"components" json:"components"`
}

// MaxSizeBytes parses MaxSize, e.g. "10MB" or "512KiB".
func (c LoggingConfig) MaxSizeBytes() (int64, error) {
	if c.MaxSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid logging.max_size %q: %w", c.MaxSize, err)
	}
	return int64(n), nil
}

// Config represents the application configuration.
type Config struct {
	Hash    HashConfig    `mapstructure:"hash" yaml:"hash" json:"hash"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report" json:"report"`
	History HistoryConfig `mapstructure:"history" yaml:"history" json:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// Load loads configuration from file and environment variables.
// The config file is $XDG_CONFIG_HOME/siv/config.yaml, falling back to
// $HOME/.config/siv/config.yaml. A missing file is not an error.
//
// Environment variables are prefixed with SIV_ (e.g., SIV_HASH_DEFAULT).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations; a given path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if err := configure(v); err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.History.Path, err = pathutil.ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = pathutil.ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configure registers search paths, environment binding and defaults on v.
func configure(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix("SIV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("hash.default", DefaultAlgorithm)
	v.SetDefault("report.format", DefaultFormat)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // empty means logging.DefaultLogPath
	v.SetDefault("logging.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", map[string]string{})

	return nil
}

// ConfigDir returns the configuration directory.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "siv"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "siv"), nil
}

// ConfigPath returns the path of the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/siv/.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "siv")
}

// StateDir returns $XDG_STATE_HOME/siv/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "siv")
}

// HistoryDir returns the default run history location.
func HistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	content := fmt.Sprintf(`# SIV System Integrity Verifier Configuration

# Digest used by "siv init" when -H is not given: md5, sha1, sha256, blake3
hash:
  default: %s

# Summary printed to stdout: text, pretty, json, yaml
report:
  format: %s

# Run history
history:
  enabled: true
  path: %s
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: %s
  # Log file path (empty means use default: $XDG_STATE_HOME/siv/siv.log)
  path: ""
  max_size: %s
  max_backups: %d
  # Per-component log levels
  components:
    scanner: info
    engine: info
`, DefaultAlgorithm, DefaultFormat, HistoryDir(), DefaultRetentionDays,
		DefaultLogLevel, DefaultLogMaxSize, DefaultLogMaxBackups)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}
