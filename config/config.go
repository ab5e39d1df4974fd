package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the library's tunable settings. Everything has a sensible
// default; a config file and CACHELOCK_* environment variables override it.
type Config struct {
	// DataDir is the root directory for caches guarded by the lock manager.
	DataDir string `mapstructure:"data_dir"`

	// LockTimeoutMs bounds how long a lock acquisition waits, in
	// milliseconds.
	LockTimeoutMs int `mapstructure:"lock_timeout_ms"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log_level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:       filepath.Join(home, ".cachelock"),
		LockTimeoutMs: 60000,
		LogLevel:      "info",
	}
}

// LockTimeout returns the acquisition timeout as a duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// LoadConfig reads the YAML configuration at path. A missing file yields
// the defaults; environment variables prefixed CACHELOCK_ override both.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("lock_timeout_ms", cfg.LockTimeoutMs)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetEnvPrefix("CACHELOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		// No config file: defaults plus environment overrides.
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML at path, creating the parent directory if
// needed.
func SaveConfig(path string, cfg Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("data_dir", cfg.DataDir)
	v.Set("lock_timeout_ms", cfg.LockTimeoutMs)
	v.Set("log_level", cfg.LogLevel)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
