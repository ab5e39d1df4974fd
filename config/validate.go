package config

import "log/slog"

// validLogLevels maps accepted log level strings to their slog levels.
var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}
	if cfg.LockTimeoutMs < 0 {
		return ErrInvalidTimeout
	}
	if _, ok := validLogLevels[cfg.LogLevel]; !ok {
		return ErrInvalidLogLevel
	}
	return nil
}

// SlogLevel maps the configured log level to its slog equivalent. Unknown
// levels fall back to info.
func (c Config) SlogLevel() slog.Level {
	if lvl, ok := validLogLevels[c.LogLevel]; ok {
		return lvl
	}
	return slog.LevelInfo
}
