package config

import (
	"log/slog"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// NormalizeLogLevel case-folds raw input, returning the default on unknown values.
func NormalizeLogLevel(raw string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn:
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// SlogLevel maps the configured level onto slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// NormalizeLogFormat case-folds raw input, returning the default on unknown values.
func NormalizeLogFormat(raw string) LogFormat {
	if LogFormat(strings.ToLower(strings.TrimSpace(raw))) == LogFormatJSON {
		return LogFormatJSON
	}
	return LogFormatText
}
