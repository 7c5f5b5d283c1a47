package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumehealth/carebot/internal/config"
	"github.com/lumehealth/carebot/internal/errors"
)

func TestBuildLogger(t *testing.T) {
	t.Run("defaults to info text", func(t *testing.T) {
		logger := buildLogger(nil, false)
		assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
		assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
		_, isJSON := logger.Handler().(*slog.JSONHandler)
		assert.False(t, isJSON)
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		cfg := &config.Config{Logging: config.LoggingConfig{Level: config.LogLevelError}}
		logger := buildLogger(cfg, true)
		assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("json format from config", func(t *testing.T) {
		cfg := &config.Config{Logging: config.LoggingConfig{Format: config.LogFormatJSON}}
		logger := buildLogger(cfg, false)
		_, isJSON := logger.Handler().(*slog.JSONHandler)
		assert.True(t, isJSON)
	})
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carebot.yaml")

	require.NoError(t, runInit(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "telegram:")
	assert.Contains(t, string(data), "nag_interval:")

	err = runInit(path, false)
	require.Error(t, err, "refuses to overwrite without force")
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))

	require.NoError(t, runInit(path, true))
}

func TestRunDaemonRejectsMissingConfig(t *testing.T) {
	err := runDaemon(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}
