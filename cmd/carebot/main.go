package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/lumehealth/carebot/internal/config"
	"github.com/lumehealth/carebot/internal/daemon"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"carebot.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write an example configuration file"`

	Daemon struct{} `cmd:"" help:"Run the reminder daemon"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("carebot"),
		kong.Description("Escalating food and medicine reminders over Telegram."),
		kong.Vars{"version": version.Version})

	logger := buildLogger(nil, CLI.Verbose)
	slog.SetDefault(logger)

	adapter := errors.NewCLIErrorAdapter(CLI.Verbose, logger)

	switch kctx.Command() {
	case "init":
		adapter.HandleError(runInit(CLI.Config, CLI.Init.Force))
	case "daemon":
		adapter.HandleError(runDaemon(CLI.Config, CLI.Verbose))
	}
}

// buildLogger derives the slog logger from configuration; --verbose forces
// debug whatever the file says. A nil config gives the pre-load default.
func buildLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	format := config.LogFormatText
	if cfg != nil {
		level = cfg.Logging.Level.SlogLevel()
		format = cfg.Logging.Format
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func runInit(configPath string, force bool) error {
	if err := config.Init(configPath, force); err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityError, "write example configuration")
	}
	slog.Info("configuration written", "path", configPath)
	return nil
}

func runDaemon(configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "load configuration")
	}

	logger := buildLogger(cfg, verbose)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, configPath, logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	logger.Info("daemon started, waiting for shutdown signal")

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping daemon")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return err
	}

	logger.Info("daemon stopped")
	return nil
}
