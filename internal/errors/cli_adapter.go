package errors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if ce, ok := err.(*CareError); ok {
		return a.exitCodeFromCareError(ce)
	}

	return 1
}

// exitCodeFromCareError maps CareError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromCareError(err *CareError) int {
	switch err.Category {
	case CategoryValidation, CategoryMalformedInput:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryUnauthorized:
		return 5 // Auth error
	case CategoryTelegram, CategoryDelivery, CategoryRelay:
		return 8 // External system error
	case CategoryStorage, CategoryScheduler:
		return 11 // Infrastructure error
	case CategoryDaemon:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if ce, ok := err.(*CareError); ok {
		return a.formatCareError(ce)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatCareError formats a CareError for display.
func (a *CLIErrorAdapter) formatCareError(err *CareError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryValidation, CategoryUnauthorized:
		return err.Message
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if ce, ok := err.(*CareError); ok {
		return ce.Category == CategoryInternal ||
			ce.Category == CategoryDaemon ||
			ce.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if ce, ok := err.(*CareError); ok {
		level := a.slogLevelFromSeverity(ce.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(ce.Category)),
		}
		if ce.Retryable {
			attrs = append(attrs, slog.Bool("retryable", true))
		}

		a.logger.LogAttrs(context.Background(), level, ce.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts CareError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityFatal:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
