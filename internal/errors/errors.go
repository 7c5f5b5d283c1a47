// Package errors provides a lightweight structured error type (CareError)
// for category-based classification and retry semantics across the bot.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a carebot error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig         ErrorCategory = "config"
	CategoryValidation     ErrorCategory = "validation"
	CategoryNotLinked      ErrorCategory = "not_linked"
	CategoryUnauthorized   ErrorCategory = "unauthorized"
	CategoryMalformedInput ErrorCategory = "malformed_input"

	// External system integration errors
	CategoryTelegram ErrorCategory = "telegram"
	CategoryDelivery ErrorCategory = "delivery"
	CategoryRelay    ErrorCategory = "relay"

	// Runtime and infrastructure errors
	CategoryStorage   ErrorCategory = "storage"
	CategoryScheduler ErrorCategory = "scheduler"
	CategoryDaemon    ErrorCategory = "daemon"
	CategoryInternal  ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// CareError is a structured error with category, retryability, and context
type CareError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for CareError
type ContextFields map[string]any

// Error implements the error interface
func (e *CareError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *CareError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *CareError) WithContext(key string, value any) *CareError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new CareError
func New(category ErrorCategory, severity ErrorSeverity, message string) *CareError {
	return &CareError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new CareError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *CareError {
	return &CareError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// WrapRetryable creates a new retryable CareError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *CareError {
	return &CareError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var ce *CareError
	if errors.As(err, &ce) {
		return ce.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var ce *CareError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a CareError
func GetCategory(err error) ErrorCategory {
	var ce *CareError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryInternal
}

// ContextValue returns the context field stored under key on the nearest
// CareError in err's chain, and whether it was present.
func ContextValue(err error, key string) (any, bool) {
	var ce *CareError
	if errors.As(err, &ce) && ce.Context != nil {
		v, ok := ce.Context[key]
		return v, ok
	}
	return nil, false
}

// ValidationError creates a new validation error for malformed user input
func ValidationError(message string) *CareError {
	return &CareError{
		Category:  CategoryValidation,
		Severity:  SeverityWarning,
		Message:   message,
		Retryable: false,
	}
}

// NotLinkedError reports that no recipient chat is linked yet
func NotLinkedError(message string) *CareError {
	return &CareError{
		Category:  CategoryNotLinked,
		Severity:  SeverityWarning,
		Message:   message,
		Retryable: false,
	}
}

// DaemonError creates a new daemon error (service unavailable)
func DaemonError(message string) *CareError {
	return &CareError{
		Category:  CategoryDaemon,
		Severity:  SeverityError,
		Message:   message,
		Retryable: false,
	}
}
